package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestClientOptions(t *testing.T) {
	assert.Nil(t, ClientOptions(config.GCPConfig{}))
	assert.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/gcp.json"}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{ApplicationCredentials: "/etc/gcp.json"}), 1)
}

func TestProjectID(t *testing.T) {
	id, err := ProjectID(" ", " analytics-prj ", "shop-prod")
	require.NoError(t, err)
	assert.Equal(t, "analytics-prj", id)

	_, err = ProjectID("", "  ")
	assert.ErrorIs(t, err, ErrProjectIDRequired)
}

func TestResourceName(t *testing.T) {
	tests := []struct {
		project, collection, id, want string
	}{
		{"shop-prod", "topics", "sf-order-events", "projects/shop-prod/topics/sf-order-events"},
		{"shop-prod", "topics", "projects/other/topics/x", "projects/other/topics/x"},
		{"shop-prod", "subscriptions", " cart-cleanup ", "projects/shop-prod/subscriptions/cart-cleanup"},
		{"shop-prod", "topics", "  ", ""},
		{"", "topics", "orders", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResourceName(tt.project, tt.collection, tt.id), tt.id)
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})))
	assert.False(t, IsNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.True(t, IsNotFound(status.Error(codes.NotFound, "topic missing")))
	assert.False(t, IsNotFound(status.Error(codes.Unavailable, "down")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}
