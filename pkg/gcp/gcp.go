// Package gcp holds the bits shared by the Pub/Sub and BigQuery clients.
package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

var ErrProjectIDRequired = errors.New("gcp project id is required")

// ClientOptions picks inline JSON credentials over a credentials file. With
// neither set the SDK falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ProjectID returns the first non-blank candidate.
func ProjectID(candidates ...string) (string, error) {
	for _, c := range candidates {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			return trimmed, nil
		}
	}
	return "", ErrProjectIDRequired
}

// ResourceName expands a short id into projects/<project>/<collection>/<id>.
// Fully qualified names pass through. An empty result means it can't be built.
func ResourceName(project, collection, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+collection+"/") {
		return id
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, collection, id)
}

// IsNotFound understands both REST (BigQuery) and gRPC (Pub/Sub) errors.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return status.Code(err) == codes.NotFound
}
