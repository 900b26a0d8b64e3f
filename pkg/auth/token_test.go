package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var tokenCfg = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "storefront",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 24 * 60,
}

func mint(t *testing.T, cfg config.JWTConfig, at time.Time, payload AccessTokenPayload) string {
	t.Helper()
	token, err := MintAccessToken(cfg, at, payload)
	require.NoError(t, err)
	return token
}

func TestMintAndParseRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()
	token := mint(t, tokenCfg, now, AccessTokenPayload{UserID: userID, Email: "ana@example.com", Role: enums.RoleCustomer, JTI: "access-1"})

	claims, err := ParseAccessToken(tokenCfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, enums.RoleCustomer, claims.Role)
	assert.Equal(t, "access-1", claims.ID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "storefront", claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAssignsJTI(t *testing.T) {
	token := mint(t, tokenCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	claims, err := ParseAccessToken(tokenCfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestMintValidatesInput(t *testing.T) {
	good := AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCustomer}
	cases := map[string]struct {
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		"no secret":    {config.JWTConfig{Issuer: "i", ExpirationMinutes: 1}, good},
		"no issuer":    {config.JWTConfig{Secret: "s", ExpirationMinutes: 1}, good},
		"no ttl":       {config.JWTConfig{Secret: "s", Issuer: "i"}, good},
		"no user":      {tokenCfg, AccessTokenPayload{Role: enums.RoleCustomer}},
		"invalid role": {tokenCfg, AccessTokenPayload{UserID: uuid.New()}},
	}
	for name, tc := range cases {
		_, err := MintAccessToken(tc.cfg, time.Now(), tc.payload)
		assert.Error(t, err, name)
	}
}

func TestParseRejectsTamperedAndForeignTokens(t *testing.T) {
	token := mint(t, tokenCfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})

	_, err := ParseAccessToken(tokenCfg, token+"x")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	other := tokenCfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	_, err = ParseAccessTokenAllowExpired(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{UserID: uuid.New(), RegisteredClaims: jwt.RegisteredClaims{ID: "x", Issuer: "storefront"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(tokenCfg, unsigned)
	assert.Error(t, err)
}

func TestExpiredTokens(t *testing.T) {
	token := mint(t, tokenCfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCustomer, JTI: "stale-access"})

	_, err := ParseAccessToken(tokenCfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(tokenCfg, token)
	require.NoError(t, err)
	assert.Equal(t, "stale-access", claims.ID)

	ancient := mint(t, tokenCfg, time.Now().Add(-48*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCustomer})
	_, err = ParseAccessTokenAllowExpired(tokenCfg, ancient)
	assert.ErrorIs(t, err, ErrRefreshWindowClosed)
}
