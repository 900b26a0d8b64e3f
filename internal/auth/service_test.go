package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "storefront",
	ExpirationMinutes: 30,
}

func TestServiceLoginIssuesRoleClaim(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, password, enums.RoleCustomer)
	svc, sessions := buildTestService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  CUSTOMER@example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleCustomer || claims.UserID != user.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.RefreshToken != sessions.tokens[claims.ID] {
		t.Fatalf("refresh token not bound to jti")
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := testUser(t, "right-password", enums.RoleCustomer)
	inactive := testUser(t, "right-password", enums.RoleCustomer)
	inactive.IsActive = false

	cases := []struct {
		name string
		user *models.User
		req  LoginRequest
	}{
		{name: "wrong password", user: user, req: LoginRequest{Email: user.Email, Password: "wrong"}},
		{name: "unknown email", user: nil, req: LoginRequest{Email: "ghost@example.com", Password: "right-password"}},
		{name: "blank email", user: user, req: LoginRequest{Email: "   ", Password: "right-password"}},
		{name: "inactive user", user: inactive, req: LoginRequest{Email: inactive.Email, Password: "right-password"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := buildTestService(t, tc.user)
			_, err := svc.Login(context.Background(), tc.req)
			if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestServiceLoginUpgradesWeakHash(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, password, enums.RoleCustomer)
	original := user.PasswordHash
	repo := &stubUserRepo{user: user}
	stronger := config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 2}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessionManager{tokens: map[string]string{}},
		JWTConfig:      testJWT,
		PasswordConfig: stronger,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password}); err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
	}
	if repo.rehashed != 1 || user.PasswordHash == original {
		t.Fatalf("expected exactly one rehash, got %d", repo.rehashed)
	}
	if _, rehash, _ := security.NewHasher(stronger).Verify(password, user.PasswordHash); rehash {
		t.Fatalf("upgraded hash still flagged for rehash")
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, password, enums.RoleCustomer)
	svc, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	oldClaims, _ := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)

	// Promote the user; the refreshed token carries the new role.
	user.Role = enums.RoleAdmin
	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.ID == oldClaims.ID || claims.Role != enums.RoleAdmin {
		t.Fatalf("unexpected refreshed claims %+v", claims)
	}
	if _, ok := sessions.tokens[oldClaims.ID]; ok {
		t.Fatalf("old session should be gone")
	}

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected reused refresh token to be rejected, got %v", err)
	}
}

func TestServiceRefreshRejectsGarbageToken(t *testing.T) {
	svc, _ := buildTestService(t, testUser(t, "pw-123456", enums.RoleCustomer))
	_, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: "not-a-jwt", RefreshToken: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLogoutRevokes(t *testing.T) {
	password := "customer-secret"
	user := testUser(t, password, enums.RoleCustomer)
	svc, sessions := buildTestService(t, user)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, _ := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	if err := svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions.tokens))
	}
	if err := svc.Logout(ctx, ""); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for blank jti, got %v", err)
	}
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{tokens: map[string]string{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{user: user},
		SessionManager: sessions,
		JWTConfig:      testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func testUser(t *testing.T, password string, role enums.Role) *models.User {
	t.Helper()
	hash, err := security.NewHasher(config.PasswordConfig{}).Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        "customer@example.com",
		PasswordHash: hash,
		FirstName:    "Ana",
		LastName:     "Souza",
		Role:         role,
		IsActive:     true,
	}
}

type stubUserRepo struct {
	user     *models.User
	rehashed int
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if s.user != nil && s.user.ID == id {
		s.user.PasswordHash = hash
		s.rehashed++
	}
	return nil
}

type stubSessionManager struct {
	tokens map[string]string
	seq    int
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.seq++
	token := "refresh-" + string(rune('a'+s.seq))
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if stored, ok := s.tokens[oldAccessID]; !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := session.NewAccessID()
	token, _ := s.Generate(ctx, newID)
	return newID, token, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	return nil
}
