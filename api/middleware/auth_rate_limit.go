package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// maxRateLimitBody caps how much of an auth body is buffered to find the email.
const maxRateLimitBody = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy is a fixed window shared by every API replica through
// Redis. Counters exist per client IP and per hashed email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int64
	emailLimit int64
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: int64(ipLimit), emailLimit: int64(emailLimit)}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) key(dimension, value string) string {
	return fmt.Sprintf("sf:rate_limit:%s:%s:%s", p.name, dimension, value)
}

// rateCheck is one counter a request is charged against.
type rateCheck struct {
	dimension string
	value     string
	limit     int64
}

// AuthRateLimit throttles credential endpoints before the handler reads the body.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks, err := policy.checksFor(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, check := range checks {
				count, err := store.IncrWithTTL(ctx, policy.key(check.dimension, check.value), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > check.limit {
					policy.reject(ctx, logg, w, check, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checksFor buffers the body when an email limit applies and restores it for the handler.
func (p AuthRateLimitPolicy) checksFor(r *http.Request) ([]rateCheck, error) {
	var checks []rateCheck
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		checks = append(checks, rateCheck{dimension: "ip", value: ip, limit: p.ipLimit})
	}
	if p.emailLimit <= 0 || r.Body == nil {
		return checks, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitBody))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var creds struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &creds) == nil {
		if email := strings.ToLower(strings.TrimSpace(creds.Email)); email != "" {
			sum := sha256.Sum256([]byte(email))
			checks = append(checks, rateCheck{dimension: "email", value: hex.EncodeToString(sum[:]), limit: p.emailLimit})
		}
	}
	return checks, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, check rateCheck, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         p.name,
			"scope":          check.dimension,
			"key":            check.value,
			"attempts":       count,
			"limit":          check.limit,
			"window_seconds": int(p.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}
