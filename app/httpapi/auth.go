package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/ratelimit"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// AdminScope is the scope an admin token must carry.
const AdminScope = "rolesync:admin"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingScope = errors.New("token lacks admin scope")
)

type adminClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

type subjectKey struct{}

// Subject returns the authenticated token subject.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// IssueToken signs an admin token for subject.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Scope: AdminScope,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, expiry and scope of tokenString and
// returns its subject.
func ValidateToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*adminClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if !strings.Contains(" "+claims.Scope+" ", " "+AdminScope+" ") {
		return "", ErrMissingScope
	}
	return claims.Subject, nil
}

// AuthMiddleware requires a valid admin bearer token.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, http.StatusUnauthorized, ErrMissingToken.Error())
				return
			}
			subject, err := ValidateToken(secret, raw)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, ErrMissingScope) {
					status = http.StatusForbidden
				}
				writeError(w, status, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subject)))
		})
	}
}

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle IP entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

// NewIPRateLimiter hands out one limiter per client IP.
func NewIPRateLimiter(r rate.Limit, b int) *ratelimit.Keyed[string] {
	return ratelimit.NewKeyed[string](r, b, cleanupThreshold, maxIdleAge)
}

// RateLimitMiddleware rejects clients exceeding their limiter.
func RateLimitMiddleware(limiter *ratelimit.Keyed[string]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiter.Get(ip).Allow() {
				writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
