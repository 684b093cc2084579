package http

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"membership-backend/internal/config"
	"membership-backend/internal/logger"
	"membership-backend/internal/security"
)

type claimsKey struct{}

func withClaims(ctx context.Context, c *security.MemberClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims of the authenticated caller.
func ClaimsFromContext(ctx context.Context) (*security.MemberClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*security.MemberClaims)
	return c, ok && c != nil
}

// NewAuthMiddleware enforces Authorization: Bearer <JWT> according to config.GetSecurityLevel.
// publicPaths are exact paths opened up on top of the configured levels.
func NewAuthMiddleware(tm security.TokenManager, publicPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			level := config.GetSecurityLevel(r.URL.Path)
			if level == config.SecurityPublic || slices.Contains(publicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			if len(authz) < 7 || !strings.EqualFold(authz[:7], "Bearer ") {
				writeErrorMessage(w, http.StatusUnauthorized, "authorization token is not provided")
				return
			}
			claims, err := tm.ValidateToken(strings.TrimSpace(authz[7:]))
			if err != nil {
				writeError(w, r, err)
				return
			}
			if level == config.SecurityAdmin && !claims.HasRole(security.RoleAdmin) {
				writeErrorMessage(w, http.StatusForbidden, "admin role required")
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs each request once it completes
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
