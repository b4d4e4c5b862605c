package middleware

import (
	"net/http"
	"strings"

	"github.com/lafabrik/boutique-backend/api/responses"
	pkgAuth "github.com/lafabrik/boutique-backend/pkg/auth"
	"github.com/lafabrik/boutique-backend/pkg/config"
	pkgerrors "github.com/lafabrik/boutique-backend/pkg/errors"
	"github.com/lafabrik/boutique-backend/pkg/logger"
)

// StaffAuth validates a staff bearer token and seeds the request context
// with the authenticated email. Tokens minted for an email that no longer
// matches the configured staff account are rejected.
func StaffAuth(jwtCfg config.JWTConfig, staffCfg config.StaffConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	staffEmail := strings.ToLower(strings.TrimSpace(staffCfg.Email))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(jwtCfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			email := strings.ToLower(strings.TrimSpace(claims.Email))
			if email == "" || email != staffEmail {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown staff account"))
				return
			}

			ctx := WithStaffEmail(r.Context(), email)
			if logg != nil {
				ctx = logg.WithStaffEmail(ctx, email)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
