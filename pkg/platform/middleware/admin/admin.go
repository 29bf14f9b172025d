package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"eduhub/pkg/requestcontext"
	"eduhub/pkg/secrets"
)

const headerAdminToken = "X-Admin-Token"

// RequireAdminToken guards operator endpoints with the X-Admin-Token header.
// An empty expectedToken disables the guarded routes entirely (404), so a
// deployment without ADMIN_TOKEN never exposes them.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(expectedToken != "", func(token string) bool {
		return subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1
	}, logger)
}

// RequireAdminTokenHash is RequireAdminToken for a bcrypt hash of a token
// minted by claimctl, so the plaintext never sits in the gateway's environment.
func RequireAdminTokenHash(hash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(hash != "", func(token string) bool {
		return secrets.VerifyAdminToken(token, hash) == nil
	}, logger)
}

func guard(enabled bool, match func(string) bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !enabled {
				writeError(w, http.StatusNotFound, "not_found", "admin endpoints are disabled")
				return
			}
			if !match(r.Header.Get(headerAdminToken)) {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","code":"` + code + `"}`))
}
