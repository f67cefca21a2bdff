package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

const (
	HeaderSystemKey = "X-System-Key"
	HeaderAccountID = "X-Account-Id"
)

// NewHeaderAuthMiddleware resolves the caller from request headers.
//
// A request carrying X-System-Key must present the configured key and runs
// elevated. Otherwise X-Account-Id names the acting account. Requests with
// neither header continue anonymously; operations that need an identity
// reject them.
func NewHeaderAuthMiddleware(systemKey string) func(http.Handler) http.Handler {
	return newCallerMiddleware(systemKey, "")
}

// NewDevAuthMiddleware behaves like NewHeaderAuthMiddleware but falls back to
// defaultAccount when X-Account-Id is absent.
//
// This is intended for local runs. Do NOT use this in production deployments.
func NewDevAuthMiddleware(systemKey, defaultAccount string) func(http.Handler) http.Handler {
	return newCallerMiddleware(systemKey, strings.TrimSpace(defaultAccount))
}

func newCallerMiddleware(systemKey, fallbackAccount string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get(HeaderSystemKey); key != "" {
				if systemKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(systemKey)) != 1 {
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid system key", nil)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), domain.Elevated())))
				return
			}

			account := strings.TrimSpace(r.Header.Get(HeaderAccountID))
			if account == "" {
				account = fallbackAccount
			}
			caller := domain.Identified(domain.AccountID(account))
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
