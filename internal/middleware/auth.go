package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
)

// UserIDHeader carries the caller's user id. Authentication happens in front
// of this service; the header is trusted as-is.
const UserIDHeader = "X-User-ID"

// UserLookup resolves a user id. *store.UserStore satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// RequireUser resolves the calling user and stores it in the request context.
// Requests without a known user are rejected with 401.
func RequireUser(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				// Browsers cannot set headers on websocket upgrades.
				raw = r.URL.Query().Get("user_id")
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				unauthorized(w)
				return
			}

			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "failed to resolve user"})
				return
			}
			if u == nil {
				unauthorized(w)
				return
			}

			ctx := auth.WithCaller(r.Context(), auth.Caller{User: *u, RequestID: RequestID(r.Context())})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unknown user"})
}
