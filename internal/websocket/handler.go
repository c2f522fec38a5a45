package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/flatrota/internal/auth"
)

// MembershipChecker reports whether a user belongs to a flat.
type MembershipChecker interface {
	IsMember(ctx context.Context, flatID, userID int64) (bool, error)
}

// HandleWebSocket upgrades the connection and subscribes it to the flat named
// by the flat_id query parameter. The caller must be a member of that flat.
func HandleWebSocket(hub *Hub, flats MembershipChecker, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		flatID, err := strconv.ParseInt(r.URL.Query().Get("flat_id"), 10, 64)
		if err != nil || flatID <= 0 {
			reject(w, http.StatusBadRequest, "invalid flat_id")
			return
		}

		ok, err := flats.IsMember(r.Context(), flatID, userID)
		if err != nil {
			logger.Error("check flat membership", "flat_id", flatID, "error", err)
			reject(w, http.StatusInternalServerError, "failed to check membership")
			return
		}
		if !ok {
			reject(w, http.StatusForbidden, "not a member of this flat")
			return
		}

		opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
		if len(originPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		logger.Debug("websocket connected", "flat_id", flatID, "user_id", userID)
		NewClient(hub, conn, flatID, userID).Run(r.Context())
		logger.Debug("websocket disconnected", "flat_id", flatID, "user_id", userID)
	}
}

func reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
