package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/flatrota/internal/periodstore"
	"github.com/dukerupert/flatrota/internal/schedule"
	"github.com/dukerupert/flatrota/internal/store"
	"github.com/dukerupert/flatrota/internal/websocket"
)

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Stores  *store.Stores
	Periods *periodstore.Store
	Hub     websocket.Broadcaster
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) broadcast(msg websocket.Message) {
	if d.Hub != nil {
		d.Hub.Broadcast(msg)
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeScheduleError reports engine errors with a specific status and code.
// It returns false if err is not an engine error.
func writeScheduleError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, schedule.ErrInvalidConfiguration):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "invalid_configuration"})
	case errors.Is(err, schedule.ErrTaskInactive):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "task is closed", Code: "task_inactive"})
	case errors.Is(err, schedule.ErrAlreadyCompleted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "period is already completed", Code: "already_completed"})
	case errors.Is(err, schedule.ErrNotYetStarted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "period has not started yet", Code: "not_yet_started"})
	default:
		return false
	}
	return true
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Date accepts "2006-01-02" or RFC 3339 and normalizes to UTC midnight.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := schedule.ParseDay(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
