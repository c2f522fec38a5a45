package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/dukerupert/flatrota/internal/auth"
	"github.com/dukerupert/flatrota/internal/model"
	"github.com/dukerupert/flatrota/internal/websocket"
)

type FlatHandler struct {
	Deps
}

func NewFlatHandler(d Deps) *FlatHandler {
	return &FlatHandler{Deps: d}
}

func (h *FlatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	flat, err := h.Stores.Flats.Create(r.Context(), req.Name, auth.UserID(r.Context()))
	if err != nil {
		h.logger().Error("create flat", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create flat")
		return
	}
	writeJSON(w, http.StatusCreated, flat)
}

func (h *FlatHandler) List(w http.ResponseWriter, r *http.Request) {
	flats, err := h.Stores.Flats.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger().Error("list flats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flats")
		return
	}
	writeJSON(w, http.StatusOK, flats)
}

func (h *FlatHandler) flatParam(w http.ResponseWriter, r *http.Request) (*model.Flat, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flat id")
		return nil, false
	}
	flat, err := h.Stores.Flats.GetByID(r.Context(), id)
	if err != nil {
		h.logger().Error("get flat", "flat_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get flat")
		return nil, false
	}
	if flat == nil {
		writeError(w, http.StatusNotFound, "flat not found")
		return nil, false
	}
	return flat, true
}

func (h *FlatHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	flat, ok := h.flatParam(w, r)
	if !ok || !h.requireFlatMember(w, r, flat.ID) {
		return
	}
	members, err := h.Stores.Flats.ListMembers(r.Context(), flat.ID)
	if err != nil {
		h.logger().Error("list flat members", "flat_id", flat.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// Join adds the caller to the flat.
func (h *FlatHandler) Join(w http.ResponseWriter, r *http.Request) {
	flat, ok := h.flatParam(w, r)
	if !ok {
		return
	}
	userID := auth.UserID(r.Context())
	if err := h.Stores.Flats.AddMember(r.Context(), flat.ID, userID); err != nil {
		h.logger().Error("join flat", "flat_id", flat.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join flat")
		return
	}
	h.broadcast(websocket.NewMessage(flat.ID, "flat_member", "joined", userID, nil))
	writeJSON(w, http.StatusOK, flat)
}

// Leave removes a user from the flat. Callers may only remove themselves.
// The user is dropped from the rotation of every task they did not create
// and those tasks are reset, in one transaction.
func (h *FlatHandler) Leave(w http.ResponseWriter, r *http.Request) {
	flat, ok := h.flatParam(w, r)
	if !ok {
		return
	}
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "members can only remove themselves")
		return
	}
	if !h.requireFlatMember(w, r, flat.ID) {
		return
	}

	changed, err := h.Stores.Tasks.RemoveFromFlat(r.Context(), flat.ID, userID, h.resetPlan())
	if err != nil {
		h.logger().Error("leave flat", "flat_id", flat.ID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to leave flat")
		return
	}
	for _, task := range changed {
		h.Periods.Clear(task.ID)
		h.broadcast(websocket.NewMessage(flat.ID, "task", "members_updated", task.ID, nil))
		if task.Active {
			h.broadcast(websocket.NewMessage(flat.ID, "periods", "reset", task.ID, nil))
		}
	}
	h.broadcast(websocket.NewMessage(flat.ID, "flat_member", "left", userID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// memberSnapshots resolves userIDs to flat members, preserving order. It
// returns the ids that are not members of flatID.
func (d Deps) memberSnapshots(r *http.Request, flatID int64, userIDs []int64) ([]model.Member, []int64, error) {
	users, err := d.Stores.Flats.ListMembers(r.Context(), flatID)
	if err != nil {
		return nil, nil, err
	}
	members := make([]model.Member, 0, len(userIDs))
	var unknown []int64
	for _, id := range userIDs {
		i := slices.IndexFunc(users, func(u model.User) bool { return u.ID == id })
		if i < 0 {
			unknown = append(unknown, id)
			continue
		}
		members = append(members, users[i].Snapshot())
	}
	return members, unknown, nil
}
