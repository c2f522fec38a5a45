package handler

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/dukerupert/flatrota/internal/auth"
)

type UserHandler struct {
	Deps
}

func NewUserHandler(d Deps) *UserHandler {
	return &UserHandler{Deps: d}
}

type userRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	existing, err := h.Stores.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger().Error("look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	u, err := h.Stores.Users.Create(r.Context(), req.Email, req.DisplayName, strings.TrimSpace(req.Avatar))
	if err != nil {
		h.logger().Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, c.User)
}

// UpdateProfile changes the caller's display name and avatar. Periods keep
// the identity they were assigned or completed with.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	u, err := h.Stores.Users.UpdateProfile(r.Context(), auth.UserID(r.Context()), req.DisplayName, strings.TrimSpace(req.Avatar))
	if err != nil {
		h.logger().Error("update profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
