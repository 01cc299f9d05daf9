package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		writeMessage(w, r, http.StatusServiceUnavailable, "unavailable")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password"`
	Role        model.UserRole `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || !req.Role.Valid() {
		writeMessage(w, r, http.StatusBadRequest, "invalid_user")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateUser(r.Context(), model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if errors.Is(err, store.ErrDuplicate) {
		writeMessage(w, r, http.StatusConflict, "duplicate")
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "internal")
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil || user == nil {
		writeMessage(w, r, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "userID")
	if !ok {
		writeMessage(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	var req setActiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.store.SetUserActive(r.Context(), id, req.Active)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, r, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		slog.Error("failed to toggle user active", "id", id, "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "internal")
		return
	}
	if !req.Active {
		n, err := h.store.DeleteUserSessions(r.Context(), id)
		if err != nil {
			slog.Warn("failed to revoke sessions of deactivated user", "id", id, "error", err)
		} else if n > 0 {
			slog.Info("revoked sessions of deactivated user", "id", id, "sessions", n)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents serves the notification outbox to a polling collaborator.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.store.ListEvents(r.Context(), after, min(limit, 1000))
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeMessage(w, r, http.StatusServiceUnavailable, "unavailable")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
