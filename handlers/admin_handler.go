package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/mob-esports/models"
)

// UserAdmin is the part of the users API available to admins.
type UserAdmin interface {
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
}

type AdminUserHandler struct {
	users UserAdmin
}

func NewAdminUserHandler(users UserAdmin) *AdminUserHandler {
	return &AdminUserHandler{users: users}
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateRoleInput struct {
	Role string `json:"role"`
}

func (h *AdminUserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateRoleInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Принимаем только известные роли, без свободного текста
	var role models.Role
	switch input.Role {
	case "player", "client":
		role = models.RolePlayer
	case "organizer":
		role = models.RoleOrganizer
	case "admin":
		role = models.RoleAdmin
	default:
		badRequestResponse(w, r, errors.New("role must be one of player, organizer, admin"))
		return
	}

	user, err := h.users.UpdateRole(r.Context(), userID, role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
