package handlers

import (
	"net/http"
	"time"

	"github.com/Dosada05/mob-esports/middleware"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/services"
	"github.com/Dosada05/mob-esports/utils"
)

type AuthHandler struct {
	authService  services.AuthService
	secureCookie bool
}

// NewAuthHandler: secureCookie ставит флаг Secure, включать за HTTPS.
func NewAuthHandler(authService services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input models.Credentials

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := utils.ValidateStruct(input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	http.SetCookie(w, h.cookie(session.ID, session.ExpiresAt))

	response := jsonResponse{
		"user":      session.User,
		"role":      session.User.Role(),
		"expiresAt": session.ExpiresAt,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookie); err == nil && c.Value != "" {
		if err := h.authService.Logout(r.Context(), c.Value); err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	expired := h.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	response := jsonResponse{
		"user":      session.User,
		"role":      session.User.Role(),
		"expiresAt": session.ExpiresAt,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// currentSession достаёт сессию или отвечает 401.
func currentSession(w http.ResponseWriter, r *http.Request) (*models.ConsoleSession, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, services.ErrNotAuthenticated.Error())
		return nil, false
	}
	return session, true
}
