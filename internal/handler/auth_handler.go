package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"racoonsmeal/internal/middleware"
	"racoonsmeal/internal/model"
	"racoonsmeal/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, errMalformedJSON)
		return
	}

	user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, errMalformedJSON)
		return
	}

	switch {
	case strings.TrimSpace(payload.Username) == "":
		writeError(w, requiredField("username"))
		return
	case payload.Password == "":
		writeError(w, requiredField("password"))
		return
	}

	tokens, err := h.service.Login(r.Context(), strings.TrimSpace(payload.Username), payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, errMalformedJSON)
		return
	}

	payload.Refresh = strings.TrimSpace(payload.Refresh)
	if payload.Refresh == "" {
		writeError(w, requiredField("refresh"))
		return
	}

	token, err := h.service.Refresh(r.Context(), payload.Refresh)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// Me returns the user behind the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errNotAuthenticated)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
