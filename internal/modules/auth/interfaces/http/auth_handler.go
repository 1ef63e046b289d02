package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/saransh1220/filebox/internal/gateway/middleware"
	"github.com/saransh1220/filebox/internal/modules/auth/application"
	"github.com/saransh1220/filebox/internal/modules/auth/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/internal/shared/utils"
)

// AuthService defines the interface for auth operations
type AuthService interface {
	Register(ctx context.Context, req application.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req application.LoginRequest) (*domain.Session, error)
	GoogleLogin(ctx context.Context, req application.GoogleLoginRequest) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
}

type loginResponse struct {
	Message string          `json:"message"`
	Session *domain.Session `json:"session"`
}

type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	_, err := h.service.Register(r.Context(), req)
	switch {
	case err == nil:
		utils.WriteMessage(w, http.StatusCreated, "User created successfully")
	case errors.Is(err, domain.ErrMissingCredentials):
		utils.WriteError(w, http.StatusBadRequest, "Email and password required")
	case errors.Is(err, domain.ErrInvalidEmail):
		utils.WriteError(w, http.StatusBadRequest, "Invalid email format")
	case errors.Is(err, domain.ErrWeakPassword):
		utils.WriteError(w, http.StatusBadRequest, "Password must be at least 6 characters")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		utils.WriteError(w, http.StatusConflict, "User already exists")
	default:
		h.logger.ErrorContext(r.Context(), "register failed", logging.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	session, err := h.service.Login(r.Context(), req)
	h.writeSession(w, r, session, err)
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req application.GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Missing credentials")
		return
	}

	session, err := h.service.GoogleLogin(r.Context(), req)
	h.writeSession(w, r, session, err)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, session *domain.Session, err error) {
	switch {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, loginResponse{Message: "Login ok", Session: session})
	case errors.Is(err, domain.ErrMissingCredentials):
		utils.WriteError(w, http.StatusBadRequest, "Missing credentials")
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidGoogleToken):
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.logger.ErrorContext(r.Context(), "login failed", logging.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Logout revokes the bearer token if one is presented. Calling it without a
// token is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		h.logger.ErrorContext(r.Context(), "logout failed", logging.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Could not log out")
		return
	}
	utils.WriteMessage(w, http.StatusOK, "Logged out")
}
