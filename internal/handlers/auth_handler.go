package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"conecta/internal/auth"
	"conecta/internal/errutil"
	"conecta/internal/middleware"
	"conecta/internal/models"
)

const maxJSONBody = 1 << 20

// AuthService is what the auth endpoints need from auth.Service.
type AuthService interface {
	Register(ctx context.Context, in models.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, role models.Role, email, password string) (*auth.Session, error)
	RequestPasswordReset(ctx context.Context, role models.Role, email string) error
	FulfillPasswordReset(ctx context.Context, token string, role models.Role, newPassword string) error
	Profile(ctx context.Context, p auth.Principal) (*models.Account, error)
	ChangePassword(ctx context.Context, p auth.Principal, oldPassword, newPassword string) error
}

type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
	v      *validator.Validate
	now    func() time.Time
}

func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		svc:    svc,
		logger: logger,
		v:      validator.New(),
		now:    time.Now,
	}
}

// @Tags Auth
// @Summary Register a candidate
// @Accept json
// @Produce json
// @Param body body models.RegisterCandidateRequest true "Candidate"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/auth/register/candidate [post]
func (h *AuthHandler) RegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterCandidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.register(w, r, req.Input())
}

// @Tags Auth
// @Summary Register a company
// @Accept json
// @Produce json
// @Param body body models.RegisterCompanyRequest true "Company"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/auth/register/company [post]
func (h *AuthHandler) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterCompanyRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.register(w, r, req.Input())
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, in models.RegisterInput) {
	sess, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.authResponse(sess))
}

// @Tags Auth
// @Summary Login
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Role, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.authResponse(sess))
}

// @Tags Auth
// @Summary Request a password reset email
// @Description Always answers the same way whether or not the account exists.
// @Accept json
// @Produce json
// @Param body body models.ForgotPasswordRequest true "Account"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Role, req.Email); err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "If an account exists for this email, a reset link has been sent",
	})
}

// @Tags Auth
// @Summary Reset a password with an emailed token
// @Accept json
// @Produce json
// @Param body body models.ResetPasswordRequest true "Reset"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.FulfillPasswordReset(r.Context(), req.Token, req.Role, req.NewPassword); err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Password reset successful",
	})
}

// @Tags Auth
// @Summary Current account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.Account
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSONErrorResponse(w, http.StatusUnauthorized, "missing_token", "Missing Authorization header")
		return
	}

	account, err := h.svc.Profile(r.Context(), p)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// @Tags Auth
// @Summary Change password
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeJSONErrorResponse(w, http.StatusUnauthorized, "missing_token", "Missing Authorization header")
		return
	}

	var req models.ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ChangePassword(r.Context(), p, req.OldPassword, req.NewPassword); err != nil {
		h.writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Password updated",
	})
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	if err := h.v.Struct(dst); err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) authResponse(sess *auth.Session) models.AuthResponse {
	expiresIn := int64(sess.ExpiresAt.Sub(h.now()).Round(time.Second) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}
	return models.AuthResponse{
		AccessToken: sess.Token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		Account:     sess.Account,
	}
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	status, code, message := authErrorResponse(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(h.logger, "auth request failed", err)
	}
	writeJSONErrorResponse(w, status, code, message)
}

// authErrorResponse maps service errors onto the HTTP contract. Credential
// and token failures carry no detail about which check failed.
func authErrorResponse(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrDuplicateAccount):
		return http.StatusConflict, "duplicate_account", "An account with this email already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest, "invalid_token", "Invalid or expired token"
	case errors.Is(err, auth.ErrInvalidRole):
		return http.StatusBadRequest, "validation_error", "role must be company or candidate"
	case errors.Is(err, auth.ErrEmptyPassword):
		return http.StatusBadRequest, "validation_error", "password is required"
	case errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, "validation_error", "password must be at most 72 bytes"
	case errors.Is(err, auth.ErrAccountNotFound):
		return http.StatusNotFound, "not_found", "Account not found"
	case errors.Is(err, auth.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable", "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "server_error", "Internal server error"
	}
}
