package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in models.LoginInput) (*models.LoginResult, error)
	Signup(ctx context.Context, in models.LoginInput) (*models.SignupResult, error)
	Logout(ctx context.Context, accountID, token string) error
	LogoutAll(ctx context.Context, accountID string) error
}

type PasswordResetServiceInterface interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, password, token string) (models.ResetResult, error)
}

// AuthHandler handles signup, login, logout and password reset.
type AuthHandler struct {
	service          AuthServiceInterface
	resets           PasswordResetServiceInterface
	ipConfig         *pkghttp.IPConfig
	delay            *auth.FailureDelay
	exposeResetToken bool
}

// NewAuthHandler creates a new AuthHandler. exposeResetToken returns reset
// tokens in the forgot-password response and must be false in production.
func NewAuthHandler(
	service AuthServiceInterface,
	resets PasswordResetServiceInterface,
	ipConfig *pkghttp.IPConfig,
	delay *auth.FailureDelay,
	exposeResetToken bool,
) *AuthHandler {
	return &AuthHandler{
		service:          service,
		resets:           resets,
		ipConfig:         ipConfig,
		delay:            delay,
		exposeResetToken: exposeResetToken,
	}
}

// Request DTOs

type SignupRequest struct {
	Email      string            `json:"email" validate:"required,email,max=254"`
	Password   string            `json:"password" validate:"required,strongpassword"`
	DeviceInfo models.DeviceInfo `json:"deviceInfo"`
}

type LoginRequest struct {
	Email      string            `json:"email" validate:"required,email,max=254"`
	Password   string            `json:"password" validate:"required,max=72"`
	DeviceInfo models.DeviceInfo `json:"deviceInfo"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,strongpassword"`
	Token    string `json:"token" validate:"required"`
}

// Response DTOs

// SessionResponse is returned by signup, login and GET /user/me.
type SessionResponse struct {
	User  *models.PublicAccount `json:"user"`
	Token string                `json:"token"`
}

type ForgotPasswordResponse struct {
	Token string `json:"token"`
}

// Signup handles POST /user/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Signup(r.Context(), models.LoginInput{
		Email:    models.NormalizeEmail(req.Email),
		Password: req.Password,
		Device:   req.DeviceInfo,
		SourceIP: pkghttp.ExtractClientIP(r, h.ipConfig),
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			pkghttp.WriteFieldError(w, "email", "Email address already exists")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SessionResponse{User: res.User, Token: res.Token})
}

// Login handles POST /user/login. Failed attempts are held for the failure
// delay before answering.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), models.LoginInput{
		Email:    models.NormalizeEmail(req.Email),
		Password: req.Password,
		Device:   req.DeviceInfo,
		SourceIP: pkghttp.ExtractClientIP(r, h.ipConfig),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if res.AuthError {
		h.delay.WaitFrom(r.Context(), start)
		if res.Locked {
			pkghttp.WriteAccountLocked(w)
			return
		}
		pkghttp.WriteAuthenticationError(w)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{User: res.User, Token: res.Token})
}

// Logout handles POST /user/logout and revokes the presented token only.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.Logout(r.Context(), session.Account.ID, session.Token); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

// LogoutAll handles POST /user/logoutAll and revokes every session of the caller.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.LogoutAll(r.Context(), session.Account.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

// ForgotPassword handles POST /user/forgotpassword.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.resets.ForgotPassword(r.Context(), models.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteFieldError(w, "email", "No user found")
			return
		}
		writeServiceError(w, err)
		return
	}

	if h.exposeResetToken {
		pkghttp.WriteJSON(w, http.StatusOK, ForgotPasswordResponse{Token: token})
		return
	}
	pkghttp.WriteNoContent(w)
}

// ResetPassword handles POST /user/resetpassword.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.resets.ResetPassword(r.Context(), req.Password, req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch {
	case res.InvalidToken:
		pkghttp.WriteBadRequest(w, pkghttp.MsgResetTokenInvalid)
	case res.TokenExpired:
		pkghttp.WriteBadRequest(w, pkghttp.MsgResetTokenExpired)
	default:
		pkghttp.WriteNoContent(w)
	}
}
