package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// UserServiceInterface defines the interface for account self-service
type UserServiceInterface interface {
	UpdateMe(ctx context.Context, accountID string, u models.AccountUpdate) (*models.Account, error)
	DeleteMe(ctx context.Context, accountID string) error
	GetProfile(ctx context.Context, accountID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error)
	CreateProfile(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error)
	DeleteProfile(ctx context.Context, accountID string) error
	GetAvatar(ctx context.Context, accountID string) (*models.Avatar, error)
	SetAvatar(ctx context.Context, a *models.Avatar, replace bool) (*models.Avatar, error)
	DeleteAvatar(ctx context.Context, accountID string) error
}

// UserHandler serves the authenticated caller's own account.
type UserHandler struct {
	service UserServiceInterface
}

func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// UpdateMeRequest carries optional changes. Status is decoded only so that
// an attempt to change it can be refused.
type UpdateMeRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,strongpassword"`
	Status   *string `json:"status"`
}

// UpdateProfileRequest is the body of POST and PATCH /user/profile. At
// least one field must be present.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	SkinTone  *string `json:"skinTone" validate:"omitempty,skintone"`
}

func (r *UpdateProfileRequest) toUpdate() models.ProfileUpdate {
	u := models.ProfileUpdate{FirstName: r.FirstName, LastName: r.LastName}
	if r.SkinTone != nil {
		tone := models.SkinTone(*r.SkinTone)
		u.SkinTone = &tone
	}
	return u
}

func (r *UpdateProfileRequest) empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.SkinTone == nil
}

type UserResponse struct {
	User *models.PublicAccount `json:"user"`
}

type ProfileResponse struct {
	Profile *models.Profile `json:"profile"`
}

// Me handles GET /user/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{User: session.Account.Public(), Token: session.Token})
}

// UpdateMe handles PATCH /user/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	var req UpdateMeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Status != nil {
		pkghttp.WriteFieldError(w, "status", "Status can only be changed by an administrator")
		return
	}

	account, err := h.service.UpdateMe(r.Context(), session.Account.ID, models.AccountUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailInUse) {
			pkghttp.WriteFieldError(w, "email", "Email address already in use")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserResponse{User: account.Public()})
}

// DeleteMe handles DELETE /user/me.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.DeleteMe(r.Context(), session.Account.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

// GetProfile handles GET /user/profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), session.Account.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ProfileResponse{Profile: profile})
}

// UpdateProfile handles PATCH /user/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	req, ok := decodeProfileRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), session.Account.ID, req.toUpdate())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ProfileResponse{Profile: profile})
}

// CreateProfile handles POST /user/profile, which restores a deleted profile.
func (h *UserHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	req, ok := decodeProfileRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.service.CreateProfile(r.Context(), session.Account.ID, req.toUpdate())
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteError(w, http.StatusConflict, msgProfileExists)
			return
		}
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, ProfileResponse{Profile: profile})
}

// DeleteProfile handles DELETE /user/profile. The avatar goes with it.
func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.DeleteProfile(r.Context(), session.Account.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

const (
	msgProfileExists     = "Profile already exists"
	msgProfileFieldsMiss = "You must provide either a first name, last name or skin tone"
)

func decodeProfileRequest(w http.ResponseWriter, r *http.Request) (*UpdateProfileRequest, bool) {
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return nil, false
	}
	if req.empty() {
		pkghttp.WriteBadRequest(w, msgProfileFieldsMiss)
		return nil, false
	}
	return &req, true
}
