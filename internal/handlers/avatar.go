package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

const (
	avatarField = "avatar"

	// multipartOverhead leaves room for boundaries and part headers.
	multipartOverhead = 64 << 10

	msgNotMultipart     = "Request must be multipart/form-data"
	msgNoAvatar         = "No avatar was found in the request"
	msgAvatarType       = "File type must be .png, .jpg or .jpeg"
	msgAvatarExists     = "Avatar already exists"
	msgAvatarNotPresent = "No avatar to replace"
)

type AvatarResponse struct {
	Avatar string `json:"avatar"`
}

// GetAvatar handles GET /user/profile/avatar. An account without an avatar
// gets an empty string.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	avatar, err := h.service.GetAvatar(r.Context(), session.Account.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, AvatarResponse{Avatar: avatar.DataURL()})
}

// UploadAvatar handles POST /user/profile/avatar.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.storeAvatar(w, r, false)
}

// ReplaceAvatar handles PATCH /user/profile/avatar.
func (h *UserHandler) ReplaceAvatar(w http.ResponseWriter, r *http.Request) {
	h.storeAvatar(w, r, true)
}

// DeleteAvatar handles DELETE /user/profile/avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.DeleteAvatar(r.Context(), session.Account.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

func (h *UserHandler) storeAvatar(w http.ResponseWriter, r *http.Request, replace bool) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	avatar, ok := readAvatar(w, r)
	if !ok {
		return
	}
	avatar.AccountID = session.Account.ID

	stored, err := h.service.SetAvatar(r.Context(), avatar, replace)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteError(w, http.StatusConflict, msgAvatarExists)
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteError(w, http.StatusNotFound, msgAvatarNotPresent)
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteFieldError(w, "mimetype", msgAvatarType)
		default:
			writeServiceError(w, err)
		}
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, AvatarResponse{Avatar: stored.DataURL()})
}

// readAvatar pulls the "avatar" part out of a multipart body. The stored
// type comes from the file's content, not from what the client declared.
func readAvatar(w http.ResponseWriter, r *http.Request) (*models.Avatar, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		pkghttp.WriteBadRequest(w, msgNotMultipart)
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, models.MaxAvatarBytes+multipartOverhead)
	if err := r.ParseMultipartForm(models.MaxAvatarBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkghttp.WriteFieldError(w, avatarField, avatarTooLarge())
			return nil, false
		}
		pkghttp.WriteBadRequest(w, pkghttp.MsgInvalidBody)
		return nil, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(avatarField)
	if err != nil {
		pkghttp.WriteFieldError(w, avatarField, msgNoAvatar)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, models.MaxAvatarBytes+1))
	if err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.MsgInvalidBody)
		return nil, false
	}
	if len(data) == 0 {
		pkghttp.WriteFieldError(w, avatarField, msgNoAvatar)
		return nil, false
	}
	if len(data) > models.MaxAvatarBytes {
		pkghttp.WriteFieldError(w, avatarField, avatarTooLarge())
		return nil, false
	}

	detected := mimetype.Detect(data).String()
	if !models.AvatarMimeTypeAllowed(detected) {
		pkghttp.WriteFieldError(w, "mimetype", msgAvatarType)
		return nil, false
	}

	return &models.Avatar{
		OriginalName: header.Filename,
		MimeType:     detected,
		Size:         len(data),
		Data:         data,
	}, true
}

func avatarTooLarge() string {
	return fmt.Sprintf("Avatar must be at most %d MB", models.MaxAvatarBytes>>20)
}
