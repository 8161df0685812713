package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/BradenHooton/tipoca/internal/services"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

// AdminServiceInterface defines the account management contract.
type AdminServiceInterface interface {
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.PublicAccount, error)
	GetAccount(ctx context.Context, id string) (*services.AccountDetail, error)
	SetStatus(ctx context.Context, actorID, id string, status models.AccountStatus) (*models.Account, error)
	DeleteAccount(ctx context.Context, actorID, id string) error
	Stats(ctx context.Context) (*services.AccountStats, error)
}

// AdminHandler handles account management HTTP requests.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,accountstatus"`
}

type ListAccountsResponse struct {
	Users  []*models.PublicAccount `json:"users"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

type AccountDetailResponse struct {
	User *services.AccountDetail `json:"user"`
}

// ListAccounts handles GET /admin/users?limit=N&offset=M
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", services.DefaultPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	limit, offset = services.ClampPage(limit, offset)

	users, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListAccountsResponse{Users: users, Limit: limit, Offset: offset})
}

// GetAccount handles GET /admin/users/{id}
func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, AccountDetailResponse{User: detail})
}

// SetStatus handles PATCH /admin/users/{id}/status
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	var req SetStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.service.SetStatus(r.Context(), session.Account.ID, chi.URLParam(r, "id"), models.AccountStatus(req.Status))
	if err != nil {
		if errors.Is(err, models.ErrInvalidStatus) {
			pkghttp.WriteFieldError(w, "status", "Invalid account status")
			return
		}
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, UserResponse{User: account.Public()})
}

// DeleteAccount handles DELETE /admin/users/{id}
func (h *AdminHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), session.Account.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// queryInt reads an optional integer query parameter, answering 400 when it
// is present but malformed.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		pkghttp.WriteFieldError(w, name, name+" must be an integer")
		return 0, false
	}
	return n, true
}
