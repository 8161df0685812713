package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/tipoca/internal/auth"
	"github.com/BradenHooton/tipoca/internal/models"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

const msgPostNotFound = "Post does not exist"

// PostServiceInterface defines the interface for post operations
type PostServiceInterface interface {
	List(ctx context.Context) ([]*models.Post, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, authorID, content string) (*models.Post, error)
	Update(ctx context.Context, actorID, postID, content string) (*models.Post, error)
	Delete(ctx context.Context, actorID, postID string) error
}

type PostHandler struct {
	service PostServiceInterface
}

func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// PostContentRequest is the body of POST /posts and PATCH /posts/{postId}.
type PostContentRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

type PostResponse struct {
	Post *models.Post `json:"post"`
}

type PostListResponse struct {
	Posts []*models.Post `json:"posts"`
}

// List handles GET /posts.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, PostListResponse{Posts: posts})
}

// Get handles GET /posts/{postId}.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		writePostError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, PostResponse{Post: post})
}

// Create handles POST /posts.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	var req PostContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.service.Create(r.Context(), session.Account.ID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, PostResponse{Post: post})
}

// Update handles PATCH /posts/{postId}. The content becomes a new version.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	var req PostContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.service.Update(r.Context(), session.Account.ID, chi.URLParam(r, "postId"), req.Content)
	if err != nil {
		writePostError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, PostResponse{Post: post})
}

// Delete handles DELETE /posts/{postId}.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSession(r.Context())
	if session == nil {
		pkghttp.WriteInvalidToken(w)
		return
	}

	if err := h.service.Delete(r.Context(), session.Account.ID, chi.URLParam(r, "postId")); err != nil {
		writePostError(w, err)
		return
	}
	pkghttp.WriteNoContent(w)
}

func writePostError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrNotFound) {
		pkghttp.WriteError(w, http.StatusNotFound, msgPostNotFound)
		return
	}
	writeServiceError(w, err)
}
