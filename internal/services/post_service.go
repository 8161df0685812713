package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/tipoca/internal/models"
)

// PostService manages posts. Only the author may add versions to a post or
// delete it.
type PostService struct {
	posts  PostRepository
	logger *slog.Logger
}

func NewPostService(posts PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

func (s *PostService) List(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		s.logger.Error("failed to list posts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load post", slog.String("post_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, authorID, content string) (*models.Post, error) {
	post, err := s.posts.Create(ctx, authorID, content)
	if err != nil {
		s.logger.Error("failed to create post", slog.String("user_id", authorID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.logger.Info("post created", slog.String("user_id", authorID), slog.String("post_id", post.ID))
	return post, nil
}

// Update records content as the newest version of the post.
func (s *PostService) Update(ctx context.Context, actorID, postID, content string) (*models.Post, error) {
	if _, err := s.authorOf(ctx, actorID, postID); err != nil {
		return nil, err
	}

	post, err := s.posts.AddVersion(ctx, postID, content)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to add post version", slog.String("post_id", postID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	s.logger.Info("post updated", slog.String("post_id", postID), slog.Int("versions", len(post.Versions)))
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	if _, err := s.authorOf(ctx, actorID, postID); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete post", slog.String("post_id", postID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.logger.Info("post deleted", slog.String("post_id", postID), slog.String("user_id", actorID))
	return nil
}

// authorOf loads the post and checks that actorID wrote it.
func (s *PostService) authorOf(ctx context.Context, actorID, postID string) (*models.Post, error) {
	post, err := s.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, models.ErrPermissionDenied
	}
	return post, nil
}
