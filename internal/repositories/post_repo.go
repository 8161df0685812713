package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/tipoca/internal/database"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, author_id, status, created_at, updated_at`

type PostRepository struct {
	db *database.DB
}

func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db}
}

func scanPostRow(scanner rowScanner) (*models.Post, error) {
	var p models.Post
	var status string
	if err := scanner.Scan(&p.ID, &p.AuthorID, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	p.Status = models.PostStatus(status)
	p.Versions = []models.PostVersion{}
	return &p, nil
}

// List returns every post, newest first, each with its versions newest first.
func (r *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	byID := make(map[string]*models.Post)
	ids := make([]string, 0)
	for rows.Next() {
		p, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	if len(ids) == 0 {
		return posts, nil
	}

	versions, err := r.db.Pool.Query(ctx, `
		SELECT id, post_id, version, content, created_at
		FROM post_versions WHERE post_id = ANY($1::uuid[])
		ORDER BY post_id, version DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query post versions: %w", err)
	}
	defer versions.Close()

	for versions.Next() {
		var v models.PostVersion
		if err := versions.Scan(&v.ID, &v.PostID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post version: %w", err)
		}
		if p, ok := byID[v.PostID]; ok {
			p.Versions = append(p.Versions, v)
		}
	}
	return posts, versions.Err()
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	return findPost(ctx, r.db.Pool, id, false)
}

// Create inserts a published post with content as its first version.
func (r *PostRepository) Create(ctx context.Context, authorID, content string) (*models.Post, error) {
	var created *models.Post
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO posts (id, author_id, status) VALUES ($1, $2, $3)
			RETURNING ` + postColumns

		var err error
		created, err = scanPostRow(tx.QueryRow(ctx, query, uuid.NewString(), authorID, string(models.PostPublished)))
		if err != nil {
			return err
		}

		v, err := insertVersion(ctx, tx, created.ID, 1, content)
		if err != nil {
			return err
		}
		created.Versions = []models.PostVersion{*v}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AddVersion appends content as the next version. The post row is locked so
// concurrent edits get consecutive numbers.
func (r *PostRepository) AddVersion(ctx context.Context, postID, content string) (*models.Post, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, models.ErrNotFound
	}

	var updated *models.Post
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := findPost(ctx, tx, postID, true); err != nil {
			return err
		}

		var next int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM post_versions WHERE post_id = $1`, postID).Scan(&next); err != nil {
			return database.MapPostgresError(err)
		}
		if _, err := insertVersion(ctx, tx, postID, next, content); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE posts SET updated_at = NOW() WHERE id = $1`, postID); err != nil {
			return database.MapPostgresError(err)
		}

		var err error
		updated, err = findPost(ctx, tx, postID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the post and its versions.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func findPost(ctx context.Context, q database.Querier, id string, forUpdate bool) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanPostRow(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, post_id, version, content, created_at
		FROM post_versions WHERE post_id = $1
		ORDER BY version DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query post versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.PostVersion
		if err := rows.Scan(&v.ID, &v.PostID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post version: %w", err)
		}
		p.Versions = append(p.Versions, v)
	}
	return p, rows.Err()
}

func insertVersion(ctx context.Context, q database.Querier, postID string, version int, content string) (*models.PostVersion, error) {
	var v models.PostVersion
	err := q.QueryRow(ctx, `
		INSERT INTO post_versions (id, post_id, version, content) VALUES ($1, $2, $3, $4)
		RETURNING id, post_id, version, content, created_at`,
		uuid.NewString(), postID, version, content,
	).Scan(&v.ID, &v.PostID, &v.Version, &v.Content, &v.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &v, nil
}
