package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/tipoca/internal/database"
)

// SessionTokenRepository keeps active session tokens in Postgres. Revocation
// is deletion; a token that is not stored is not a session.
type SessionTokenRepository struct {
	db *database.DB
}

func NewSessionTokenRepository(db *database.DB) *SessionTokenRepository {
	return &SessionTokenRepository{db: db}
}

func (r *SessionTokenRepository) Save(ctx context.Context, token, ownerID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO session_tokens (token, account_id) VALUES ($1, $2)`, token, ownerID)
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", database.MapPostgresError(err))
	}
	return nil
}

// Find returns the owner of token, or models.ErrNotFound.
func (r *SessionTokenRepository) Find(ctx context.Context, token string) (string, error) {
	var ownerID string
	err := r.db.Pool.QueryRow(ctx,
		`SELECT account_id FROM session_tokens WHERE token = $1`, token).Scan(&ownerID)
	if err != nil {
		return "", database.MapPostgresError(err)
	}
	return ownerID, nil
}

// DeleteOne removes token. Deleting an unknown token is not an error.
func (r *SessionTokenRepository) DeleteOne(ctx context.Context, token string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM session_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

func (r *SessionTokenRepository) DeleteAllFor(ctx context.Context, ownerID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM session_tokens WHERE account_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountFor reports how many sessions an account holds.
func (r *SessionTokenRepository) CountFor(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_tokens WHERE account_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count session tokens: %w", err)
	}
	return n, nil
}
