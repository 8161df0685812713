package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/tipoca/internal/database"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `account_id, first_name, last_name, skin_tone, created_at, updated_at`

type ProfileRepository struct {
	db *database.DB
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfileRow(scanner rowScanner) (*models.Profile, error) {
	var p models.Profile
	var skinTone string
	if err := scanner.Scan(&p.AccountID, &p.FirstName, &p.LastName, &skinTone, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	p.SkinTone = models.SkinTone(skinTone)
	return &p, nil
}

func insertProfile(ctx context.Context, q database.Querier, p *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (account_id, first_name, last_name, skin_tone)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + profileColumns
	return scanProfileRow(q.QueryRow(ctx, query, p.AccountID, p.FirstName, p.LastName, string(p.SkinTone)))
}

func (r *ProfileRepository) FindByAccountID(ctx context.Context, accountID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE account_id = $1`
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, accountID))
}

// Update applies the non-nil fields of u.
func (r *ProfileRepository) Update(ctx context.Context, accountID string, u models.ProfileUpdate) (*models.Profile, error) {
	var skinTone *string
	if u.SkinTone != nil {
		s := string(*u.SkinTone)
		skinTone = &s
	}

	query := `
		UPDATE profiles SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			skin_tone = COALESCE($4, skin_tone),
			updated_at = NOW()
		WHERE account_id = $1
		RETURNING ` + profileColumns
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, accountID, u.FirstName, u.LastName, skinTone))
}

// Create inserts a profile for an account that has none. An existing
// profile is models.ErrConflict.
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	return insertProfile(ctx, r.db.Pool, p)
}

// Delete removes the profile and its avatar.
func (r *ProfileRepository) Delete(ctx context.Context, accountID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM profiles WHERE account_id = $1`, accountID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

const avatarColumns = `account_id, original_name, mime_type, size, data, created_at, updated_at`

func scanAvatarRow(scanner rowScanner) (*models.Avatar, error) {
	var a models.Avatar
	if err := scanner.Scan(&a.AccountID, &a.OriginalName, &a.MimeType, &a.Size, &a.Data, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func (r *ProfileRepository) FindAvatar(ctx context.Context, accountID string) (*models.Avatar, error) {
	query := `SELECT ` + avatarColumns + ` FROM avatars WHERE account_id = $1`
	return scanAvatarRow(r.db.Pool.QueryRow(ctx, query, accountID))
}

// CreateAvatar stores the first avatar of an account, creating a default
// profile when the account has none. An existing avatar is
// models.ErrConflict.
func (r *ProfileRepository) CreateAvatar(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
	var created *models.Avatar
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		p := models.DefaultProfile(a.AccountID)
		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (account_id, first_name, last_name, skin_tone)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (account_id) DO NOTHING`,
			p.AccountID, p.FirstName, p.LastName, string(p.SkinTone)); err != nil {
			return database.MapPostgresError(err)
		}

		query := `
			INSERT INTO avatars (account_id, original_name, mime_type, size, data)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + avatarColumns

		var err error
		created, err = scanAvatarRow(tx.QueryRow(ctx, query, a.AccountID, a.OriginalName, a.MimeType, a.Size, a.Data))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReplaceAvatar overwrites an existing avatar; without one it is
// models.ErrNotFound.
func (r *ProfileRepository) ReplaceAvatar(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
	query := `
		UPDATE avatars SET
			original_name = $2, mime_type = $3, size = $4, data = $5, updated_at = NOW()
		WHERE account_id = $1
		RETURNING ` + avatarColumns
	return scanAvatarRow(r.db.Pool.QueryRow(ctx, query, a.AccountID, a.OriginalName, a.MimeType, a.Size, a.Data))
}

// DeleteAvatar removes the avatar if there is one.
func (r *ProfileRepository) DeleteAvatar(ctx context.Context, accountID string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM avatars WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete avatar: %w", err)
	}
	return nil
}
