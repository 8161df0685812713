package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/tipoca/internal/database"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, email, password_hash, failed_login_attempts, status,
	password_reset_token, password_reset_issued_at, created_at, updated_at`

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	var status string

	err := scanner.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FailedLoginAttempts, &status,
		&a.PasswordResetToken, &a.PasswordResetIssuedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	a.Status = models.AccountStatus(status)

	return &a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, models.NormalizeEmail(email)))
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return accounts, nil
}

// CountByStatus returns the number of accounts in each status.
func (r *AccountRepository) CountByStatus(ctx context.Context) (map[models.AccountStatus]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM accounts GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	defer rows.Close()

	counts := map[models.AccountStatus]int64{models.StatusEnabled: 0, models.StatusLocked: 0}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.AccountStatus(status)] = n
	}
	return counts, rows.Err()
}

// Create inserts the account together with its default profile and the
// given roles in one transaction. A taken email yields models.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account, roles ...string) (*models.Account, error) {
	account.ID = uuid.New().String()
	account.Email = models.NormalizeEmail(account.Email)
	account.FailedLoginAttempts = 0
	if account.Status == "" {
		account.Status = models.StatusEnabled
	}

	var created *models.Account
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO accounts (id, email, password_hash, failed_login_attempts, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + accountColumns

		var err error
		created, err = scanAccountRow(tx.QueryRow(ctx, query,
			account.ID, account.Email, account.PasswordHash, account.FailedLoginAttempts, string(account.Status),
		))
		if err != nil {
			return err
		}

		if _, err := insertProfile(ctx, tx, models.DefaultProfile(created.ID)); err != nil {
			return fmt.Errorf("failed to create default profile: %w", err)
		}

		for _, role := range roles {
			if err := assignRole(ctx, tx, created.ID, role); err != nil {
				return fmt.Errorf("failed to assign role %s: %w", role, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateCredentials changes email and/or password hash; nil leaves a field as is.
func (r *AccountRepository) UpdateCredentials(ctx context.Context, id string, email, passwordHash *string) (*models.Account, error) {
	if email != nil {
		normalized := models.NormalizeEmail(*email)
		email = &normalized
	}

	query := `
		UPDATE accounts SET
			email = COALESCE($2, email),
			password_hash = COALESCE($3, password_hash),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id, email, passwordHash))
}

// RecordFailedLogin increments the failure counter in a single statement and
// locks the account once the counter reaches maxFailures. Concurrent failures
// each observe a distinct count, so the threshold cannot be skipped. A row
// that is already LOCKED is left untouched and yields models.ErrAccountLocked.
func (r *AccountRepository) RecordFailedLogin(ctx context.Context, id string, maxFailures int) (int, models.AccountStatus, error) {
	query := `
		UPDATE accounts SET
			failed_login_attempts = failed_login_attempts + 1,
			status = CASE WHEN failed_login_attempts + 1 >= $2 THEN 'LOCKED' ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND status = 'ENABLED'
		RETURNING failed_login_attempts, status`

	var attempts int
	var status string
	err := r.db.Pool.QueryRow(ctx, query, id, maxFailures).Scan(&attempts, &status)
	if err != nil {
		err = database.MapPostgresError(err)
		if errors.Is(err, models.ErrNotFound) {
			return 0, "", r.lockedOrMissing(ctx, id)
		}
		return 0, "", err
	}
	return attempts, models.AccountStatus(status), nil
}

// ResetFailedLogins zeroes the failure counter after a successful login. It
// refuses a LOCKED row with models.ErrAccountLocked, so a login that read the
// account before a concurrent lock cannot undo it.
func (r *AccountRepository) ResetFailedLogins(ctx context.Context, id string) (*models.Account, error) {
	query := `
		UPDATE accounts SET failed_login_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND status = 'ENABLED'
		RETURNING ` + accountColumns

	a, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, models.ErrNotFound) {
		return nil, r.lockedOrMissing(ctx, id)
	}
	return a, err
}

// lockedOrMissing explains why a status-guarded update matched no row.
func (r *AccountRepository) lockedOrMissing(ctx context.Context, id string) error {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if a.IsLocked() {
		return models.ErrAccountLocked
	}
	return fmt.Errorf("account %s changed status concurrently", id)
}

// SetStatus is the admin override. Enabling also clears the failure counter.
func (r *AccountRepository) SetStatus(ctx context.Context, id string, status models.AccountStatus) (*models.Account, error) {
	query := `
		UPDATE accounts SET
			status = $2,
			failed_login_attempts = CASE WHEN $2 = 'ENABLED' THEN 0 ELSE failed_login_attempts END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id, string(status)))
}

// SetResetToken overwrites any outstanding reset token.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, issuedAt time.Time) error {
	query := `
		UPDATE accounts SET password_reset_token = $2, password_reset_issued_at = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, token, issuedAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CompleteReset sets the new password, re-enables the account and clears the
// reset token, but only while token is still the stored one. It reports false
// when another request redeemed or replaced the token first.
func (r *AccountRepository) CompleteReset(ctx context.Context, id, token, passwordHash string) (bool, error) {
	query := `
		UPDATE accounts SET
			password_hash = $3,
			status = 'ENABLED',
			failed_login_attempts = 0,
			password_reset_token = NULL,
			password_reset_issued_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND password_reset_token = $2`

	tag, err := r.db.Pool.Exec(ctx, query, id, token, passwordHash)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the account; sessions, tracking rows, profile and role
// links go with it through ON DELETE CASCADE.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// EmailTaken reports whether email belongs to an account other than exceptID.
func (r *AccountRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	a, err := r.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return a.ID != exceptID, nil
}
