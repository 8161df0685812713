package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/tipoca/internal/database"
	"github.com/BradenHooton/tipoca/internal/models"
)

type RoleRepository struct {
	db *database.DB
}

func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func assignRole(ctx context.Context, q database.Querier, accountID, roleName string) error {
	query := `
		INSERT INTO account_roles (account_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT DO NOTHING`

	tag, err := q.Exec(ctx, query, accountID, roleName)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		// Either the role does not exist or it was already assigned.
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, roleName).Scan(&exists); err != nil {
			return database.MapPostgresError(err)
		}
		if !exists {
			return fmt.Errorf("role %q: %w", roleName, models.ErrNotFound)
		}
	}
	return nil
}

// Assign grants a role by name to an account. Assigning twice is a no-op.
func (r *RoleRepository) Assign(ctx context.Context, accountID, roleName string) error {
	return assignRole(ctx, r.db.Pool, accountID, roleName)
}

// RolesFor lists the roles held by an account.
func (r *RoleRepository) RolesFor(ctx context.Context, accountID string) ([]models.Role, error) {
	query := `
		SELECT r.id, r.name, r.description, r.system
		FROM roles r JOIN account_roles ar ON ar.role_id = r.id
		WHERE ar.account_id = $1
		ORDER BY r.name`

	rows, err := r.db.Pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.Role, 0)
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.System); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) HasPermission(ctx context.Context, accountID string, permission models.Permission) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM account_roles ar
			JOIN role_permissions rp ON rp.role_id = ar.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ar.account_id = $1 AND p.name = $2
		)`

	var ok bool
	if err := r.db.Pool.QueryRow(ctx, query, accountID, string(permission)).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return ok, nil
}
