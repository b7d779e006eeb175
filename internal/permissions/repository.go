package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/n-admin/n-admin/internal/shared"
)

// ListFilter narrows permission listings.
type ListFilter struct {
	Keyword  string
	Code     string
	Category string
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPermissions returns permissions matching the filter, ordered by
// category then code.
func (r *Repository) ListPermissions(ctx context.Context, filter ListFilter) ([]Permission, error) {
	where := []string{"1=1"}
	args := []any{}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		where = append(where, fmt.Sprintf("label ILIKE $%d", len(args)))
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		args = append(args, "%"+code+"%")
		where = append(where, fmt.Sprintf("code ILIKE $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	query := `SELECT id, code, label, category, created_at FROM permissions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY category, code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("permissions: list: %w", err)
	}
	defer rows.Close()

	var result []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Code, &perm.Label, &perm.Category, &perm.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, perm)
	}
	return result, rows.Err()
}

// CreatePermission inserts a permission, upserting the label and category on
// code conflict so re-registering is safe.
func (r *Repository) CreatePermission(ctx context.Context, perm Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (code, label, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET label = EXCLUDED.label, category = EXCLUDED.category
		RETURNING id, created_at`,
		perm.Code, perm.Label, perm.Category,
	).Scan(&perm.ID, &perm.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Permission{}, fmt.Errorf("permissions: create: %w", shared.ErrDuplicate)
		}
		return Permission{}, fmt.Errorf("permissions: create: %w", err)
	}
	return perm, nil
}

// DeletePermission removes a permission by ID. Role associations cascade at
// the store layer.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("permissions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
