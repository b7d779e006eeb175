package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/n-admin/n-admin/internal/platform/db"
	"github.com/n-admin/n-admin/internal/shared"
)

// Service orchestrates role-permission associations and effective permission
// resolution against the store.
type Service struct {
	pool     *pgxpool.Pool
	cache    *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// WithCache enables a short-lived Redis cache for resolved permission sets.
// Staleness is bounded by the TTL rather than targeted invalidation, so
// keep it short.
func (s *Service) WithCache(client *redis.Client, ttl time.Duration) *Service {
	s.cache = client
	if ttl <= 0 {
		ttl = time.Minute
	}
	s.cacheTTL = ttl
	return s
}

type cachedSet struct {
	All   bool     `json:"all"`
	Codes []string `json:"codes"`
}

// EffectiveSetForUser loads the user's superuser flag and role permission
// codes and resolves them into a PermissionSet. Concurrent lookups for the
// same user share a single round trip.
func (s *Service) EffectiveSetForUser(ctx context.Context, userID int64) (PermissionSet, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		if set, ok := s.cachedSet(ctx, userID); ok {
			return set, nil
		}
		set, err := s.effectiveSet(ctx, userID)
		if err != nil {
			return PermissionSet{}, err
		}
		s.storeCachedSet(ctx, userID, set)
		return set, nil
	})
	if err != nil {
		return PermissionSet{}, err
	}
	return v.(PermissionSet), nil
}

// InvalidateUser drops the cached permission set for a user.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, permCacheKey(userID)).Err()
}

// WarmRecentlyActive resolves and caches permission sets for users seen
// within the given window. Returns the number of users warmed.
func (s *Service) WarmRecentlyActive(ctx context.Context, since time.Duration) (int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM users WHERE last_login_at >= now() - $1::interval AND status = 'active'`,
		fmt.Sprintf("%d seconds", int(since.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("rbac: query active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	warmed := 0
	for _, id := range ids {
		if _, err := s.EffectiveSetForUser(ctx, id); err != nil {
			continue
		}
		warmed++
	}
	return warmed, nil
}

func (s *Service) cachedSet(ctx context.Context, userID int64) (PermissionSet, bool) {
	if s.cache == nil {
		return PermissionSet{}, false
	}
	data, err := s.cache.Get(ctx, permCacheKey(userID)).Bytes()
	if err != nil {
		return PermissionSet{}, false
	}
	var entry cachedSet
	if err := json.Unmarshal(data, &entry); err != nil {
		return PermissionSet{}, false
	}
	if entry.All {
		return AllPermissions(), true
	}
	return NewPermissionSet(entry.Codes...), true
}

func (s *Service) storeCachedSet(ctx context.Context, userID int64, set PermissionSet) {
	if s.cache == nil {
		return
	}
	entry := cachedSet{All: set.IsAll(), Codes: set.Codes()}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, permCacheKey(userID), data, s.cacheTTL).Err()
}

func permCacheKey(userID int64) string {
	return "rbac:perms:" + strconv.FormatInt(userID, 10)
}

func (s *Service) effectiveSet(ctx context.Context, userID int64) (PermissionSet, error) {
	var isSuperuser bool
	err := s.pool.QueryRow(ctx, `SELECT is_superuser FROM users WHERE id = $1`, userID).Scan(&isSuperuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PermissionSet{}, shared.ErrNotFound
		}
		return PermissionSet{}, fmt.Errorf("rbac: load user: %w", err)
	}
	if isSuperuser {
		return AllPermissions(), nil
	}
	codes, err := s.rolePermissionCodes(ctx, userID)
	if err != nil {
		return PermissionSet{}, err
	}
	return NewPermissionSet(codes...), nil
}

// RolePermissionCodes returns the deduplicated permission codes granted to a
// user through their assigned role. A user without a role yields no codes.
func (s *Service) RolePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	return s.rolePermissionCodes(ctx, userID)
}

func (s *Service) rolePermissionCodes(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.code
		FROM users u
		JOIN role_permissions rp ON rp.role_id = u.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1
		ORDER BY p.code`, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: query permissions: %w", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ListRolePermissionIDs returns the permission IDs currently attached to a role.
func (s *Service) ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT permission_id FROM role_permissions WHERE role_id = $1 ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac: list assignments: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetRolePermissions replaces the role's permission associations with the
// supplied set. The diff keeps unchanged rows in place so re-supplying the
// same set is a no-op.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	existing, err := s.ListRolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	attach, detach := DiffAssignments(existing, permissionIDs)
	if len(attach) == 0 && len(detach) == 0 {
		return nil
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, id := range attach {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				roleID, id); err != nil {
				return fmt.Errorf("rbac: attach permission: %w", err)
			}
		}
		for _, id := range detach {
			if _, err := tx.Exec(ctx,
				`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
				roleID, id); err != nil {
				return fmt.Errorf("rbac: detach permission: %w", err)
			}
		}
		return nil
	})
}

// DiffAssignments computes the attach/detach sets that turn current into
// desired. Duplicates in desired are collapsed; identical sets yield two
// empty diffs, which is what makes wholesale replacement idempotent.
func DiffAssignments(current, desired []int64) (attach, detach []int64) {
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		if _, dup := keep[id]; dup {
			continue
		}
		keep[id] = struct{}{}
		if _, ok := have[id]; !ok {
			attach = append(attach, id)
		}
	}
	for _, id := range current {
		if _, ok := keep[id]; !ok {
			detach = append(detach, id)
		}
	}
	return attach, detach
}
