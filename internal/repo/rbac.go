package repo

import (
	"context"
	"database/sql"
)

func (r Repo) EnsureActor(ctx context.Context, tx *sql.Tx, actorID string, now string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO actors(id, created_at) VALUES (?,?)`, actorID, now)
	return err
}

func (r Repo) InsertRole(ctx context.Context, tx *sql.Tx, id, desc string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO roles(id, description) VALUES (?,?)
ON CONFLICT(id) DO UPDATE SET description=excluded.description`, id, nullable(desc))
	return err
}

func (r Repo) InsertPermission(ctx context.Context, tx *sql.Tx, id, desc string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO permissions(id, description) VALUES (?,?)`, id, nullable(desc))
	return err
}

func (r Repo) AddRolePermission(ctx context.Context, tx *sql.Tx, roleID, permID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO role_permissions(role_id, permission_id) VALUES (?,?)`, roleID, permID)
	return err
}

func (r Repo) AssignRole(ctx context.Context, tx *sql.Tx, actorID, roleID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO actor_roles(actor_id, role_id) VALUES (?,?)`, actorID, roleID)
	return err
}

func (r Repo) RevokeRole(ctx context.Context, tx *sql.Tx, actorID, roleID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `DELETE FROM actor_roles WHERE actor_id=? AND role_id=?`, actorID, roleID)
	return err
}

// ActorRoles lists the roles assigned to an actor.
func (r Repo) ActorRoles(ctx context.Context, actorID string) ([]string, error) {
	return r.queryStrings(ctx, `SELECT role_id FROM actor_roles WHERE actor_id=? ORDER BY role_id`, actorID)
}

// RolePermissions lists the permissions granted by the given roles.
func (r Repo) RolePermissions(ctx context.Context, roleIDs []string) ([]string, error) {
	seen := map[string]struct{}{}
	var perms []string
	for _, roleID := range roleIDs {
		ps, err := r.queryStrings(ctx, `SELECT permission_id FROM role_permissions WHERE role_id=? ORDER BY permission_id`, roleID)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (r Repo) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RoleHolders lists the actors holding roleID.
func (r Repo) RoleHolders(ctx context.Context, roleID string) ([]string, error) {
	return r.queryStrings(ctx, `SELECT actor_id FROM actor_roles WHERE role_id=? ORDER BY actor_id`, roleID)
}
