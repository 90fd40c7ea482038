package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// UserRepo persists rows of the 'users' table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, name, created_at"

// Create inserts u and fills in its generated ID and timestamp.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	q := conn(ctx, r.db)
	name := strings.TrimSpace(u.Name)
	res, err := q.ExecContext(ctx, "INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	created, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return fmt.Errorf("reload user %d: %w", id, err)
	}
	*u = created
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
	if err != nil {
		return model.User{}, wrapLookup("get user", err)
	}
	return u, nil
}

// GetByIDForUpdate fetches a user and locks the row until the
// surrounding transaction ends.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.User, error) {
	q, err := lockConn(ctx)
	if err != nil {
		return model.User{}, err
	}
	u, err := scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return model.User{}, wrapLookup("lock user", err)
	}
	return u, nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Delete removes the user row.  The caller must have removed the
// user's reservations first; the foreign key rejects the delete
// otherwise.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return requireAffected(res, "delete user")
}

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.CreatedAt)
	return u, err
}

// wrapLookup turns sql.ErrNoRows into model.ErrNotFound and wraps
// anything else with op.
func wrapLookup(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireAffected returns model.ErrNotFound when a statement touched
// no rows.
func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
