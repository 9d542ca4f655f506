package store

import (
	"context"
	"database/sql"
	"time"
)

const adminColumns = `id, email, password_hash, created_at, last_login_at`

func scanAdmin(row rowScanner) (Admin, error) {
	var i Admin
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt, &i.LastLoginAt)
	return i, err
}

const createAdmin = `INSERT INTO admins (email, password_hash, created_at) VALUES (?, ?, ?)
RETURNING ` + adminColumns

type CreateAdminParams struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	return scanAdmin(q.db.QueryRowContext(ctx, createAdmin, arg.Email, arg.PasswordHash, arg.CreatedAt))
}

const getAdminByEmail = `SELECT ` + adminColumns + ` FROM admins WHERE email = ?`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return scanAdmin(q.db.QueryRowContext(ctx, getAdminByEmail, email))
}

const getAdminByID = `SELECT ` + adminColumns + ` FROM admins WHERE id = ?`

func (q *Queries) GetAdminByID(ctx context.Context, id int64) (Admin, error) {
	return scanAdmin(q.db.QueryRowContext(ctx, getAdminByID, id))
}

const updateAdminPassword = `UPDATE admins SET password_hash = ? WHERE id = ?`

type UpdateAdminPasswordParams struct {
	PasswordHash string
	ID           int64
}

func (q *Queries) UpdateAdminPassword(ctx context.Context, arg UpdateAdminPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateAdminPassword, arg.PasswordHash, arg.ID)
	return err
}

const updateAdminLastLogin = `UPDATE admins SET last_login_at = ? WHERE id = ?`

type UpdateAdminLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

func (q *Queries) UpdateAdminLastLogin(ctx context.Context, arg UpdateAdminLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateAdminLastLogin, arg.LastLoginAt, arg.ID)
	return err
}
