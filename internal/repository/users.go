package repository

import (
	"context"
	"fmt"

	"github.com/atharvakonge/papertrade/internal/models"
	"github.com/shopspring/decimal"
)

const userColumns = "id, full_name, username, email, password_hash, role, cash_balance, created_at"

// CreateUser inserts u and sets its id. Duplicate username or email yields
// ErrAlreadyExists.
func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = now()
	q := r.q(ctx)
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO users (full_name, username, email, password_hash, role, cash_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		u.FullName, u.Username, u.Email, u.PasswordHash, u.Role, u.CashBalance, u.CreatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	q := r.q(ctx)
	err := q.GetContext(ctx, &u, q.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	return u, notFound(err)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	q := r.q(ctx)
	err := q.GetContext(ctx, &u, q.Rebind("SELECT "+userColumns+" FROM users WHERE username = ?"), username)
	return u, notFound(err)
}

// LockUser reads the user row and holds a write lock on it until the
// surrounding transaction ends.
func (r *Repository) LockUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	q := r.q(ctx)
	err := q.GetContext(ctx, &u, q.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"+r.forUpdate()), id)
	return u, notFound(err)
}

// IdentityTaken reports which of username and email are already registered.
func (r *Repository) IdentityTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	q := r.q(ctx)
	var n int
	if err = q.GetContext(ctx, &n, q.Rebind("SELECT COUNT(*) FROM users WHERE username = ?"), username); err != nil {
		return false, false, err
	}
	usernameTaken = n > 0
	if err = q.GetContext(ctx, &n, q.Rebind("SELECT COUNT(*) FROM users WHERE email = ?"), email); err != nil {
		return false, false, err
	}
	emailTaken = n > 0
	return usernameTaken, emailTaken, nil
}

func (r *Repository) UpdateCashBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind("UPDATE users SET cash_balance = ? WHERE id = ?"), balance, userID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return expectOneRow(res)
}

func (r *Repository) SetUserRole(ctx context.Context, userID int64, role models.Role) error {
	q := r.q(ctx)
	res, err := q.ExecContext(ctx, q.Rebind("UPDATE users SET role = ? WHERE id = ?"), role, userID)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return expectOneRow(res)
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0)
	err := r.q(ctx).SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY id")
	return users, err
}

func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.q(ctx).GetContext(ctx, &n, "SELECT COUNT(*) FROM users")
	return n, err
}
