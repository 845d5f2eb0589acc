package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user.
//
// Email uniqueness is checked up front so a duplicate signup gets a typed
// apperror.Duplicate with a friendly message; the UNIQUE constraint on
// users.email remains the authoritative backstop for the race between the
// check and the insert.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	var existing string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, user.Email,
	).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: checking email %s: %w", user.Email, err)
	}
	if existing != "" {
		return apperror.Duplicate("email", "email already exists")
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, is_admin, otp_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.OTPHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

const userColumns = `id, name, email, password_hash, is_admin, otp_hash, otp_created_at, created_at, updated_at`

// scanUser reads one user row. otp_created_at is nullable — NULL scans
// to the zero time.
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var otpCreated sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.OTPHash,
		&otpCreated,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if otpCreated.Valid {
		u.OTPCreatedAt = otpCreated.Time
	}
	return &u, nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email address.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// List returns every user, oldest first. Admin-only surface.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}

// UpdatePassword replaces the stored password hash.
func (db *DB) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// SetOTP stores the reset-code hash and issuance time, overwriting any
// previously issued code — reissuing invalidates the old one.
func (db *DB) SetOTP(ctx context.Context, id, otpHash string, issuedAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET otp_hash = ?, otp_created_at = ?, updated_at = ? WHERE id = ?`,
		otpHash, issuedAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: storing OTP for user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// ClearOTP removes any pending reset code.
func (db *DB) ClearOTP(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET otp_hash = '', otp_created_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing OTP for user %s: %w", id, err)
	}
	return nil
}

// IsAdmin reports the user's admin capability. Used by the admin
// middleware on every admin request, so revocation is immediate.
func (db *DB) IsAdmin(ctx context.Context, id string) (bool, error) {
	var isAdmin bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT is_admin FROM users WHERE id = ?`, id,
	).Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperror.NotFound("user", id)
		}
		return false, fmt.Errorf("sqlite: checking admin flag for user %s: %w", id, err)
	}
	return isAdmin, nil
}

// Delete removes the user and everything they own.
//
// Owned rows go first — expenses, income, feedback, categories — then the
// user row, all inside one transaction. The ON DELETE CASCADE constraints
// would handle this too, but deleting explicitly keeps the dependency
// order visible and the operation verifiable row-count by row-count.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning account deletion: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	for _, stmt := range []string{
		`DELETE FROM expenses WHERE user_id = ?`,
		`DELETE FROM income WHERE user_id = ?`,
		`DELETE FROM feedback WHERE user_id = ?`,
		`DELETE FROM categories WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("sqlite: deleting owned rows for user %s: %w", id, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing account deletion: %w", err)
	}
	return nil
}
