// Package repository declares the storage interfaces the service layer
// programs against. Concrete implementations live in subpackages
// (currently sqlite); services never import those directly.
package repository

import (
	"context"
	"time"

	"github.com/TAPV-Techworks/BudgetBee/internal/model"
)

// UserRepository persists user accounts and their credential state.
type UserRepository interface {
	// Create inserts a new user, generating ID and timestamps.
	// Returns apperror.ErrDuplicate when the email is already taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByEmail returns apperror.ErrNotFound when no account exists.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// SetOTP stores a new reset-code hash and its issuance time,
	// overwriting any pending code.
	SetOTP(ctx context.Context, id, otpHash string, issuedAt time.Time) error
	// ClearOTP removes any pending reset code.
	ClearOTP(ctx context.Context, id string) error
	// IsAdmin reports the user's admin capability.
	IsAdmin(ctx context.Context, id string) (bool, error)
	// Delete removes the user and every row they own (expenses, income,
	// feedback, categories — in that order) in one transaction.
	Delete(ctx context.Context, id string) error
}

// LedgerRepository persists categories and income/expense records.
// Every operation is scoped to an owner: rows belonging to other users
// behave exactly like missing rows.
type LedgerRepository interface {
	// ResolveCategory returns the category with this name under this
	// owner, creating it if absent. Idempotent — concurrent calls with
	// the same name converge on one row via the schema's unique
	// constraint.
	ResolveCategory(ctx context.Context, userID, name string) (*model.Category, error)

	CreateIncome(ctx context.Context, inc *model.Income) error
	ListIncomeByPeriod(ctx context.Context, userID, month string, year int) ([]model.Income, error)
	ListIncomeByYear(ctx context.Context, userID string, year int) ([]model.Income, error)
	UpdateIncome(ctx context.Context, inc *model.Income) error
	DeleteIncome(ctx context.Context, userID, id string) error
	// ZeroIncomeByPeriod sets the amount of every matching income row to
	// zero and returns how many rows it touched.
	ZeroIncomeByPeriod(ctx context.Context, userID, month string, year int) (int64, error)

	CreateExpense(ctx context.Context, exp *model.Expense) error
	ListExpensesByPeriod(ctx context.Context, userID, month string, year int) ([]model.Expense, error)
	ListExpensesByYear(ctx context.Context, userID string, year int) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, exp *model.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
	// DeleteExpensesByPeriod removes every matching expense row and
	// returns how many rows it removed.
	DeleteExpensesByPeriod(ctx context.Context, userID, month string, year int) (int64, error)
}

// FeedbackRepository persists user feedback. Feedback is append-only;
// rows disappear only with the owning account.
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, fb *model.Feedback) error
}
