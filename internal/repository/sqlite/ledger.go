package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository"
)

// compile-time check that *DB implements repository.LedgerRepository
var _ repository.LedgerRepository = (*DB)(nil)

// OWNERSHIP SCOPING:
// Every query below filters on user_id as well as the row key. A request
// for another user's row therefore produces exactly the same result as a
// request for a row that doesn't exist — no existence leakage.

// ResolveCategory returns the category with this name under this owner,
// creating it if absent.
//
// The insert races are settled by the UNIQUE(user_id, name) constraint:
// ON CONFLICT DO NOTHING makes the losing insert a no-op, and the
// follow-up SELECT returns whichever row won. Both callers end up with
// the same category.
func (db *DB) ResolveCategory(ctx context.Context, userID, name string) (*model.Category, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, name) DO NOTHING`,
		xid.New().String(), userID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating category %q: %w", name, err)
	}

	cat := &model.Category{UserID: userID, Name: name}
	err = db.conn.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`,
		userID, name,
	).Scan(&cat.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving category %q: %w", name, err)
	}

	return cat, nil
}

// CreateIncome inserts a new income row. The caller (service layer) has
// already resolved the category and derived month/year from the date.
func (db *DB) CreateIncome(ctx context.Context, inc *model.Income) error {
	inc.ID = xid.New().String()
	inc.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO income (id, user_id, category_id, amount, date, month, year, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID,
		inc.UserID,
		inc.CategoryID,
		inc.Amount,
		inc.Date.Format(model.DateFormat),
		inc.Month,
		inc.Year,
		inc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting income: %w", err)
	}

	return nil
}

const incomeColumns = `i.id, i.user_id, i.category_id, c.name, i.amount, i.date, i.month, i.year, i.created_at`

func scanIncome(row interface{ Scan(...any) error }) (*model.Income, error) {
	var inc model.Income
	var dateStr string

	err := row.Scan(
		&inc.ID,
		&inc.UserID,
		&inc.CategoryID,
		&inc.Category,
		&inc.Amount,
		&dateStr,
		&inc.Month,
		&inc.Year,
		&inc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inc.Date, err = time.Parse(model.DateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parsing stored date %q: %w", dateStr, err)
	}
	return &inc, nil
}

func (db *DB) queryIncome(ctx context.Context, where string, args ...any) ([]model.Income, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+incomeColumns+`
		 FROM income i JOIN categories c ON c.id = i.category_id
		 WHERE `+where+` ORDER BY i.date, i.created_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing income: %w", err)
	}
	defer rows.Close()

	var records []model.Income
	for rows.Next() {
		inc, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning income row: %w", err)
		}
		records = append(records, *inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating income rows: %w", err)
	}

	return records, nil
}

// ListIncomeByPeriod returns the owner's income rows for one (month, year).
func (db *DB) ListIncomeByPeriod(ctx context.Context, userID, month string, year int) ([]model.Income, error) {
	return db.queryIncome(ctx, `i.user_id = ? AND i.month = ? AND i.year = ?`, userID, month, year)
}

// ListIncomeByYear returns the owner's income rows for a whole year.
func (db *DB) ListIncomeByYear(ctx context.Context, userID string, year int) ([]model.Income, error) {
	return db.queryIncome(ctx, `i.user_id = ? AND i.year = ?`, userID, year)
}

// UpdateIncome rewrites an income row's mutable fields. Scoped to the
// owner carried in inc.UserID; zero rows affected means not found.
func (db *DB) UpdateIncome(ctx context.Context, inc *model.Income) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE income SET amount = ?, category_id = ?, date = ?, month = ?, year = ?
		 WHERE id = ? AND user_id = ?`,
		inc.Amount,
		inc.CategoryID,
		inc.Date.Format(model.DateFormat),
		inc.Month,
		inc.Year,
		inc.ID,
		inc.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating income %s: %w", inc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("income record", inc.ID)
	}
	return nil
}

// DeleteIncome removes one of the owner's income rows.
func (db *DB) DeleteIncome(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM income WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting income %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("income record", id)
	}
	return nil
}

// ZeroIncomeByPeriod sets every matching income amount to zero. The rows
// stay (the period keeps its shape); only the amounts reset.
func (db *DB) ZeroIncomeByPeriod(ctx context.Context, userID, month string, year int) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE income SET amount = '0' WHERE user_id = ? AND month = ? AND year = ?`,
		userID, month, year,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: zeroing income for %s %d: %w", month, year, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting zeroed income rows: %w", err)
	}
	return n, nil
}

// CreateExpense inserts a new expense row.
func (db *DB) CreateExpense(ctx context.Context, exp *model.Expense) error {
	exp.ID = xid.New().String()
	exp.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category_id, description, amount, date, month, year, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID,
		exp.UserID,
		exp.CategoryID,
		exp.Description,
		exp.Amount,
		exp.Date.Format(model.DateFormat),
		exp.Month,
		exp.Year,
		exp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting expense: %w", err)
	}

	return nil
}

const expenseColumns = `e.id, e.user_id, e.category_id, c.name, e.description, e.amount, e.date, e.month, e.year, e.created_at`

func scanExpense(row interface{ Scan(...any) error }) (*model.Expense, error) {
	var exp model.Expense
	var dateStr string

	err := row.Scan(
		&exp.ID,
		&exp.UserID,
		&exp.CategoryID,
		&exp.Category,
		&exp.Description,
		&exp.Amount,
		&dateStr,
		&exp.Month,
		&exp.Year,
		&exp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	exp.Date, err = time.Parse(model.DateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parsing stored date %q: %w", dateStr, err)
	}
	return &exp, nil
}

func (db *DB) queryExpenses(ctx context.Context, where string, args ...any) ([]model.Expense, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN categories c ON c.id = e.category_id
		 WHERE `+where+` ORDER BY e.date, e.created_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing expenses: %w", err)
	}
	defer rows.Close()

	var records []model.Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning expense row: %w", err)
		}
		records = append(records, *exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating expense rows: %w", err)
	}

	return records, nil
}

// ListExpensesByPeriod returns the owner's expense rows for one (month, year).
func (db *DB) ListExpensesByPeriod(ctx context.Context, userID, month string, year int) ([]model.Expense, error) {
	return db.queryExpenses(ctx, `e.user_id = ? AND e.month = ? AND e.year = ?`, userID, month, year)
}

// ListExpensesByYear returns the owner's expense rows for a whole year.
func (db *DB) ListExpensesByYear(ctx context.Context, userID string, year int) ([]model.Expense, error) {
	return db.queryExpenses(ctx, `e.user_id = ? AND e.year = ?`, userID, year)
}

// UpdateExpense rewrites an expense row's mutable fields.
func (db *DB) UpdateExpense(ctx context.Context, exp *model.Expense) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, category_id = ?, date = ?, month = ?, year = ?
		 WHERE id = ? AND user_id = ?`,
		exp.Description,
		exp.Amount,
		exp.CategoryID,
		exp.Date.Format(model.DateFormat),
		exp.Month,
		exp.Year,
		exp.ID,
		exp.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating expense %s: %w", exp.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("expense record", exp.ID)
	}
	return nil
}

// DeleteExpense removes one of the owner's expense rows.
func (db *DB) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting expense %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("expense record", id)
	}
	return nil
}

// DeleteExpensesByPeriod removes every matching expense row.
func (db *DB) DeleteExpensesByPeriod(ctx context.Context, userID, month string, year int) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM expenses WHERE user_id = ? AND month = ? AND year = ?`,
		userID, month, year,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expenses for %s %d: %w", month, year, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting deleted expense rows: %w", err)
	}
	return n, nil
}
