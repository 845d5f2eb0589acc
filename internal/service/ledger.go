package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository"
)

// Validation limits for ledger writes.
const (
	MaxCategoryLength    = 50
	MaxDescriptionLength = 255
	MaxFeedbackLength    = 5000
)

// FeedbackMailer relays a feedback message to the administrators.
// Satisfied by notify.Mailer.
type FeedbackMailer interface {
	SendFeedback(ctx context.Context, admin *model.User, from *model.User, message string) error
}

// LedgerService handles income/expense CRUD, period aggregation, the
// reset operations, exports, and feedback.
type LedgerService struct {
	ledger   repository.LedgerRepository
	feedback repository.FeedbackRepository
	users    repository.UserRepository
	mailer   FeedbackMailer
	logger   *slog.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(
	ledger repository.LedgerRepository,
	feedback repository.FeedbackRepository,
	users repository.UserRepository,
	mailer FeedbackMailer,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		ledger:   ledger,
		feedback: feedback,
		users:    users,
		mailer:   mailer,
		logger:   logger,
	}
}

// LedgerEntry carries the validated inputs of an income or expense
// write. Description is ignored for income.
type LedgerEntry struct {
	Amount      decimal.Decimal
	Category    string
	Date        string // model.DateFormat
	Description string
}

// validateEntry checks the shared fields of a ledger write and parses
// the date. month/year are derived from the parsed date — the only
// place they ever come from, on create and update alike.
func (s *LedgerService) validateEntry(e LedgerEntry) (date time.Time, month string, year int, err error) {
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		return time.Time{}, "", 0, apperror.ValidationFailed("category", "category is required")
	}
	if len(e.Category) > MaxCategoryLength {
		return time.Time{}, "", 0, apperror.ValidationFailed("category",
			fmt.Sprintf("category must be %d characters or fewer", MaxCategoryLength))
	}
	if e.Amount.IsNegative() {
		return time.Time{}, "", 0, apperror.ValidationFailed("amount", "amount must not be negative")
	}
	if e.Date == "" {
		return time.Time{}, "", 0, apperror.ValidationFailed("date", "date is required")
	}
	date, err = time.Parse(model.DateFormat, e.Date)
	if err != nil {
		return time.Time{}, "", 0, apperror.ValidationFailed("date", "date must be in YYYY-MM-DD format")
	}
	month, year = model.PeriodOf(date)
	return date, month, year, nil
}

// AddIncome records an income entry, lazily creating its category.
func (s *LedgerService) AddIncome(ctx context.Context, userID string, e LedgerEntry) (*model.Income, error) {
	date, month, year, err := s.validateEntry(e)
	if err != nil {
		return nil, err
	}

	cat, err := s.ledger.ResolveCategory(ctx, userID, strings.TrimSpace(e.Category))
	if err != nil {
		return nil, fmt.Errorf("service/ledger: resolving category: %w", err)
	}

	inc := &model.Income{
		UserID:     userID,
		CategoryID: cat.ID,
		Category:   cat.Name,
		Amount:     e.Amount,
		Date:       date,
		Month:      month,
		Year:       year,
	}
	if err := s.ledger.CreateIncome(ctx, inc); err != nil {
		return nil, fmt.Errorf("service/ledger: creating income: %w", err)
	}

	s.logger.Info("income added", slog.String("userID", userID), slog.String("id", inc.ID))
	return inc, nil
}

// UpdateIncome rewrites an existing income entry. Every field is
// revalidated and month/year re-derived — a date change can move the
// record to a different period, never leave stale denormalized fields.
func (s *LedgerService) UpdateIncome(ctx context.Context, userID, id string, e LedgerEntry) (*model.Income, error) {
	date, month, year, err := s.validateEntry(e)
	if err != nil {
		return nil, err
	}

	cat, err := s.ledger.ResolveCategory(ctx, userID, strings.TrimSpace(e.Category))
	if err != nil {
		return nil, fmt.Errorf("service/ledger: resolving category: %w", err)
	}

	inc := &model.Income{
		ID:         id,
		UserID:     userID,
		CategoryID: cat.ID,
		Category:   cat.Name,
		Amount:     e.Amount,
		Date:       date,
		Month:      month,
		Year:       year,
	}
	if err := s.ledger.UpdateIncome(ctx, inc); err != nil {
		return nil, err
	}

	return inc, nil
}

// DeleteIncome removes one income entry (owner-scoped).
func (s *LedgerService) DeleteIncome(ctx context.Context, userID, id string) error {
	return s.ledger.DeleteIncome(ctx, userID, id)
}

// ListIncome returns the caller's income for one period.
func (s *LedgerService) ListIncome(ctx context.Context, userID, month string, year int) ([]model.Income, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	return s.ledger.ListIncomeByPeriod(ctx, userID, month, year)
}

// AddExpense records an expense entry. Unlike income, a description is
// required.
func (s *LedgerService) AddExpense(ctx context.Context, userID string, e LedgerEntry) (*model.Expense, error) {
	if err := validateDescription(e.Description); err != nil {
		return nil, err
	}
	date, month, year, err := s.validateEntry(e)
	if err != nil {
		return nil, err
	}

	cat, err := s.ledger.ResolveCategory(ctx, userID, strings.TrimSpace(e.Category))
	if err != nil {
		return nil, fmt.Errorf("service/ledger: resolving category: %w", err)
	}

	exp := &model.Expense{
		UserID:      userID,
		CategoryID:  cat.ID,
		Category:    cat.Name,
		Description: strings.TrimSpace(e.Description),
		Amount:      e.Amount,
		Date:        date,
		Month:       month,
		Year:        year,
	}
	if err := s.ledger.CreateExpense(ctx, exp); err != nil {
		return nil, fmt.Errorf("service/ledger: creating expense: %w", err)
	}

	s.logger.Info("expense added", slog.String("userID", userID), slog.String("id", exp.ID))
	return exp, nil
}

// UpdateExpense rewrites an existing expense entry.
func (s *LedgerService) UpdateExpense(ctx context.Context, userID, id string, e LedgerEntry) (*model.Expense, error) {
	if err := validateDescription(e.Description); err != nil {
		return nil, err
	}
	date, month, year, err := s.validateEntry(e)
	if err != nil {
		return nil, err
	}

	cat, err := s.ledger.ResolveCategory(ctx, userID, strings.TrimSpace(e.Category))
	if err != nil {
		return nil, fmt.Errorf("service/ledger: resolving category: %w", err)
	}

	exp := &model.Expense{
		ID:          id,
		UserID:      userID,
		CategoryID:  cat.ID,
		Category:    cat.Name,
		Description: strings.TrimSpace(e.Description),
		Amount:      e.Amount,
		Date:        date,
		Month:       month,
		Year:        year,
	}
	if err := s.ledger.UpdateExpense(ctx, exp); err != nil {
		return nil, err
	}

	return exp, nil
}

// DeleteExpense removes one expense entry (owner-scoped).
func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id string) error {
	return s.ledger.DeleteExpense(ctx, userID, id)
}

// ListExpenses returns the caller's expenses for one period.
func (s *LedgerService) ListExpenses(ctx context.Context, userID, month string, year int) ([]model.Expense, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	return s.ledger.ListExpensesByPeriod(ctx, userID, month, year)
}

func validateDescription(d string) error {
	d = strings.TrimSpace(d)
	if d == "" {
		return apperror.ValidationFailed("description", "description is required")
	}
	if len(d) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or fewer", MaxDescriptionLength))
	}
	return nil
}

func validatePeriod(month string, year int) error {
	if month == "" || year == 0 {
		return apperror.ValidationFailed("", "please provide both month and year")
	}
	return nil
}

// BalanceSummary is the aggregate for one period.
type BalanceSummary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

// Balance sums the period's income and expense amounts.
//
// One rule everywhere: balance = income − expenses. Summation happens in
// decimal space, never float.
func (s *LedgerService) Balance(ctx context.Context, userID, month string, year int) (*BalanceSummary, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	incomes, err := s.ledger.ListIncomeByPeriod(ctx, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("service/ledger: listing income for balance: %w", err)
	}
	expenses, err := s.ledger.ListExpensesByPeriod(ctx, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("service/ledger: listing expenses for balance: %w", err)
	}

	return summarize(incomes, expenses), nil
}

// summarize totals a set of ledger rows. Shared by Balance and the
// export summary block so the two can never disagree.
func summarize(incomes []model.Income, expenses []model.Expense) *BalanceSummary {
	totalIncome := decimal.Zero
	for _, inc := range incomes {
		totalIncome = totalIncome.Add(inc.Amount)
	}
	totalExpense := decimal.Zero
	for _, exp := range expenses {
		totalExpense = totalExpense.Add(exp.Amount)
	}
	return &BalanceSummary{
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		Balance:      totalIncome.Sub(totalExpense),
	}
}

// ResetIncome zeroes every income amount in the period. The rows stay.
func (s *LedgerService) ResetIncome(ctx context.Context, userID, month string, year int) error {
	if err := validatePeriod(month, year); err != nil {
		return err
	}

	n, err := s.ledger.ZeroIncomeByPeriod(ctx, userID, month, year)
	if err != nil {
		return fmt.Errorf("service/ledger: resetting income: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundMessage(fmt.Sprintf("no income record found for %s %d", month, year))
	}

	s.logger.Info("income reset",
		slog.String("userID", userID),
		slog.String("month", month),
		slog.Int("year", year),
	)
	return nil
}

// ResetExpenses deletes every expense row in the period.
func (s *LedgerService) ResetExpenses(ctx context.Context, userID, month string, year int) error {
	if err := validatePeriod(month, year); err != nil {
		return err
	}

	n, err := s.ledger.DeleteExpensesByPeriod(ctx, userID, month, year)
	if err != nil {
		return fmt.Errorf("service/ledger: resetting expenses: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundMessage(fmt.Sprintf("no expenses found for %s %d", month, year))
	}

	s.logger.Info("expenses reset",
		slog.String("userID", userID),
		slog.String("month", month),
		slog.Int("year", year),
	)
	return nil
}

// SubmitFeedback stores a feedback message and relays it to every admin
// by email.
//
// The relay is best-effort and happens after the row is committed: a
// failure for one admin is logged and the loop keeps going; no mail
// failure ever fails the request.
func (s *LedgerService) SubmitFeedback(ctx context.Context, userID, message string) (*model.Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.ValidationFailed("message", "feedback message is required")
	}
	if len(message) > MaxFeedbackLength {
		return nil, apperror.ValidationFailed("message",
			fmt.Sprintf("feedback must be %d characters or fewer", MaxFeedbackLength))
	}

	fb := &model.Feedback{
		UserID:  userID,
		Message: message,
	}
	if err := s.feedback.CreateFeedback(ctx, fb); err != nil {
		return nil, fmt.Errorf("service/ledger: creating feedback: %w", err)
	}

	s.notifyAdmins(ctx, userID, message)

	return fb, nil
}

func (s *LedgerService) notifyAdmins(ctx context.Context, fromID, message string) {
	from, err := s.users.GetByID(ctx, fromID)
	if err != nil {
		s.logger.Error("feedback relay: loading sender", slog.String("error", err.Error()))
		return
	}
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("feedback relay: listing admins", slog.String("error", err.Error()))
		return
	}

	for i := range users {
		admin := &users[i]
		if !admin.IsAdmin {
			continue
		}
		if err := s.mailer.SendFeedback(ctx, admin, from, message); err != nil {
			s.logger.Error("feedback relay: sending email",
				slog.String("adminID", admin.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// PeriodRecords returns the rows backing a monthly export. Income and
// expenses are both selected by the denormalized month/year fields —
// one filtering strategy for both sides.
func (s *LedgerService) PeriodRecords(ctx context.Context, userID, month string, year int) ([]model.Income, []model.Expense, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, nil, err
	}

	incomes, err := s.ledger.ListIncomeByPeriod(ctx, userID, month, year)
	if err != nil {
		return nil, nil, fmt.Errorf("service/ledger: listing income for export: %w", err)
	}
	expenses, err := s.ledger.ListExpensesByPeriod(ctx, userID, month, year)
	if err != nil {
		return nil, nil, fmt.Errorf("service/ledger: listing expenses for export: %w", err)
	}

	if len(incomes) == 0 && len(expenses) == 0 {
		return nil, nil, apperror.NotFoundMessage(fmt.Sprintf("no data available for %s %d", month, year))
	}
	return incomes, expenses, nil
}

// YearRecords returns the rows backing a yearly export.
func (s *LedgerService) YearRecords(ctx context.Context, userID string, year int) ([]model.Income, []model.Expense, error) {
	if year == 0 {
		return nil, nil, apperror.ValidationFailed("year", "please provide a year")
	}

	incomes, err := s.ledger.ListIncomeByYear(ctx, userID, year)
	if err != nil {
		return nil, nil, fmt.Errorf("service/ledger: listing income for export: %w", err)
	}
	expenses, err := s.ledger.ListExpensesByYear(ctx, userID, year)
	if err != nil {
		return nil, nil, fmt.Errorf("service/ledger: listing expenses for export: %w", err)
	}

	if len(incomes) == 0 && len(expenses) == 0 {
		return nil, nil, apperror.NotFoundMessage(fmt.Sprintf("no data available for %d", year))
	}
	return incomes, expenses, nil
}
