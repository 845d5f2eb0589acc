package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/TAPV-Techworks/BudgetBee/internal/apperror"
	"github.com/TAPV-Techworks/BudgetBee/internal/model"
)

// In-memory fakes for the repository interfaces. Deliberately simple:
// maps and slices, no locking — service tests are single-goroutine.

type fakeUserRepo struct {
	users map[string]*model.User

	// error injection
	createErr error
	listErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperror.Duplicate("email", "an account with this email already exists")
		}
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFoundMessage("no account found with this email address")
}

func (r *fakeUserRepo) List(_ context.Context) ([]model.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) SetOTP(_ context.Context, id, otpHash string, issuedAt time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.OTPHash = otpHash
	u.OTPCreatedAt = issuedAt
	return nil
}

func (r *fakeUserRepo) ClearOTP(_ context.Context, id string) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.OTPHash = ""
	u.OTPCreatedAt = time.Time{}
	return nil
}

func (r *fakeUserRepo) IsAdmin(_ context.Context, id string) (bool, error) {
	u, ok := r.users[id]
	if !ok {
		return false, apperror.NotFound("user", id)
	}
	return u.IsAdmin, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(r.users, id)
	return nil
}

type fakeLedgerRepo struct {
	categories map[string]*model.Category // key owner+"/"+name
	income     map[string]*model.Income
	expenses   map[string]*model.Expense
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		categories: make(map[string]*model.Category),
		income:     make(map[string]*model.Income),
		expenses:   make(map[string]*model.Expense),
	}
}

func (r *fakeLedgerRepo) ResolveCategory(_ context.Context, userID, name string) (*model.Category, error) {
	key := userID + "/" + name
	if c, ok := r.categories[key]; ok {
		cp := *c
		return &cp, nil
	}
	c := &model.Category{ID: xid.New().String(), UserID: userID, Name: name}
	r.categories[key] = c
	cp := *c
	return &cp, nil
}

func (r *fakeLedgerRepo) CreateIncome(_ context.Context, inc *model.Income) error {
	inc.ID = xid.New().String()
	inc.CreatedAt = time.Now()
	cp := *inc
	r.income[inc.ID] = &cp
	return nil
}

func (r *fakeLedgerRepo) ListIncomeByPeriod(_ context.Context, userID, month string, year int) ([]model.Income, error) {
	var out []model.Income
	for _, inc := range r.income {
		if inc.UserID == userID && inc.Month == month && inc.Year == year {
			out = append(out, *inc)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListIncomeByYear(_ context.Context, userID string, year int) ([]model.Income, error) {
	var out []model.Income
	for _, inc := range r.income {
		if inc.UserID == userID && inc.Year == year {
			out = append(out, *inc)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) UpdateIncome(_ context.Context, inc *model.Income) error {
	existing, ok := r.income[inc.ID]
	if !ok || existing.UserID != inc.UserID {
		return apperror.NotFound("income record", inc.ID)
	}
	inc.CreatedAt = existing.CreatedAt
	cp := *inc
	r.income[inc.ID] = &cp
	return nil
}

func (r *fakeLedgerRepo) DeleteIncome(_ context.Context, userID, id string) error {
	existing, ok := r.income[id]
	if !ok || existing.UserID != userID {
		return apperror.NotFound("income record", id)
	}
	delete(r.income, id)
	return nil
}

func (r *fakeLedgerRepo) ZeroIncomeByPeriod(_ context.Context, userID, month string, year int) (int64, error) {
	var n int64
	for _, inc := range r.income {
		if inc.UserID == userID && inc.Month == month && inc.Year == year {
			inc.Amount = inc.Amount.Sub(inc.Amount)
			n++
		}
	}
	return n, nil
}

func (r *fakeLedgerRepo) CreateExpense(_ context.Context, exp *model.Expense) error {
	exp.ID = xid.New().String()
	exp.CreatedAt = time.Now()
	cp := *exp
	r.expenses[exp.ID] = &cp
	return nil
}

func (r *fakeLedgerRepo) ListExpensesByPeriod(_ context.Context, userID, month string, year int) ([]model.Expense, error) {
	var out []model.Expense
	for _, exp := range r.expenses {
		if exp.UserID == userID && exp.Month == month && exp.Year == year {
			out = append(out, *exp)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ListExpensesByYear(_ context.Context, userID string, year int) ([]model.Expense, error) {
	var out []model.Expense
	for _, exp := range r.expenses {
		if exp.UserID == userID && exp.Year == year {
			out = append(out, *exp)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) UpdateExpense(_ context.Context, exp *model.Expense) error {
	existing, ok := r.expenses[exp.ID]
	if !ok || existing.UserID != exp.UserID {
		return apperror.NotFound("expense record", exp.ID)
	}
	exp.CreatedAt = existing.CreatedAt
	cp := *exp
	r.expenses[exp.ID] = &cp
	return nil
}

func (r *fakeLedgerRepo) DeleteExpense(_ context.Context, userID, id string) error {
	existing, ok := r.expenses[id]
	if !ok || existing.UserID != userID {
		return apperror.NotFound("expense record", id)
	}
	delete(r.expenses, id)
	return nil
}

func (r *fakeLedgerRepo) DeleteExpensesByPeriod(_ context.Context, userID, month string, year int) (int64, error) {
	var n int64
	for id, exp := range r.expenses {
		if exp.UserID == userID && exp.Month == month && exp.Year == year {
			delete(r.expenses, id)
			n++
		}
	}
	return n, nil
}

type fakeFeedbackRepo struct {
	rows []*model.Feedback
	err  error
}

func (r *fakeFeedbackRepo) CreateFeedback(_ context.Context, fb *model.Feedback) error {
	if r.err != nil {
		return r.err
	}
	fb.ID = xid.New().String()
	fb.CreatedAt = time.Now()
	cp := *fb
	r.rows = append(r.rows, &cp)
	return nil
}

// fakeMailer records every send and can be told to fail.
type fakeMailer struct {
	otpSends      []sentOTP
	feedbackSends []sentFeedback
	failFor       map[string]bool // recipient email -> fail
}

type sentOTP struct {
	email, name, code string
}

type sentFeedback struct {
	adminEmail, fromEmail, message string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: make(map[string]bool)}
}

func (m *fakeMailer) SendOTP(_ context.Context, toEmail, toName, code string) error {
	if m.failFor[toEmail] {
		return fmt.Errorf("smtp provider unavailable")
	}
	m.otpSends = append(m.otpSends, sentOTP{email: toEmail, name: toName, code: code})
	return nil
}

func (m *fakeMailer) SendFeedback(_ context.Context, admin *model.User, from *model.User, message string) error {
	if m.failFor[admin.Email] {
		return fmt.Errorf("smtp provider unavailable")
	}
	m.feedbackSends = append(m.feedbackSends, sentFeedback{
		adminEmail: admin.Email,
		fromEmail:  from.Email,
		message:    message,
	})
	return nil
}
