package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups income and expense records. Categories are created
// lazily the first time a ledger write mentions a name, and the pair
// (UserID, Name) is unique — enforced by the schema, so two concurrent
// writes with the same name cannot produce duplicates.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"-"`
	Name   string `json:"name"`
}

// Income is a single income record owned by one user.
//
// WHY decimal.Decimal FOR Amount?
// Currency amounts must not accumulate float rounding error. Amounts are
// carried as exact decimals end to end and stored as decimal strings;
// summation happens in decimal space too.
//
// Month and Year are denormalized from Date (English month name and
// four-digit year) so period queries are simple equality filters. They
// are recomputed from Date on every write — create and update — so they
// can never drift from it.
type Income struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	CategoryID string          `json:"-"`
	Category   string          `json:"category"` // denormalized name, filled on reads
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Month      string          `json:"month"`
	Year       int             `json:"year"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Expense is a single expense record. Identical to Income plus a
// required free-text description.
type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	CategoryID  string          `json:"-"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Feedback is a message a user sent to the administrators. Immutable
// once created; removed only when the owning account is deleted.
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// DateFormat is the single accepted calendar-date layout for ledger
// writes and the layout used when rendering dates back out.
const DateFormat = "2006-01-02"

// PeriodOf decomposes a date into the denormalized (month, year) pair
// stored alongside every ledger row.
func PeriodOf(date time.Time) (month string, year int) {
	return date.Month().String(), date.Year()
}
