package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// HookDecision is the outcome of a pre-trade check.
type HookDecision string

const (
	// HookProceed lets the order continue to the next check or to commit.
	HookProceed HookDecision = "proceed"
	// HookReject rejects the order.
	HookReject HookDecision = "reject"
	// HookDefer keeps the order pending for the next session, subject to its validity.
	HookDefer HookDecision = "defer"
	// HookCancel cancels the order.
	HookCancel HookDecision = "cancel"
)

// BookView is a read-only view of a book.
type BookView interface {
	Name() string
	Denomination() string
	Cash() decimal.Decimal
	Position(asset string) decimal.Decimal
	// Positions returns a copy of every non-zero position.
	Positions() map[string]decimal.Decimal
}

// Fill is a resolved, not yet committed, leg of an order.
type Fill struct {
	Leg          int
	Asset        string
	Quantity     decimal.Decimal
	Price        decimal.Decimal
	Denomination string
	// Fee is charged in the book's denomination.
	Fee decimal.Decimal
	// CashAmount is the signed change to the book's cash, fee included.
	CashAmount decimal.Decimal
}

// Valuer values a book at the session being executed.
type Valuer interface {
	Valuation(book BookView) (BookValuation, error)
}

// HookContext is everything a pre-trade check may look at.
type HookContext struct {
	Timestamp time.Time
	Phase     SessionPhase
	OrderKey  string
	Strategy  string
	// Before is the book as of the immediately prior execution.
	Before BookView
	// After is the book with every fill of the order applied.
	After BookView
	// Fills are the resolved legs of the order.
	Fills []Fill
	// Valuer marks a book to market at this session.
	Valuer Valuer
}

// Hook is a pre-trade check. An error aborts the run.
type Hook interface {
	Name() string
	Check(ctx HookContext) (HookDecision, error)
}

type hookFunc struct {
	name string
	fn   func(ctx HookContext) (HookDecision, error)
}

// NewHook wraps fn as a named Hook.
func NewHook(name string, fn func(ctx HookContext) (HookDecision, error)) Hook {
	return &hookFunc{name: name, fn: fn}
}

func (h *hookFunc) Name() string {
	return h.name
}

func (h *hookFunc) Check(ctx HookContext) (HookDecision, error) {
	return h.fn(ctx)
}
