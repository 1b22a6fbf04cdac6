package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the immutable record of one executed simple order or basket leg.
type Transaction struct {
	Timestamp time.Time    `yaml:"timestamp" json:"timestamp"`
	Phase     SessionPhase `yaml:"phase" json:"phase"`
	Book      string       `yaml:"book" json:"book"`
	Asset     string       `yaml:"asset" json:"asset"`
	// Quantity is signed. Positive buys.
	Quantity     decimal.Decimal `yaml:"quantity" json:"quantity"`
	Price        decimal.Decimal `yaml:"price" json:"price"`
	Denomination string          `yaml:"denomination" json:"denomination"`
	// Fee is in the book's denomination.
	Fee decimal.Decimal `yaml:"fee" json:"fee"`
	// CashAmount is the signed change to the book's cash in the book's denomination.
	CashAmount decimal.Decimal `yaml:"cash_amount" json:"cash_amount"`
	OrderKey   string          `yaml:"order_key" json:"order_key"`
	Strategy   string          `yaml:"strategy" json:"strategy"`
	// Leg is the index of the basket leg, 0 for simple orders.
	Leg int `yaml:"leg" json:"leg"`
}

// Notional returns |quantity * price| in the asset's denomination.
func (t Transaction) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price).Abs()
}

// BookValuation is a mark-to-market snapshot of a book.
type BookValuation struct {
	Timestamp    time.Time       `yaml:"timestamp" json:"timestamp"`
	Book         string          `yaml:"book" json:"book"`
	Denomination string          `yaml:"denomination" json:"denomination"`
	Cash         decimal.Decimal `yaml:"cash" json:"cash"`
	// Holdings maps each held asset to its market value in the book's denomination.
	Holdings map[string]decimal.Decimal `yaml:"holdings" json:"holdings"`
	Total    decimal.Decimal            `yaml:"total" json:"total"`
}

// GrossExposure is the sum of absolute holding values.
func (v BookValuation) GrossExposure() decimal.Decimal {
	exposure := decimal.Zero
	for _, value := range v.Holdings {
		exposure = exposure.Add(value.Abs())
	}

	return exposure
}

// OrderRecord is the audit entry of one submitted order.
type OrderRecord struct {
	Key            string       `yaml:"key" json:"key"`
	Strategy       string       `yaml:"strategy" json:"strategy"`
	Book           string       `yaml:"book" json:"book"`
	Kind           OrderKind    `yaml:"kind" json:"kind"`
	Legs           []Leg        `yaml:"legs" json:"legs"`
	Priority       int          `yaml:"priority" json:"priority"`
	Label          string       `yaml:"label" json:"label"`
	SubmittedAt    time.Time    `yaml:"submitted_at" json:"submitted_at"`
	SubmittedPhase SessionPhase `yaml:"submitted_phase" json:"submitted_phase"`
	Status         OrderStatus  `yaml:"status" json:"status"`
	// Reason explains a REJECTED, CANCELLED or EXPIRED status.
	Reason string `yaml:"reason" json:"reason"`
	// ResolvedAt is the session time of the terminal transition. Zero while pending.
	ResolvedAt    time.Time    `yaml:"resolved_at" json:"resolved_at"`
	ResolvedPhase SessionPhase `yaml:"resolved_phase" json:"resolved_phase"`
	// Attempts counts the sessions the order was evaluated in.
	Attempts int `yaml:"attempts" json:"attempts"`
}
