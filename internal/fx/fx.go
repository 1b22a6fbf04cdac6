// Package fx converts amounts between currencies.
package fx

import (
	"time"

	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// Provider converts an amount from one currency to another at a point in time.
type Provider interface {
	Convert(amount decimal.Decimal, from, to string, timestamp time.Time) (decimal.Decimal, error)
	// CanConvert reports whether a rate between the two currencies is known.
	CanConvert(from, to string) bool
}

// Identity only converts a currency to itself.
type Identity struct{}

// NewIdentity returns a provider for single-currency runs.
func NewIdentity() Provider {
	return Identity{}
}

func (Identity) Convert(amount decimal.Decimal, from, to string, timestamp time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	return decimal.Zero, errors.Newf(errors.ErrCodeFXRateMissing, "no rate from %s to %s at %s",
		from, to, timestamp.Format(time.RFC3339))
}

func (Identity) CanConvert(from, to string) bool {
	return from == to
}

// Rate is one direct quote: 1 From = Rate To.
type Rate struct {
	From string          `yaml:"from" json:"from" validate:"required"`
	To   string          `yaml:"to" json:"to" validate:"required"`
	Rate decimal.Decimal `yaml:"rate" json:"rate" jsonschema:"type=string"`
}

type pair struct {
	from string
	to   string
}

// quote is a configured rate looked up in either direction. Inverted quotes divide.
type quote struct {
	rate     decimal.Decimal
	inverted bool
}

// StaticRates converts with fixed rates. A quote is also used inverted, by dividing
// through the quoted rate, so a round trip through a pair returns the original amount.
type StaticRates struct {
	rates map[pair]quote
}

// NewStaticRates builds a rate table. Rates must be positive and quoted at most once per pair.
func NewStaticRates(rates []Rate) (*StaticRates, error) {
	table := make(map[pair]quote, len(rates)*2)

	for _, rate := range rates {
		if rate.From == rate.To {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "rate from %s to itself", rate.From)
		}

		if !rate.Rate.IsPositive() {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "rate %s/%s must be positive", rate.From, rate.To)
		}

		direct := pair{from: rate.From, to: rate.To}
		if _, ok := table[direct]; ok {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "rate %s/%s quoted more than once", rate.From, rate.To)
		}

		table[direct] = quote{rate: rate.Rate}
		table[pair{from: rate.To, to: rate.From}] = quote{rate: rate.Rate, inverted: true}
	}

	return &StaticRates{rates: table}, nil
}

// Convert multiplies by a direct quote and divides by an inverted one. Division rounds at
// decimal.DivisionPrecision only when the quotient does not terminate.
func (s *StaticRates) Convert(amount decimal.Decimal, from, to string, timestamp time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	q, ok := s.rates[pair{from: from, to: to}]
	if !ok {
		return decimal.Zero, errors.Newf(errors.ErrCodeFXRateMissing, "no rate from %s to %s at %s",
			from, to, timestamp.Format(time.RFC3339))
	}

	if q.inverted {
		return amount.Div(q.rate), nil
	}

	return amount.Mul(q.rate), nil
}

func (s *StaticRates) CanConvert(from, to string) bool {
	if from == to {
		return true
	}

	_, ok := s.rates[pair{from: from, to: to}]

	return ok
}
