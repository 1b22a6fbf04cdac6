// Package book is the portfolio ledger. Applying a transaction is the only way a
// book's cash or positions change.
package book

import (
	"sort"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/fx"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// State is the reconcilable content of a book.
type State struct {
	Cash      decimal.Decimal
	Positions map[string]decimal.Decimal
}

// Equal compares two states value by value. Zero positions and absent positions are equal.
func (s State) Equal(other State) bool {
	if !s.Cash.Equal(other.Cash) {
		return false
	}

	for asset, quantity := range s.Positions {
		if !quantity.Equal(other.Positions[asset]) {
			return false
		}
	}

	for asset, quantity := range other.Positions {
		if !quantity.Equal(s.Positions[asset]) {
			return false
		}
	}

	return true
}

// Book tracks the cash and signed positions of one accounting unit.
type Book struct {
	name         string
	denomination string
	cash         decimal.Decimal
	positions    map[string]decimal.Decimal
	initial      State
}

// New creates a book with a starting cash seed and optional starting positions.
func New(name, denomination string, cash decimal.Decimal, positions map[string]decimal.Decimal) *Book {
	owned := copyPositions(positions)

	return &Book{
		name:         name,
		denomination: denomination,
		cash:         cash,
		positions:    owned,
		initial:      State{Cash: cash, Positions: copyPositions(owned)},
	}
}

func copyPositions(positions map[string]decimal.Decimal) map[string]decimal.Decimal {
	owned := make(map[string]decimal.Decimal, len(positions))
	for asset, quantity := range positions {
		if !quantity.IsZero() {
			owned[asset] = quantity
		}
	}

	return owned
}

func (b *Book) Name() string {
	return b.name
}

func (b *Book) Denomination() string {
	return b.denomination
}

func (b *Book) Cash() decimal.Decimal {
	return b.cash
}

// Position returns the signed quantity held, zero if none.
func (b *Book) Position(asset string) decimal.Decimal {
	return b.positions[asset]
}

// Positions returns a copy of the non-zero positions.
func (b *Book) Positions() map[string]decimal.Decimal {
	return copyPositions(b.positions)
}

// Assets lists held assets in name order.
func (b *Book) Assets() []string {
	assets := make([]string, 0, len(b.positions))
	for asset := range b.positions {
		assets = append(assets, asset)
	}

	sort.Strings(assets)

	return assets
}

// State returns a copy of the current cash and positions.
func (b *Book) State() State {
	return State{Cash: b.cash, Positions: b.Positions()}
}

// InitialState returns the state the book was created with.
func (b *Book) InitialState() State {
	return State{Cash: b.initial.Cash, Positions: copyPositions(b.initial.Positions)}
}

// Clone returns an independent copy, used to project an order before committing it.
func (b *Book) Clone() *Book {
	return &Book{
		name:         b.name,
		denomination: b.denomination,
		cash:         b.cash,
		positions:    copyPositions(b.positions),
		initial:      b.InitialState(),
	}
}

// Apply books a transaction: cash changes by its cash amount and the position by its quantity.
func (b *Book) Apply(tx types.Transaction) error {
	if tx.Book != b.name {
		return errors.Newf(errors.ErrCodeOrderFailed, "transaction for book %s applied to book %s", tx.Book, b.name)
	}

	b.cash = b.cash.Add(tx.CashAmount)

	position := b.positions[tx.Asset].Add(tx.Quantity)
	if position.IsZero() {
		delete(b.positions, tx.Asset)
	} else {
		b.positions[tx.Asset] = position
	}

	return nil
}

// PriceFunc resolves the reference price and its currency for an asset at the valuation time.
type PriceFunc func(asset string) (price decimal.Decimal, denomination string, err error)

// Valuation marks the book to market: cash plus every held position at its reference
// price, converted to the book's denomination.
func (b *Book) Valuation(timestamp time.Time, price PriceFunc, converter fx.Provider) (types.BookValuation, error) {
	valuation := types.BookValuation{
		Timestamp:    timestamp,
		Book:         b.name,
		Denomination: b.denomination,
		Cash:         b.cash,
		Holdings:     make(map[string]decimal.Decimal, len(b.positions)),
		Total:        b.cash,
	}

	for _, asset := range b.Assets() {
		p, denomination, err := price(asset)
		if err != nil {
			return types.BookValuation{}, err
		}

		value, err := converter.Convert(b.positions[asset].Mul(p), denomination, b.denomination, timestamp)
		if err != nil {
			return types.BookValuation{}, err
		}

		valuation.Holdings[asset] = value
		valuation.Total = valuation.Total.Add(value)
	}

	return valuation, nil
}

// Replay rebuilds a book from its initial state and a transaction history. Transactions
// of other books are skipped.
func Replay(name, denomination string, initial State, transactions []types.Transaction) (*Book, error) {
	replayed := New(name, denomination, initial.Cash, initial.Positions)

	for _, tx := range transactions {
		if tx.Book != name {
			continue
		}

		if err := replayed.Apply(tx); err != nil {
			return nil, err
		}
	}

	return replayed, nil
}
