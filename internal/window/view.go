package window

import (
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// OpenAvailability reports whether a field of an asset is known at the open of its own timestep.
type OpenAvailability func(asset, field string) bool

// AvailabilityOf builds an OpenAvailability from the run's assets. Unknown assets expose nothing.
func AvailabilityOf(assets []types.Asset) OpenAvailability {
	byName := make(map[string]types.Asset, len(assets))
	for _, asset := range assets {
		byName[asset.Name()] = asset
	}

	return func(asset, field string) bool {
		a, ok := byName[asset]

		return ok && a.AvailableAtOpen(field)
	}
}

// View is a read-only window over rows 0..step of a frame. During the open phase,
// row step only exposes fields available at open.
type View struct {
	frame     *Frame
	step      int
	phase     types.SessionPhase
	available OpenAvailability
}

// NewView creates the window a strategy sees at (step, phase).
func NewView(frame *Frame, step int, phase types.SessionPhase, available OpenAvailability) (*View, error) {
	if step < 0 || step >= frame.Len() {
		return nil, errors.Newf(errors.ErrCodeInvalidIndex, "step %d outside frame of %d rows", step, frame.Len())
	}

	return &View{
		frame:     frame,
		step:      step,
		phase:     phase,
		available: available,
	}, nil
}

// Len is the number of visible rows.
func (v *View) Len() int {
	return v.step + 1
}

// Now is the timestamp of the current step.
func (v *View) Now() time.Time {
	return v.frame.Time(v.step)
}

// Phase is the session phase the view was taken at.
func (v *View) Phase() types.SessionPhase {
	return v.phase
}

// Time returns the timestamp of visible row i. It panics outside 0..Len()-1 like a slice would.
func (v *View) Time(i int) time.Time {
	if i < 0 || i > v.step {
		panic(errors.Newf(errors.ErrCodeLookAhead, "row %d is outside the visible window of %d rows", i, v.Len()))
	}

	return v.frame.Time(i)
}

// Index returns a copy of the visible timestamps.
func (v *View) Index() []time.Time {
	index := make([]time.Time, v.Len())
	for i := range index {
		index[i] = v.frame.Time(i)
	}

	return index
}

func (v *View) masked(asset, field string) bool {
	return v.phase == types.PhaseOpen && (v.available == nil || !v.available(asset, field))
}

// Has reports whether the column exists.
func (v *View) Has(asset, field string) bool {
	return v.frame.Has(asset, field)
}

// Value returns the cell at row i. Rows past the current step, and current-step fields
// not yet known at this phase, are returned as invalid.
func (v *View) Value(asset, field string, i int) decimal.NullDecimal {
	if i < 0 || i > v.step {
		return decimal.NullDecimal{}
	}

	if i == v.step && v.masked(asset, field) {
		return decimal.NullDecimal{}
	}

	return v.frame.Value(asset, field, i)
}

// At is Value with errors: ErrCodeLookAhead past the step, ErrCodeInvalidIndex for a
// negative row, MissingFieldError for a null or hidden cell.
func (v *View) At(asset, field string, i int) (decimal.Decimal, error) {
	if i > v.step {
		return decimal.Zero, errors.Newf(errors.ErrCodeLookAhead, "row %d is after the current step %d", i, v.step)
	}

	if i < 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidIndex, "negative row %d", i)
	}

	value := v.Value(asset, field, i)
	if !value.Valid {
		return decimal.Zero, errors.NewMissingFieldError(asset, field, v.frame.Time(i))
	}

	return value.Decimal, nil
}

// Last returns the most recent visible value of the column.
func (v *View) Last(asset, field string) (decimal.Decimal, error) {
	series := v.Series(asset, field)
	for i := series.Len() - 1; i >= 0; i-- {
		if value := series.At(i); value.Valid {
			return value.Decimal, nil
		}
	}

	return decimal.Zero, errors.NewMissingFieldError(asset, field, v.Now())
}

// Series returns the visible part of a column. Missing columns give an empty series.
func (v *View) Series(asset, field string) Series {
	values, ok := v.frame.lookup(Column{Asset: asset, Field: field})
	if !ok {
		return Series{}
	}

	return Series{
		values:   values,
		length:   v.Len(),
		maskLast: v.masked(asset, field),
	}
}

// Series is a read-only, copy-free accessor over a column prefix.
type Series struct {
	values   []decimal.NullDecimal
	length   int
	maskLast bool
	sealed   *atomic.Bool
}

// Len returns the number of rows.
func (s Series) Len() int {
	return s.length
}

// At returns row i, invalid when out of range or hidden.
func (s Series) At(i int) decimal.NullDecimal {
	if s.sealed != nil && s.sealed.Load() {
		panic(errors.New(errors.ErrCodeLookAhead, "series read after init returned"))
	}

	if i < 0 || i >= s.length {
		return decimal.NullDecimal{}
	}

	if s.maskLast && i == s.length-1 {
		return decimal.NullDecimal{}
	}

	return s.values[i]
}

// Last returns the final row.
func (s Series) Last() decimal.NullDecimal {
	return s.At(s.length - 1)
}

// Tail copies the last n rows, fewer if the series is shorter.
func (s Series) Tail(n int) []decimal.NullDecimal {
	if n > s.length {
		n = s.length
	}

	if n <= 0 {
		return nil
	}

	tail := make([]decimal.NullDecimal, n)
	for i := range tail {
		tail[i] = s.At(s.length - n + i)
	}

	return tail
}

// Values copies the whole series.
func (s Series) Values() []decimal.NullDecimal {
	return s.Tail(s.length)
}
