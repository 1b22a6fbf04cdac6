// Package window holds the time-indexed market data table strategies read from.
//
// A Frame is built once per run and never mutated. Strategies get a derived
// overlay during init, where they may attach computed columns, and a
// phase-restricted View for every callback after that.
package window

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// Column identifies a series in the frame.
type Column struct {
	Asset string
	Field string
}

func (c Column) String() string {
	return c.Asset + "." + c.Field
}

// Frame is a table indexed by strictly increasing timestamps with one column per
// (asset, field). Columns are shared between a frame and the overlays derived from it.
type Frame struct {
	index   []time.Time
	columns map[Column][]decimal.NullDecimal
	parent  *Frame
	// sealed is set on handles only. Once true, every access panics.
	sealed *atomic.Bool
}

// NewFrame creates an empty frame over index. The index must be strictly increasing.
func NewFrame(index []time.Time) (*Frame, error) {
	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return nil, errors.Newf(errors.ErrCodeInvalidIndex, "frame index is not strictly increasing at %s",
				index[i].Format(time.RFC3339))
		}
	}

	owned := make([]time.Time, len(index))
	copy(owned, index)

	return &Frame{
		index:   owned,
		columns: make(map[Column][]decimal.NullDecimal),
	}, nil
}

// FromMarketData builds a frame from long-format rows. The index is the sorted
// union of every row's timestamp; cells without a row stay null.
func FromMarketData(rows []types.MarketData) (*Frame, error) {
	seen := make(map[int64]time.Time)
	for _, row := range rows {
		seen[row.Time.UnixNano()] = row.Time
	}

	index := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		index = append(index, t)
	}

	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	frame, err := NewFrame(index)
	if err != nil {
		return nil, err
	}

	position := make(map[int64]int, len(index))
	for i, t := range index {
		position[t.UnixNano()] = i
	}

	for _, row := range rows {
		i := position[row.Time.UnixNano()]
		for field, value := range row.Fields {
			column := Column{Asset: row.Symbol, Field: field}

			values, ok := frame.columns[column]
			if !ok {
				values = make([]decimal.NullDecimal, len(index))
				frame.columns[column] = values
			}

			if values[i].Valid {
				return nil, errors.Newf(errors.ErrCodeInvalidIndex, "duplicate value for %s at %s",
					column, row.Time.Format(time.RFC3339))
			}

			values[i] = value
		}
	}

	return frame, nil
}

// Handle returns a frame sharing f's index, columns and ancestors that can be sealed
// without affecting f. Columns set through the handle land on f.
func (f *Frame) Handle() *Frame {
	return &Frame{
		index:   f.index,
		columns: f.columns,
		parent:  f.parent,
		sealed:  new(atomic.Bool),
	}
}

// Seal makes every later use of a handle, and of the series read through it, panic
// with ErrCodeLookAhead. It is a no-op on frames not obtained from Handle.
func (f *Frame) Seal() {
	if f.sealed != nil {
		f.sealed.Store(true)
	}
}

func (f *Frame) checkSealed() {
	if f.sealed != nil && f.sealed.Load() {
		panic(errors.New(errors.ErrCodeLookAhead, "frame handle used after init returned"))
	}
}

// Len returns the number of timesteps.
func (f *Frame) Len() int {
	f.checkSealed()

	return len(f.index)
}

// Time returns the timestamp of row i.
func (f *Frame) Time(i int) time.Time {
	f.checkSealed()

	return f.index[i]
}

// Index returns a copy of the timestamps.
func (f *Frame) Index() []time.Time {
	f.checkSealed()

	index := make([]time.Time, len(f.index))
	copy(index, f.index)

	return index
}

// SetColumn adds or shadows a column. Values are copied. On a derived frame the
// parent is left untouched.
func (f *Frame) SetColumn(asset, field string, values []decimal.NullDecimal) error {
	f.checkSealed()

	if len(values) != len(f.index) {
		return errors.Newf(errors.ErrCodeInvalidIndex, "column %s.%s has %d values, frame has %d rows",
			asset, field, len(values), len(f.index))
	}

	owned := make([]decimal.NullDecimal, len(values))
	copy(owned, values)
	f.columns[Column{Asset: asset, Field: field}] = owned

	return nil
}

// Derive returns an overlay that shares this frame's index and columns. Columns set on
// the overlay are invisible to the parent and to sibling overlays.
func (f *Frame) Derive() *Frame {
	f.checkSealed()

	return &Frame{
		index:   f.index,
		columns: make(map[Column][]decimal.NullDecimal),
		parent:  f,
	}
}

func (f *Frame) lookup(column Column) ([]decimal.NullDecimal, bool) {
	for frame := f; frame != nil; frame = frame.parent {
		if values, ok := frame.columns[column]; ok {
			return values, true
		}
	}

	return nil, false
}

// Has reports whether the column exists on this frame or an ancestor.
func (f *Frame) Has(asset, field string) bool {
	f.checkSealed()

	_, ok := f.lookup(Column{Asset: asset, Field: field})

	return ok
}

// Value returns the cell at row i, invalid if the column or row does not exist.
func (f *Frame) Value(asset, field string, i int) decimal.NullDecimal {
	f.checkSealed()

	values, ok := f.lookup(Column{Asset: asset, Field: field})
	if !ok || i < 0 || i >= len(values) {
		return decimal.NullDecimal{}
	}

	return values[i]
}

// Series returns the whole column.
func (f *Frame) Series(asset, field string) (Series, bool) {
	f.checkSealed()

	values, ok := f.lookup(Column{Asset: asset, Field: field})
	if !ok {
		return Series{}, false
	}

	return Series{values: values, length: len(values), sealed: f.sealed}, true
}

// Columns lists every visible column sorted by asset then field.
func (f *Frame) Columns() []Column {
	f.checkSealed()

	set := make(map[Column]struct{})
	for frame := f; frame != nil; frame = frame.parent {
		for column := range frame.columns {
			set[column] = struct{}{}
		}
	}

	columns := make([]Column, 0, len(set))
	for column := range set {
		columns = append(columns, column)
	}

	sort.Slice(columns, func(i, j int) bool {
		if columns[i].Asset != columns[j].Asset {
			return columns[i].Asset < columns[j].Asset
		}

		return columns[i].Field < columns[j].Field
	})

	return columns
}

// Slice returns a frame restricted to the rows with start <= t <= end. A zero bound is open.
func (f *Frame) Slice(start, end time.Time) (*Frame, error) {
	f.checkSealed()

	from := sort.Search(len(f.index), func(i int) bool { return start.IsZero() || !f.index[i].Before(start) })
	to := sort.Search(len(f.index), func(i int) bool { return !end.IsZero() && f.index[i].After(end) })

	if from >= to {
		return nil, errors.New(errors.ErrCodeNoDataFound, "no timesteps within the requested time range")
	}

	sliced := &Frame{
		index:   f.index[from:to],
		columns: make(map[Column][]decimal.NullDecimal),
	}

	for _, column := range f.Columns() {
		values, _ := f.lookup(column)
		sliced.columns[column] = values[from:to]
	}

	return sliced, nil
}

// ValidateAssets checks that every required field of every asset is a column.
func (f *Frame) ValidateAssets(assets []types.Asset) error {
	f.checkSealed()

	for _, asset := range assets {
		for _, field := range asset.RequiredFields() {
			if !f.Has(asset.Name(), field) {
				return errors.Newf(errors.ErrCodeInvalidConfiguration, "data has no column %s.%s required by asset %s",
					asset.Name(), field, asset.Name())
			}
		}
	}

	return nil
}
