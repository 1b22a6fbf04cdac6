package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
)

// DataSource yields long-format market data rows: one row per symbol and timestamp,
// every numeric column of the source as a field.
type DataSource interface {
	// Initialize points the data source at a parquet or csv file
	Initialize(path string) error
	// ReadAll yields the rows between start and end, both inclusive, ordered by time then symbol
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool)
	// Count returns the number of rows between start and end
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Symbols returns the distinct symbols, sorted
	Symbols() ([]string, error)
	// Close releases any resources
	Close() error
}

// LoadFrame reads every row between start and end into a frame.
func LoadFrame(ds DataSource, start optional.Option[time.Time], end optional.Option[time.Time]) (*window.Frame, error) {
	var rows []types.MarketData

	for row, err := range ds.ReadAll(start, end) {
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read market data", err)
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errors.New(errors.ErrCodeNoDataFound, "no market data in the requested range")
	}

	return window.FromMarketData(rows)
}

func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}
