package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/types"
)

// InMemoryDataSource serves rows held in memory. Used by sweeps, generated data and tests.
type InMemoryDataSource struct {
	rows []types.MarketData
	mu   sync.RWMutex
}

// NewInMemoryDataSource copies rows and orders them by time then symbol.
func NewInMemoryDataSource(rows []types.MarketData) *InMemoryDataSource {
	owned := make([]types.MarketData, len(rows))
	copy(owned, rows)

	sort.SliceStable(owned, func(i, j int) bool {
		if !owned[i].Time.Equal(owned[j].Time) {
			return owned[i].Time.Before(owned[j].Time)
		}

		return owned[i].Symbol < owned[j].Symbol
	})

	return &InMemoryDataSource{
		rows: owned,
		mu:   sync.RWMutex{},
	}
}

// Initialize implements DataSource. The rows are already loaded so the path is ignored.
func (ds *InMemoryDataSource) Initialize(_ string) error {
	return nil
}

// ReadAll implements DataSource.
func (ds *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		ds.mu.RLock()
		defer ds.mu.RUnlock()

		for _, row := range ds.rows {
			if !inRange(row.Time, start, end) {
				continue
			}

			if !yield(row, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (ds *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	count := 0

	for _, row := range ds.rows {
		if inRange(row.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Symbols implements DataSource.
func (ds *InMemoryDataSource) Symbols() ([]string, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	seen := make(map[string]struct{})
	symbols := make([]string, 0)

	for _, row := range ds.rows {
		if _, ok := seen[row.Symbol]; ok {
			continue
		}

		seen[row.Symbol] = struct{}{}
		symbols = append(symbols, row.Symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements DataSource.
func (ds *InMemoryDataSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.rows = nil

	return nil
}
