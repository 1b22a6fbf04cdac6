// Package strategy defines the contract between the runner and user trading logic.
package strategy

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
)

// Strategy is user trading logic. The runner calls Init once, then OnOpen and
// OnClose for every timestep. A returned error, or a panic, aborts the run.
type Strategy interface {
	// Name is unique within a run and prefixes generated order keys.
	Name() string
	// Init sees the whole data window and may attach derived columns. It cannot submit orders.
	Init(ctx InitContext) error
	// OnOpen sees data known at the open of the current step.
	OnOpen(ctx StepContext) error
	// OnClose sees data through the close of the current step, after this step's
	// open executions.
	OnClose(ctx StepContext) error
}

// InitContext is what a strategy may use before the timeline starts.
type InitContext interface {
	// Data is the strategy's private overlay of the full window. Columns set on it are
	// visible to this strategy only. The frame and its series panic with ErrCodeLookAhead
	// if used after Init returns.
	Data() *window.Frame
	Params() Params
	Assets() []types.Asset
	// Book returns a read-only view of a book. An empty name is the first book.
	Book(name string) (types.BookView, error)
	Logger() *logger.Logger
}

// StepContext is what a strategy may use during on_open and on_close.
type StepContext interface {
	Timestamp() time.Time
	Phase() types.SessionPhase
	// Data is the window restricted to what is known at this phase.
	Data() *window.View
	Params() Params
	Asset(name string) (types.Asset, bool)
	// Submit queues an order and returns its key. The order becomes pending when the
	// callback returns.
	Submit(order types.Order) (string, error)
	// Cancel withdraws one of this strategy's pending orders before its next session.
	Cancel(key string) error
	// Book returns a read-only view of a book. An empty name is the first book.
	Book(name string) (types.BookView, error)
	// OrderStatus returns the record of one of this strategy's orders.
	OrderStatus(key string) optional.Option[types.OrderRecord]
	// Mark leaves an annotation in the run result.
	Mark(asset string, signal types.SignalType, reason string)
	Logger() *logger.Logger
}
