package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/book"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/strategy"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

// bookView hides the mutating methods of a book from strategies and hooks.
type bookView struct {
	book *book.Book
}

func (v *bookView) Name() string {
	return v.book.Name()
}

func (v *bookView) Denomination() string {
	return v.book.Denomination()
}

func (v *bookView) Cash() decimal.Decimal {
	return v.book.Cash()
}

func (v *bookView) Position(asset string) decimal.Decimal {
	return v.book.Position(asset)
}

func (v *bookView) Positions() map[string]decimal.Decimal {
	return v.book.Positions()
}

func (rc *runContext) bookView(name string) (types.BookView, error) {
	b, err := rc.book(name)
	if err != nil {
		return nil, err
	}

	return &bookView{book: b}, nil
}

func (rc *runContext) strategyLogger(index int) *logger.Logger {
	return rc.runner.log.WithStrategy(rc.strategyName(index))
}

// initContext is handed to Strategy.Init.
type initContext struct {
	rc    *runContext
	index int
	data  *window.Frame
}

func (c *initContext) Data() *window.Frame {
	return c.data
}

func (c *initContext) Params() strategy.Params {
	return c.rc.runner.strategies[c.index].Params
}

func (c *initContext) Assets() []types.Asset {
	assets := make([]types.Asset, len(c.rc.runner.assets))
	copy(assets, c.rc.runner.assets)

	return assets
}

func (c *initContext) Book(name string) (types.BookView, error) {
	return c.rc.bookView(name)
}

func (c *initContext) Logger() *logger.Logger {
	return c.rc.strategyLogger(c.index)
}

// stepContext is handed to Strategy.OnOpen and Strategy.OnClose.
type stepContext struct {
	rc    *runContext
	index int
	view  *window.View
}

func (c *stepContext) Timestamp() time.Time {
	return c.rc.timestamp
}

func (c *stepContext) Phase() types.SessionPhase {
	return c.rc.phase
}

func (c *stepContext) Data() *window.View {
	return c.view
}

func (c *stepContext) Params() strategy.Params {
	return c.rc.runner.strategies[c.index].Params
}

func (c *stepContext) Asset(name string) (types.Asset, bool) {
	asset, ok := c.rc.runner.assetIndex[name]

	return asset, ok
}

func (c *stepContext) Submit(order types.Order) (string, error) {
	return c.rc.submit(c.index, order)
}

// Cancel flags one of the strategy's orders. It is cancelled at the start of the next
// execution session.
func (c *stepContext) Cancel(key string) error {
	name := c.rc.strategyName(c.index)

	for _, order := range c.rc.queues[c.index] {
		if order.record.Key == key {
			order.cancelRequested = true

			return nil
		}
	}

	order, ok := c.rc.latest[orderID{strategy: name, key: key}]
	if !ok || order.record.Status != types.OrderStatusPending {
		return errors.Newf(errors.ErrCodeOrderNotFound, "strategy %s has no pending order %s", name, key)
	}

	order.cancelRequested = true

	return nil
}

func (c *stepContext) Book(name string) (types.BookView, error) {
	return c.rc.bookView(name)
}

func (c *stepContext) OrderStatus(key string) optional.Option[types.OrderRecord] {
	name := c.rc.strategyName(c.index)

	for i := len(c.rc.records) - 1; i >= 0; i-- {
		if record := c.rc.records[i]; record.Strategy == name && record.Key == key {
			return optional.Some(*record)
		}
	}

	return optional.None[types.OrderRecord]()
}

func (c *stepContext) Mark(asset string, signal types.SignalType, reason string) {
	c.rc.mark(c.index, asset, signal, reason)
}

func (c *stepContext) Logger() *logger.Logger {
	return c.rc.strategyLogger(c.index)
}
