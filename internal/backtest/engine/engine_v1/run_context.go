package engine

import (
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/book"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/internal/utils"
	"github.com/rxtech-lab/argo-replay/internal/window"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// orderID identifies an order within a run. Keys are unique per strategy.
type orderID struct {
	strategy string
	key      string
}

// session is one execution point of the timeline.
type session struct {
	step  int
	phase types.SessionPhase
}

// before reports whether s comes strictly before other.
func (s session) before(other session) bool {
	if s.step != other.step {
		return s.step < other.step
	}

	return s.phase == types.PhaseOpen && other.phase == types.PhaseClose
}

// next returns the session after s.
func (s session) next() session {
	if s.phase == types.PhaseOpen {
		return session{step: s.step, phase: types.PhaseClose}
	}

	return session{step: s.step + 1, phase: types.PhaseOpen}
}

// pendingOrder is an order waiting in a strategy queue or the runner's pending list.
type pendingOrder struct {
	options  types.OrderOptions
	legs     []types.Leg
	record   *types.OrderRecord
	strategy int
	eligible session
	// seq is the global submission sequence, the tie break of equal priorities.
	seq             int
	cancelRequested bool
}

// runContext is the state of one run. It is only touched by the runner goroutine.
type runContext struct {
	runner         *Runner
	step           int
	phase          types.SessionPhase
	timestamp      time.Time
	books          []*book.Book
	overlays       []*window.Frame
	queues         [][]*pendingOrder
	pending        []*pendingOrder
	records        []*types.OrderRecord
	latest         map[orderID]*pendingOrder
	keySeq         []int
	submitSeq      int
	transactions   []types.Transaction
	history        []types.BookValuation
	initialValues  []types.BookValuation
	marks          []types.Mark
	stepsCompleted int
}

func newRunContext(r *Runner) *runContext {
	overlays := make([]*window.Frame, len(r.strategies))
	for i := range overlays {
		overlays[i] = r.frame.Derive()
	}

	return &runContext{
		runner:         r,
		step:           0,
		phase:          types.PhaseOpen,
		timestamp:      r.frame.Time(0),
		books:          r.newBooks(),
		overlays:       overlays,
		queues:         make([][]*pendingOrder, len(r.strategies)),
		pending:        nil,
		records:        nil,
		latest:         make(map[orderID]*pendingOrder),
		keySeq:         make([]int, len(r.strategies)),
		submitSeq:      0,
		transactions:   nil,
		history:        nil,
		initialValues:  nil,
		marks:          nil,
		stepsCompleted: 0,
	}
}

func (rc *runContext) current() session {
	return session{step: rc.step, phase: rc.phase}
}

func (rc *runContext) strategyName(index int) string {
	return rc.runner.strategies[index].Strategy.Name()
}

// book returns the named book, the first one for an empty name.
func (rc *runContext) book(name string) (*book.Book, error) {
	if name == "" {
		return rc.books[0], nil
	}

	i, ok := rc.runner.bookIndex[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownBook, "unknown book %s", name)
	}

	return rc.books[i], nil
}

// priceAt resolves an asset's reference price at (step, phase), rounded to its precision.
func (rc *runContext) priceAt(name string, step int, phase types.SessionPhase) (decimal.Decimal, types.Asset, error) {
	asset, ok := rc.runner.assetIndex[name]
	if !ok {
		return decimal.Zero, nil, errors.Newf(errors.ErrCodeUnknownAsset, "unknown asset %s", name)
	}

	price, err := asset.ReferencePrice(rc.runner.frame, step, phase)
	if err != nil {
		return decimal.Zero, asset, err
	}

	return utils.RoundPrice(price, asset.PricePrecision()), asset, nil
}

// priceFunc prices assets at the current session.
func (rc *runContext) priceFunc(step int, phase types.SessionPhase) book.PriceFunc {
	return func(name string) (decimal.Decimal, string, error) {
		price, asset, err := rc.priceAt(name, step, phase)
		if err != nil {
			return decimal.Zero, "", err
		}

		return price, asset.Denomination(), nil
	}
}

// Valuation implements types.Valuer at the current session.
func (rc *runContext) Valuation(view types.BookView) (types.BookValuation, error) {
	marked := book.New(view.Name(), view.Denomination(), view.Cash(), view.Positions())

	return marked.Valuation(rc.timestamp, rc.priceFunc(rc.step, rc.phase), rc.runner.fx)
}

// valueInitialBooks values the starting books at the first close.
func (rc *runContext) valueInitialBooks() error {
	for _, b := range rc.books {
		valuation, err := b.Valuation(rc.runner.frame.Time(0), rc.priceFunc(0, types.PhaseClose), rc.runner.fx)
		if err != nil {
			return err
		}

		rc.initialValues = append(rc.initialValues, valuation)
	}

	return nil
}

// snapshot appends every book's close valuation to the history.
func (rc *runContext) snapshot() error {
	for _, b := range rc.books {
		valuation, err := b.Valuation(rc.timestamp, rc.priceFunc(rc.step, types.PhaseClose), rc.runner.fx)
		if err != nil {
			return err
		}

		rc.history = append(rc.history, valuation)
	}

	return nil
}

// submit validates an order and puts it in the strategy's queue as CREATED.
func (rc *runContext) submit(index int, order types.Order) (string, error) {
	created, err := rc.newPending(index, order)
	if err != nil {
		return "", err
	}

	rc.queues[index] = append(rc.queues[index], created)

	return created.record.Key, nil
}

// newPending validates an order, assigns its key and records it as CREATED.
func (rc *runContext) newPending(index int, order types.Order) (*pendingOrder, error) {
	if order == nil {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "nil order")
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	options := order.Options()
	legs := order.OrderLegs()

	b, err := rc.book(options.Book)
	if err != nil {
		return nil, err
	}

	for _, leg := range legs {
		if _, ok := rc.runner.assetIndex[leg.Asset]; !ok {
			return nil, errors.Newf(errors.ErrCodeUnknownAsset, "order targets unknown asset %s", leg.Asset)
		}
	}

	name := rc.strategyName(index)

	key := options.Key
	if key == "" {
		rc.keySeq[index]++
		key = fmt.Sprintf("%s-%d", name, rc.keySeq[index])
	} else if previous, ok := rc.latest[orderID{strategy: name, key: key}]; ok && previous.record.Status.IsTerminal() {
		return nil, errors.Newf(errors.ErrCodeInvalidOrder, "order key %s was already used by a %s order", key, previous.record.Status)
	}

	options.Key = key
	options.Book = b.Name()

	record := &types.OrderRecord{
		Key:            key,
		Strategy:       name,
		Book:           b.Name(),
		Kind:           order.Kind(),
		Legs:           legs,
		Priority:       options.Priority,
		Label:          options.Label,
		SubmittedAt:    rc.timestamp,
		SubmittedPhase: rc.phase,
		Status:         types.OrderStatusCreated,
	}

	rc.submitSeq++
	pending := &pendingOrder{
		options:  options,
		legs:     legs,
		record:   record,
		strategy: index,
		seq:      rc.submitSeq,
	}

	rc.records = append(rc.records, record)

	return pending, nil
}

// drain moves a strategy's queue into the pending list. Orders from on_open wait for
// the next open unless flagged for the close of the same step. Orders from on_close
// wait for the next open, or the next close when flagged.
func (rc *runContext) drain(index int) {
	for _, order := range rc.queues[index] {
		eligible := session{step: rc.step + 1, phase: types.PhaseOpen}
		if order.options.ExecuteAtClose {
			if rc.phase == types.PhaseOpen {
				eligible = session{step: rc.step, phase: types.PhaseClose}
			} else {
				eligible = session{step: rc.step + 1, phase: types.PhaseClose}
			}
		}

		rc.enqueue(order, eligible)
	}

	rc.queues[index] = nil
}

// enqueue makes an order PENDING. A pending order of the same strategy under the same
// key is cancelled as replaced.
func (rc *runContext) enqueue(order *pendingOrder, eligible session) {
	id := orderID{strategy: order.record.Strategy, key: order.record.Key}

	if previous, ok := rc.latest[id]; ok && previous.record.Status == types.OrderStatusPending {
		rc.resolve(previous, types.OrderStatusCancelled, types.OrderReasonReplaced)
		rc.removePending(previous)
	}

	order.eligible = eligible
	order.record.Status = types.OrderStatusPending
	rc.latest[id] = order
	rc.pending = append(rc.pending, order)

	rc.runner.log.Debug("Order pending",
		zap.String("order", order.record.Key),
		zap.String("strategy", order.record.Strategy),
		zap.Int("eligible_step", eligible.step),
		zap.String("eligible_phase", string(eligible.phase)),
	)
}

func (rc *runContext) removePending(order *pendingOrder) {
	for i, pending := range rc.pending {
		if pending == order {
			rc.pending = append(rc.pending[:i], rc.pending[i+1:]...)

			return
		}
	}
}

// resolve moves a pending order to a terminal status.
func (rc *runContext) resolve(order *pendingOrder, status types.OrderStatus, reason string) {
	if !order.record.Status.CanTransitionTo(status) {
		return
	}

	order.record.Status = status
	order.record.Reason = reason
	order.record.ResolvedAt = rc.timestamp
	order.record.ResolvedPhase = rc.phase

	rc.runner.log.Debug("Order resolved",
		zap.String("order", order.record.Key),
		zap.String("strategy", order.record.Strategy),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)

	if rc.runner.callbacks.OnOrderResolved != nil {
		(*rc.runner.callbacks.OnOrderResolved)(*order.record)
	}
}

// expireRemaining expires what is still pending when the timeline ends.
func (rc *runContext) expireRemaining() {
	for _, order := range rc.pending {
		rc.resolve(order, types.OrderStatusExpired, types.OrderReasonRunEnded)
	}

	rc.pending = nil
}

func (rc *runContext) mark(index int, asset string, signal types.SignalType, reason string) {
	rc.marks = append(rc.marks, types.Mark{
		Timestamp: rc.timestamp,
		Phase:     rc.phase,
		Strategy:  rc.strategyName(index),
		Asset:     asset,
		Signal:    signal,
		Reason:    reason,
		Color:     types.ColorFor(signal),
		Shape:     types.MarkShapeCircle,
	})
}

func bookState(b *book.Book, state book.State) types.BookState {
	return types.BookState{
		Book:         b.Name(),
		Denomination: b.Denomination(),
		Cash:         state.Cash,
		Positions:    state.Positions,
	}
}

// result copies the accumulated histories.
func (rc *runContext) result() *types.RunResult {
	r := rc.runner

	result := &types.RunResult{
		RunID:             r.runID,
		StartTime:         r.frame.Time(0),
		EndTime:           r.frame.Time(r.frame.Len() - 1),
		StepsCompleted:    rc.stepsCompleted,
		TotalSteps:        r.frame.Len(),
		Strategies:        make([]string, len(r.strategies)),
		InitialBooks:      make([]types.BookState, len(rc.books)),
		FinalBooks:        make([]types.BookState, len(rc.books)),
		InitialValuations: append([]types.BookValuation(nil), rc.initialValues...),
		Transactions:      append([]types.Transaction(nil), rc.transactions...),
		BookHistory:       append([]types.BookValuation(nil), rc.history...),
		Orders:            make([]types.OrderRecord, len(rc.records)),
		Marks:             append([]types.Mark(nil), rc.marks...),
	}

	for i := range r.strategies {
		result.Strategies[i] = rc.strategyName(i)
	}

	for i, b := range rc.books {
		result.InitialBooks[i] = bookState(b, b.InitialState())
		result.FinalBooks[i] = bookState(b, b.State())
	}

	for i, record := range rc.records {
		result.Orders[i] = *record
	}

	return result
}
