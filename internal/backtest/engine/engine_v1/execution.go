package engine

import (
	"sort"

	"github.com/rxtech-lab/argo-replay/internal/book"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"go.uber.org/zap"
)

// executeSession settles cancellations and good-till expiries, then executes every
// order eligible at the current session, highest priority first.
func (rc *runContext) executeSession() error {
	now := rc.current()

	var kept, eligible []*pendingOrder

	for _, order := range rc.pending {
		switch {
		case order.cancelRequested:
			rc.resolve(order, types.OrderStatusCancelled, types.OrderReasonCancelled)
		case order.options.GoodTill.IsSome() && rc.timestamp.After(order.options.GoodTill.Unwrap()):
			rc.resolve(order, types.OrderStatusExpired, types.OrderReasonValidityElapsed)
		case now.before(order.eligible):
			kept = append(kept, order)
		default:
			eligible = append(eligible, order)
		}
	}

	rc.pending = kept

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].options.Priority != eligible[j].options.Priority {
			return eligible[i].options.Priority > eligible[j].options.Priority
		}

		return eligible[i].seq < eligible[j].seq
	})

	for _, order := range eligible {
		// a follow-up order may have replaced it earlier in this session
		if order.record.Status != types.OrderStatusPending {
			continue
		}

		deferred, err := rc.execute(order)
		if err != nil {
			return err
		}

		if deferred {
			order.eligible = now.next()
			rc.pending = append(rc.pending, order)
		}
	}

	return nil
}

// execute attempts one order. It reports whether the order stays pending.
func (rc *runContext) execute(order *pendingOrder) (bool, error) {
	order.record.Attempts++

	b, err := rc.book(order.options.Book)
	if err != nil {
		return false, err
	}

	fills, reason, err := rc.resolveFills(b, order)
	if err != nil {
		return false, err
	}

	if reason != "" {
		rc.resolve(order, types.OrderStatusRejected, reason)

		return false, nil
	}

	after := b.Clone()
	for _, fill := range fills {
		if err := after.Apply(rc.transaction(b, order, fill)); err != nil {
			return false, err
		}
	}

	decision, reason, err := rc.runHooks(order, b, after, fills)
	if err != nil {
		return false, err
	}

	switch decision {
	case types.HookReject:
		rc.resolve(order, types.OrderStatusRejected, reason)

		return false, nil
	case types.HookCancel:
		rc.resolve(order, types.OrderStatusCancelled, reason)

		return false, nil
	case types.HookDefer:
		if order.options.ValidFor > 0 && order.record.Attempts >= order.options.ValidFor {
			rc.resolve(order, types.OrderStatusExpired, types.OrderReasonValidityElapsed)

			return false, nil
		}

		rc.runner.log.Debug("Order deferred",
			zap.String("order", order.record.Key),
			zap.Int("attempts", order.record.Attempts),
		)

		return true, nil
	}

	transactions := make([]types.Transaction, 0, len(fills))

	for _, fill := range fills {
		if fill.Quantity.IsZero() {
			continue
		}

		tx := rc.transaction(b, order, fill)
		if err := b.Apply(tx); err != nil {
			return false, err
		}

		transactions = append(transactions, tx)
	}

	rc.transactions = append(rc.transactions, transactions...)
	rc.resolve(order, types.OrderStatusExecuted, "")

	return false, rc.followUp(order, transactions)
}

func (rc *runContext) transaction(b *book.Book, order *pendingOrder, fill types.Fill) types.Transaction {
	return types.Transaction{
		Timestamp:    rc.timestamp,
		Phase:        rc.phase,
		Book:         b.Name(),
		Asset:        fill.Asset,
		Quantity:     fill.Quantity,
		Price:        fill.Price,
		Denomination: fill.Denomination,
		Fee:          fill.Fee,
		CashAmount:   fill.CashAmount,
		OrderKey:     order.record.Key,
		Strategy:     order.record.Strategy,
		Leg:          fill.Leg,
	}
}

// runHooks runs the book's mandates, then the order's own hooks, stopping at the first
// decision other than proceed.
func (rc *runContext) runHooks(order *pendingOrder, before, after *book.Book, fills []types.Fill) (types.HookDecision, string, error) {
	ctx := types.HookContext{
		Timestamp: rc.timestamp,
		Phase:     rc.phase,
		OrderKey:  order.record.Key,
		Strategy:  order.record.Strategy,
		Before:    &bookView{book: before},
		After:     &bookView{book: after},
		Fills:     fills,
		Valuer:    rc,
	}

	mandates := rc.runner.books[rc.runner.bookIndex[before.Name()]].Mandates

	for _, hook := range mandates {
		decision, err := rc.check(hook, ctx)
		if err != nil {
			return decision, "", err
		}

		if decision != types.HookProceed {
			return decision, reasonOf(decision, types.OrderReasonMandateRejected), nil
		}
	}

	for _, hook := range order.options.Hooks {
		decision, err := rc.check(hook, ctx)
		if err != nil {
			return decision, "", err
		}

		if decision != types.HookProceed {
			return decision, reasonOf(decision, types.OrderReasonHookRejected), nil
		}
	}

	return types.HookProceed, "", nil
}

func reasonOf(decision types.HookDecision, rejected string) string {
	switch decision {
	case types.HookReject:
		return rejected
	case types.HookCancel:
		return types.OrderReasonHookCancelled
	default:
		return ""
	}
}

// check runs one hook. Errors, panics and unknown decisions are fatal.
func (rc *runContext) check(hook types.Hook, ctx types.HookContext) (decision types.HookDecision, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			decision = types.HookReject
			err = errors.Newf(errors.ErrCodeHookFailed, "hook %s on order %s panicked: %v", hook.Name(), ctx.OrderKey, recovered)
		}
	}()

	decision, err = hook.Check(ctx)
	if err != nil {
		return types.HookReject, errors.Wrapf(errors.ErrCodeHookFailed, err, "hook %s failed on order %s", hook.Name(), ctx.OrderKey)
	}

	switch decision {
	case types.HookProceed, types.HookReject, types.HookDefer, types.HookCancel:
		return decision, nil
	default:
		return types.HookReject, errors.Newf(errors.ErrCodeHookFailed, "hook %s returned unknown decision %q", hook.Name(), decision)
	}
}

// followUp queues the orders an executed order's OnExecuted returns for the next session.
func (rc *runContext) followUp(order *pendingOrder, transactions []types.Transaction) (err error) {
	if order.options.OnExecuted == nil {
		return nil
	}

	name := order.record.Strategy

	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "on_executed of order %s of strategy %s panicked: %v",
				order.record.Key, name, recovered)
		}
	}()

	for _, next := range order.options.OnExecuted(transactions) {
		created, err := rc.newPending(order.strategy, next)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "invalid follow-up of order %s of strategy %s",
				order.record.Key, name)
		}

		rc.enqueue(created, rc.current().next())
	}

	return nil
}
