package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusExecuted  OrderStatus = "EXECUTED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
)

// AllOrderStatuses in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPending,
	OrderStatusExecuted,
	OrderStatusRejected,
	OrderStatusCancelled,
	OrderStatusExpired,
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusExecuted, OrderStatusRejected, OrderStatusCancelled, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether s -> next is a legal lifecycle step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return next == OrderStatusPending
	case OrderStatusPending:
		return next.IsTerminal()
	default:
		return false
	}
}

// OrderSizeType selects how an order's size is turned into a quantity at execution.
type OrderSizeType string

const (
	// OrderSizeTypeQuantity is an absolute signed unit count.
	OrderSizeTypeQuantity OrderSizeType = "quantity"
	// OrderSizeTypeNotional is a signed amount in the asset's denomination.
	OrderSizeTypeNotional OrderSizeType = "notional"
	// OrderSizeTypeBookPercent is a signed percentage of the book's total value, 10 meaning 10%.
	OrderSizeTypeBookPercent OrderSizeType = "book_percent"
	// OrderSizeTypeTargetPosition is the desired resulting position.
	OrderSizeTypeTargetPosition OrderSizeType = "target_position"
	// OrderSizeTypeTargetPercent is the desired resulting position as a percentage of the
	// book's total value.
	OrderSizeTypeTargetPercent OrderSizeType = "target_percent"
)

// Valid reports whether t is a known size type.
func (t OrderSizeType) Valid() bool {
	switch t {
	case OrderSizeTypeQuantity, OrderSizeTypeNotional, OrderSizeTypeBookPercent,
		OrderSizeTypeTargetPosition, OrderSizeTypeTargetPercent:
		return true
	default:
		return false
	}
}

type OrderKind string

const (
	OrderKindSimple OrderKind = "simple"
	OrderKindBasket OrderKind = "basket"
)

const (
	OrderReasonHookRejected     string = "hook_rejected"
	OrderReasonHookCancelled    string = "hook_cancelled"
	OrderReasonMandateRejected  string = "mandate_rejected"
	OrderReasonInvalidQuantity  string = "invalid_quantity"
	OrderReasonFXUnavailable    string = "fx_unavailable"
	OrderReasonValidityElapsed  string = "validity_elapsed"
	OrderReasonCancelled        string = "cancelled_by_strategy"
	OrderReasonReplaced         string = "replaced"
	OrderReasonRunEnded         string = "run_ended"
	OrderReasonNonPositivePrice string = "non_positive_price"
)

// Leg is one asset and size of an order.
type Leg struct {
	Asset    string          `yaml:"asset" json:"asset" validate:"required"`
	Size     decimal.Decimal `yaml:"size" json:"size"`
	SizeType OrderSizeType   `yaml:"size_type" json:"size_type" validate:"required,oneof=quantity notional book_percent target_position target_percent"`
}

func (l Leg) String() string {
	return fmt.Sprintf("%s %s %s", l.Asset, l.Size.String(), l.SizeType)
}

// OrderOptions carries the settings shared by every order shape.
type OrderOptions struct {
	// Key identifies the order. Left empty, the runner assigns "<strategy>-<sequence>".
	// Submitting a key that is still pending replaces the older order.
	Key string
	// Book is the target book. Empty targets the first configured book.
	Book string
	// Priority orders execution within a session, highest first. Ties keep submission order.
	Priority int
	// ExecuteAtClose makes an order submitted during on_open execute at the same step's close.
	// An order submitted during on_close with this flag executes at the next step's close.
	ExecuteAtClose bool
	// ValidFor is the number of execution sessions the order may be attempted in.
	// Zero means good till cancelled.
	ValidFor int
	// GoodTill expires the order at the first session later than this time.
	GoodTill optional.Option[time.Time]
	// Hooks run before the order is committed, after the book's mandates.
	Hooks []Hook
	// OnExecuted is called with the order's transactions. Returned orders are queued for
	// the next session.
	OnExecuted func(transactions []Transaction) []Order
	// Label is free text kept in the order record.
	Label string
}

// Order is a request to change a book's exposure.
type Order interface {
	// Options returns the shared order settings.
	Options() OrderOptions
	// OrderLegs returns the legs in execution order. A simple order has exactly one.
	OrderLegs() []Leg
	// Kind returns the order shape.
	Kind() OrderKind
	// Validate checks the order shape before it is queued.
	Validate() error
}

// SimpleOrder trades a single asset.
type SimpleOrder struct {
	OrderOptions
	Asset    string `validate:"required"`
	Size     decimal.Decimal
	SizeType OrderSizeType `validate:"required,oneof=quantity notional book_percent target_position target_percent"`
}

// NewMarketOrder creates an absolute quantity order.
func NewMarketOrder(asset string, quantity decimal.Decimal) *SimpleOrder {
	return &SimpleOrder{
		Asset:    asset,
		Size:     quantity,
		SizeType: OrderSizeTypeQuantity,
	}
}

func (o SimpleOrder) Options() OrderOptions {
	return o.OrderOptions
}

func (o SimpleOrder) OrderLegs() []Leg {
	return []Leg{{Asset: o.Asset, Size: o.Size, SizeType: o.SizeType}}
}

func (o SimpleOrder) Kind() OrderKind {
	return OrderKindSimple
}

// Validate validates the SimpleOrder struct.
func (o SimpleOrder) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	return validateOptions(o.OrderOptions)
}

// BasketOrder executes all legs or none.
type BasketOrder struct {
	OrderOptions
	Legs []Leg `validate:"required,min=1,dive"`
}

// NewWeightedBasket creates a basket whose leg sizes are size * weight.
func NewWeightedBasket(assets []string, weights []decimal.Decimal, size decimal.Decimal, sizeType OrderSizeType) (*BasketOrder, error) {
	if len(assets) != len(weights) {
		return nil, errors.Newf(errors.ErrCodeInvalidOrder, "basket has %d assets but %d weights", len(assets), len(weights))
	}

	legs := make([]Leg, len(assets))
	for i, asset := range assets {
		legs[i] = Leg{Asset: asset, Size: size.Mul(weights[i]), SizeType: sizeType}
	}

	return &BasketOrder{Legs: legs}, nil
}

func (o BasketOrder) Options() OrderOptions {
	return o.OrderOptions
}

func (o BasketOrder) OrderLegs() []Leg {
	legs := make([]Leg, len(o.Legs))
	copy(legs, o.Legs)

	return legs
}

func (o BasketOrder) Kind() OrderKind {
	return OrderKindBasket
}

// Validate validates the BasketOrder struct. An asset may appear in at most one leg.
func (o BasketOrder) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid basket order", err)
	}

	seen := make(map[string]struct{}, len(o.Legs))
	for _, leg := range o.Legs {
		if _, ok := seen[leg.Asset]; ok {
			return errors.Newf(errors.ErrCodeInvalidOrder, "asset %s appears in more than one basket leg", leg.Asset)
		}

		seen[leg.Asset] = struct{}{}
	}

	return validateOptions(o.OrderOptions)
}

func validateOptions(options OrderOptions) error {
	if options.ValidFor < 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "valid_for must not be negative, got %d", options.ValidFor)
	}

	for i, hook := range options.Hooks {
		if hook == nil {
			return errors.Newf(errors.ErrCodeInvalidOrder, "hook %d is nil", i)
		}
	}

	return nil
}
