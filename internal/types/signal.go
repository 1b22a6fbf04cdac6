package types

type SignalType string

const (
	// SignalTypeBuyLong is a signal that tells the strategy to buy
	SignalTypeBuyLong SignalType = "buy_long"
	// SignalTypeSellLong is a signal that tells the strategy to sell
	SignalTypeSellLong SignalType = "sell_long"
	// SignalTypeBuyShort is a signal that tells the strategy to buy
	SignalTypeBuyShort SignalType = "buy_short"
	// SignalTypeSellShort is a signal that tells the strategy to sell
	SignalTypeSellShort SignalType = "sell_short"
	// SignalTypeNoAction is a signal that tells the strategy to take no action
	SignalTypeNoAction SignalType = "no_action"
	// SignalTypeClosePosition is a signal that tells the strategy to close a position
	SignalTypeClosePosition SignalType = "close_position"
	// SignalTypeRebalance is a signal that tells the strategy to rebalance its holdings
	SignalTypeRebalance SignalType = "rebalance"
)
