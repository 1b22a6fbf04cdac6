package commission_fee

import "github.com/shopspring/decimal"

type CommissionFee interface {
	// Calculate the commission fee for a fill of quantity units at price. The fee is
	// returned in the asset's denomination and is never negative.
	Calculate(quantity decimal.Decimal, price decimal.Decimal) decimal.Decimal
}

type Broker string

const (
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
	BrokerPercentage        Broker = "percentage"
)

var AllBrokers = []any{
	BrokerInteractiveBroker,
	BrokerZero,
	BrokerPercentage,
}

// GetCommissionFeeHandler returns the fee model of broker. rate is only read by the
// percentage broker.
func GetCommissionFeeHandler(broker Broker, rate decimal.Decimal) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerPercentage:
		return NewPercentageCommissionFee(rate)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
