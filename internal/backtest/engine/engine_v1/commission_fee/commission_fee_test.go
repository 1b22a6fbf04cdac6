package commission_fee

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (suite *CommissionFeeTestSuite) TestZeroCommissionFee() {
	fee := NewZeroCommissionFee()
	suite.NotNil(fee)

	tests := []struct {
		name     string
		quantity string
	}{
		{"zero quantity", "0"},
		{"small quantity", "10"},
		{"large quantity", "10000"},
		{"negative quantity", "-100"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := fee.Calculate(dec(tc.quantity), dec("50"))
			suite.True(result.IsZero())
		})
	}
}

func (suite *CommissionFeeTestSuite) TestInteractiveBrokerCommissionFee() {
	fee := NewInteractiveBrokerCommissionFee()
	suite.NotNil(fee)

	tests := []struct {
		name     string
		quantity string
		price    string
		expected string
	}{
		{"empty fill is free", "0", "100", "0"},
		{"small quantity pays the minimum", "10", "100", "1"},
		{"quantity at the minimum", "200", "100", "1"},
		{"large quantity", "1000", "100", "5"},
		{"very large quantity", "10000", "100", "50"},
		{"sell uses absolute quantity", "-1000", "100", "5"},
		{"minimum capped at one percent of value", "10", "2", "0.2"},
		{"per share rate capped at one percent of value", "10000", "0.1", "10"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := fee.Calculate(dec(tc.quantity), dec(tc.price))
			suite.True(result.Equal(dec(tc.expected)), result.String())
		})
	}
}

func (suite *CommissionFeeTestSuite) TestPercentageCommissionFee() {
	fee := NewPercentageCommissionFee(dec("0.001"))

	tests := []struct {
		name     string
		quantity string
		price    string
		expected string
	}{
		{"buy", "100", "50", "5"},
		{"sell", "-100", "50", "5"},
		{"fractional", "3", "33.33", "0.09999"},
		{"zero", "0", "50", "0"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := fee.Calculate(dec(tc.quantity), dec(tc.price))
			suite.True(result.Equal(dec(tc.expected)), result.String())
		})
	}

	negative := NewPercentageCommissionFee(dec("-0.01"))
	suite.True(negative.Calculate(dec("10"), dec("10")).Equal(dec("1")))
}

func (suite *CommissionFeeTestSuite) TestGetCommissionFeeHandler() {
	tests := []struct {
		name           string
		broker         Broker
		expectedType   string
		expectedResult string
	}{
		{
			name:           "interactive broker",
			broker:         BrokerInteractiveBroker,
			expectedType:   "*commission_fee.InteractiveBrokerCommissionFee",
			expectedResult: "5",
		},
		{
			name:           "zero commission",
			broker:         BrokerZero,
			expectedType:   "*commission_fee.ZeroCommissionFee",
			expectedResult: "0",
		},
		{
			name:           "percentage",
			broker:         BrokerPercentage,
			expectedType:   "*commission_fee.PercentageCommissionFee",
			expectedResult: "10",
		},
		{
			name:           "unknown broker defaults to zero",
			broker:         Broker("unknown"),
			expectedType:   "*commission_fee.ZeroCommissionFee",
			expectedResult: "0",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			handler := GetCommissionFeeHandler(tc.broker, dec("0.001"))
			suite.NotNil(handler)
			suite.Equal(tc.expectedType, fmt.Sprintf("%T", handler))

			result := handler.Calculate(dec("1000"), dec("10"))
			suite.True(result.Equal(dec(tc.expectedResult)), result.String())
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAllBrokers() {
	suite.Len(AllBrokers, 3)
	suite.Contains(AllBrokers, BrokerInteractiveBroker)
	suite.Contains(AllBrokers, BrokerZero)
	suite.Contains(AllBrokers, BrokerPercentage)
}

func (suite *CommissionFeeTestSuite) TestBrokerConstants() {
	suite.Equal(Broker("interactive_broker"), BrokerInteractiveBroker)
	suite.Equal(Broker("zero_commission"), BrokerZero)
	suite.Equal(Broker("percentage"), BrokerPercentage)
}
