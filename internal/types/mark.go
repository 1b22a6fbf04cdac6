package types

import "time"

type MarkShape string

const (
	MarkShapeCircle   MarkShape = "circle"
	MarkShapeSquare   MarkShape = "square"
	MarkShapeTriangle MarkShape = "triangle"
)

type MarkColor string

const (
	MarkColorRed    MarkColor = "red"
	MarkColorGreen  MarkColor = "green"
	MarkColorBlue   MarkColor = "blue"
	MarkColorYellow MarkColor = "yellow"
)

// Mark is an annotation a strategy leaves on the timeline.
type Mark struct {
	Timestamp time.Time    `yaml:"timestamp" json:"timestamp"`
	Phase     SessionPhase `yaml:"phase" json:"phase"`
	Strategy  string       `yaml:"strategy" json:"strategy"`
	Asset     string       `yaml:"asset" json:"asset"`
	Signal    SignalType   `yaml:"signal" json:"signal"`
	Reason    string       `yaml:"reason" json:"reason"`
	Color     MarkColor    `yaml:"color" json:"color"`
	Shape     MarkShape    `yaml:"shape" json:"shape"`
}

// ColorFor returns the default color of a signal.
func ColorFor(signal SignalType) MarkColor {
	switch signal {
	case SignalTypeBuyLong, SignalTypeBuyShort:
		return MarkColorGreen
	case SignalTypeSellLong, SignalTypeSellShort, SignalTypeClosePosition:
		return MarkColorRed
	case SignalTypeRebalance:
		return MarkColorBlue
	default:
		return MarkColorYellow
	}
}
