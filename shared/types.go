package shared

// State is a step of the operation state machine.
type State uint8

const (
	StateValidating State = iota
	StateQuoting
	StateBuildingPlan
	StateSubmitting
	StateReconciling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "Validating"
	case StateQuoting:
		return "Quoting"
	case StateBuildingPlan:
		return "BuildingPlan"
	case StateSubmitting:
		return "Submitting"
	case StateReconciling:
		return "Reconciling"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Strategy names how executed amounts were reconciled.
type Strategy string

const (
	StrategyNone    Strategy = ""
	StrategyEvent   Strategy = "event"
	StrategyBalance Strategy = "balance"
)

// Direction is the side of a trade relative to the base asset.
// Buy spends base to receive the quote token; Sell does the opposite.
type Direction uint8

const (
	DirectionBuy Direction = iota
	DirectionSell
)

func (d Direction) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

// SwapKind selects which side of a swap is fixed.
type SwapKind uint8

const (
	SwapExactIn SwapKind = iota
	SwapExactOut
)

func (k SwapKind) String() string {
	if k == SwapExactOut {
		return "exact_out"
	}
	return "exact_in"
}
