package order

import (
	"errors"
	"fmt"
	"time"
)

// Side represents order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Kind represents order type.
type Kind string

const (
	KindMarket Kind = "MARKET"
	KindLimit  Kind = "LIMIT"
	KindStop   Kind = "STOP"
)

// Objective 路由目标，决定打分权重与分配策略的选择。
type Objective string

const (
	ObjectiveBestPrice        Objective = "BEST_PRICE"
	ObjectiveFastestExecution Objective = "FASTEST_EXECUTION"
	ObjectiveLowestCost       Objective = "LOWEST_COST"
	ObjectiveBalanced         Objective = "BALANCED"
)

// Objectives lists all recognized routing objectives.
func Objectives() []Objective {
	return []Objective{
		ObjectiveBestPrice,
		ObjectiveFastestExecution,
		ObjectiveLowestCost,
		ObjectiveBalanced,
	}
}

var (
	ErrEmptySymbol        = errors.New("order symbol is empty")
	ErrNonPositiveQty     = errors.New("order quantity must be > 0")
	ErrUnknownSide        = errors.New("unknown order side")
	ErrUnknownKind        = errors.New("unknown order kind")
	ErrUnknownObjective   = errors.New("unknown routing objective")
	ErrMissingLimitPrice  = errors.New("limit order requires a positive limit price")
)

// Order is an immutable trade request consumed once by the routing engine.
// Deadline 为零值表示无截止时间。
type Order struct {
	ID         string
	Symbol     string
	Side       Side
	Quantity   int64
	Kind       Kind
	LimitPrice float64
	Objective  Objective
	Deadline   time.Time
}

// Validate performs fail-fast input checks before any venue is contacted.
func (o Order) Validate() error {
	if o.Symbol == "" {
		return ErrEmptySymbol
	}
	if o.Quantity <= 0 {
		return ErrNonPositiveQty
	}
	switch o.Side {
	case SideBuy, SideSell:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSide, o.Side)
	}
	switch o.Kind {
	case KindMarket, KindLimit, KindStop:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, o.Kind)
	}
	if o.Kind == KindLimit && o.LimitPrice <= 0 {
		return ErrMissingLimitPrice
	}
	switch o.Objective {
	case ObjectiveBestPrice, ObjectiveFastestExecution, ObjectiveLowestCost, ObjectiveBalanced:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownObjective, o.Objective)
	}
	return nil
}

// HasDeadline reports whether the order carries a routing deadline.
func (o Order) HasDeadline() bool {
	return !o.Deadline.IsZero()
}
