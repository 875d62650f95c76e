package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrNoEligibleVenue = errors.New("no eligible venue")
)

// ErrorKind 结构化路由错误类别。
type ErrorKind string

const (
	KindInvalidOrder    ErrorKind = "INVALID_ORDER"
	KindNoEligibleVenue ErrorKind = "NO_ELIGIBLE_VENUE"
)

// RoutingError 是整单失败时返回给调用方的结构化错误。
// 单腿派单失败不会产生 RoutingError，而是体现在分配状态上。
type RoutingError struct {
	Kind    ErrorKind
	OrderID string
	Err     error
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing order %s: %s: %v", e.OrderID, e.Kind, e.Err)
}

func (e *RoutingError) Unwrap() error { return e.Err }

func invalidOrder(orderID string, err error) *RoutingError {
	return &RoutingError{Kind: KindInvalidOrder, OrderID: orderID, Err: fmt.Errorf("%w: %v", ErrInvalidOrder, err)}
}

func noEligibleVenue(orderID string, reason string) *RoutingError {
	return &RoutingError{Kind: KindNoEligibleVenue, OrderID: orderID, Err: fmt.Errorf("%w: %s", ErrNoEligibleVenue, reason)}
}
