package engine

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"order-router-go/allocation"
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/resilience"
	"order-router-go/venue"
)

// dispatch 并发派出全部分配腿，逐腿回填最终状态。
// 单腿失败互不影响，函数总是等全部腿结束后返回。
func (r *Router) dispatch(ctx context.Context, o order.Order, decision *RoutingDecision, timeout time.Duration) {
	deadline := o.Deadline
	if !o.HasDeadline() {
		deadline = time.Now().Add(timeout)
	}
	dctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	g, gctx := errgroup.WithContext(dctx)
	for i := range decision.Allocations {
		leg := &decision.Allocations[i]
		g.Go(func() error {
			r.dispatchLeg(gctx, o, decision.DecisionID, leg)
			return nil // 单腿失败不取消其余腿
		})
	}
	_ = g.Wait()
}

// dispatchLeg 经防护执行单腿提交并回填状态。
func (r *Router) dispatchLeg(ctx context.Context, o order.Order, decisionID string, leg *allocation.Allocation) {
	adapter := r.adapters[leg.VenueID]
	guard := r.guards.Get(leg.VenueID)

	slice := venue.Slice{
		DecisionID: decisionID,
		OrderID:    o.ID,
		VenueID:    leg.VenueID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Kind:       o.Kind,
		Quantity:   leg.Quantity,
		LimitPrice: o.LimitPrice,
	}

	var ack venue.ExecutionAck
	err := guard.Do(ctx, func(ctx context.Context) error {
		var submitErr error
		ack, submitErr = adapter.SubmitOrder(ctx, slice)
		return submitErr
	})

	leg.Status = legStatus(err)
	r.mon.IncDispatch(leg.VenueID, string(leg.Status))

	if err != nil {
		// 熔断短路未触达 venue，不计入该 venue 的失败画像
		if !errors.Is(err, resilience.ErrVenueUnavailable) {
			r.store.ApplyExecution(leg.VenueID, o.Symbol, profile.ExecUpdate{Failed: true})
			r.mon.IncProfileUpdate("dispatch_failure")
		}
		r.log.LogDispatch("leg_failed", leg.VenueID, map[string]interface{}{
			"decision_id": decisionID,
			"order_id":    o.ID,
			"quantity":    leg.Quantity,
			"status":      string(leg.Status),
			"error":       err.Error(),
		})
		return
	}

	r.log.LogDispatch("leg_dispatched", leg.VenueID, map[string]interface{}{
		"decision_id":    decisionID,
		"order_id":       o.ID,
		"quantity":       leg.Quantity,
		"venue_order_id": ack.VenueOrderID,
	})
}

// legStatus 把防护层错误映射为单腿状态。
func legStatus(err error) allocation.Status {
	switch {
	case err == nil:
		return allocation.StatusDispatched
	case errors.Is(err, resilience.ErrVenueUnavailable):
		return allocation.StatusSkipped
	case errors.Is(err, resilience.ErrDispatchTimeout):
		return allocation.StatusTimeout
	default:
		return allocation.StatusFailed
	}
}
