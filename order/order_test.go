package order

import (
	"errors"
	"testing"
	"time"
)

func validOrder() Order {
	return Order{
		ID:        "ord-1",
		Symbol:    "AAPL",
		Side:      SideBuy,
		Quantity:  100,
		Kind:      KindMarket,
		Objective: ObjectiveBalanced,
	}
}

func TestValidateAcceptsWellFormedOrder(t *testing.T) {
	if err := validOrder().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsMalformedOrders(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Order)
		want   error
	}{
		{"empty symbol", func(o *Order) { o.Symbol = "" }, ErrEmptySymbol},
		{"zero quantity", func(o *Order) { o.Quantity = 0 }, ErrNonPositiveQty},
		{"negative quantity", func(o *Order) { o.Quantity = -5 }, ErrNonPositiveQty},
		{"bad side", func(o *Order) { o.Side = "HOLD" }, ErrUnknownSide},
		{"bad kind", func(o *Order) { o.Kind = "ICEBERG" }, ErrUnknownKind},
		{"bad objective", func(o *Order) { o.Objective = "YOLO" }, ErrUnknownObjective},
		{"limit without price", func(o *Order) { o.Kind = KindLimit; o.LimitPrice = 0 }, ErrMissingLimitPrice},
	}

	for _, tc := range cases {
		o := validOrder()
		tc.mutate(&o)
		err := o.Validate()
		if err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestHasDeadline(t *testing.T) {
	o := validOrder()
	if o.HasDeadline() {
		t.Fatal("zero deadline should report no deadline")
	}
	o.Deadline = time.Now().Add(time.Second)
	if !o.HasDeadline() {
		t.Fatal("expected deadline to be reported")
	}
}
