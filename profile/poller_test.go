package profile_test

import (
	"context"
	"testing"

	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/venue"
	"order-router-go/venue/mock"
)

func pollerCaps() venue.Capabilities {
	return venue.Capabilities{
		SupportedKinds: []order.Kind{order.KindMarket, order.KindLimit},
		MinOrderSize:   1,
		MaxOrderSize:   100_000,
		MidPrice:       50_000,
		SpreadBps:      5,
		DepthQty:       20_000,
		RecentVolume:   80_000,
	}
}

func TestPollOnceWritesProfiles(t *testing.T) {
	store := profile.NewStore()
	alpha := mock.New("alpha", pollerCaps())

	p := &profile.Poller{
		Store:   store,
		Conns:   []venue.Connection{{VenueID: "alpha", Adapter: alpha}},
		Symbols: []string{"BTC-USDT", "ETH-USDT"},
	}
	p.PollOnce(context.Background())

	for _, sym := range []string{"BTC-USDT", "ETH-USDT"} {
		prof, ok := store.Get("alpha", sym)
		if !ok {
			t.Fatalf("profile %s missing after poll", sym)
		}
		if prof.Status != venue.StatusAvailable {
			t.Errorf("%s status = %s, want AVAILABLE", sym, prof.Status)
		}
		if prof.MidPrice != 50_000 || prof.DepthQty != 20_000 {
			t.Errorf("%s capabilities not applied: %+v", sym, prof)
		}
	}
}

func TestPollOnceStatusChange(t *testing.T) {
	store := profile.NewStore()
	alpha := mock.New("alpha", pollerCaps())

	p := &profile.Poller{
		Store:   store,
		Conns:   []venue.Connection{{VenueID: "alpha", Adapter: alpha}},
		Symbols: []string{"BTC-USDT"},
	}
	p.PollOnce(context.Background())

	alpha.SetStatus(venue.StatusMaintenance)
	p.PollOnce(context.Background())

	prof, _ := store.Get("alpha", "BTC-USDT")
	if prof.Status != venue.StatusMaintenance {
		t.Errorf("status = %s, want MAINTENANCE", prof.Status)
	}
	// 旧盘口数据应保留
	if prof.MidPrice != 50_000 {
		t.Errorf("mid price lost on status change: %v", prof.MidPrice)
	}
}
