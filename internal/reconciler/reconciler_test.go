package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap/zaptest"
)

type call struct {
	kind    string
	req     types.PlaceOrderRequest
	orderID string
}

type fakeGateway struct {
	mu          sync.Mutex
	calls       []call
	nextOrderID int
	placeErr    error
	cancelErr   error
	resting     []types.ExchangeOrder
}

func (f *fakeGateway) PlaceOrder(ctx context.Context, req types.PlaceOrderRequest) (types.PlaceOrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return types.PlaceOrderResponse{}, f.placeErr
	}
	f.nextOrderID++
	id := fmtOrderID(f.nextOrderID)
	f.calls = append(f.calls, call{kind: "place", req: req, orderID: id})
	var resp types.PlaceOrderResponse
	resp.Order.OrderID = id
	resp.Order.Status = "resting"
	return resp, nil
}

func (f *fakeGateway) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.calls = append(f.calls, call{kind: "cancel", orderID: orderID})
	return nil
}

func (f *fakeGateway) ListRestingOrders(ctx context.Context) ([]types.ExchangeOrder, error) {
	return f.resting, nil
}

func (f *fakeGateway) callCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func fmtOrderID(n int) string {
	return "order-" + string(rune('0'+n))
}

func waitUntil(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestReconciler(t *testing.T, gw Gateway) *Reconciler {
	return New(&Config{
		Gateway:            gw,
		Logger:             zaptest.NewLogger(t),
		OverbidCancelDelay: 30 * time.Millisecond,
		MaxConcurrency:     4,
	})
}

func TestReconcile_PlacesNewOrder(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})

	waitUntil(t, func() bool { return gw.callCount("place") == 1 })

	resting := r.RestingOrders()
	if len(resting) != 1 || resting[0].Price != 45 {
		t.Fatalf("resting = %+v, want one order at price 45", resting)
	}
}

func TestReconcile_MatchingTargetIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}
	target := Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)}

	r.Reconcile(context.Background(), key, target)
	waitUntil(t, func() bool { return gw.callCount("place") == 1 })

	r.Reconcile(context.Background(), key, target)
	time.Sleep(20 * time.Millisecond)

	if got := gw.callCount("place"); got != 1 {
		t.Errorf("place calls = %d, want 1 (idempotent on matching price/size)", got)
	}
}

func TestReconcile_DifferentPriceCancelsAndReplaces(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})
	waitUntil(t, func() bool { return gw.callCount("place") == 1 })

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 46, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})
	waitUntil(t, func() bool { return gw.callCount("place") == 2 })

	if got := gw.callCount("cancel"); got != 1 {
		t.Errorf("cancel calls = %d, want 1", got)
	}
}

func TestReconcile_GatedCancelsRestingOrder(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})
	waitUntil(t, func() bool { return gw.callCount("place") == 1 })

	r.Reconcile(context.Background(), key, Target{Kind: TargetGated})
	waitUntil(t, func() bool { return gw.callCount("cancel") == 1 })

	if resting := r.RestingOrders(); len(resting) != 0 {
		t.Errorf("resting = %+v, want none after gating", resting)
	}
}

// TestReconcile_BackOffHysteresis covers the overbid-cancel-delay: a
// resting order survives repeated BACK_OFF targets until the delay
// elapses, preventing flapping on a momentary overbid.
func TestReconcile_BackOffHysteresis(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})
	waitUntil(t, func() bool { return gw.callCount("place") == 1 })

	r.Reconcile(context.Background(), key, Target{Kind: TargetBackOff})
	time.Sleep(5 * time.Millisecond)
	if got := gw.callCount("cancel"); got != 0 {
		t.Fatalf("cancel calls = %d, want 0 (within hysteresis window)", got)
	}

	time.Sleep(40 * time.Millisecond)
	r.Reconcile(context.Background(), key, Target{Kind: TargetBackOff})
	waitUntil(t, func() bool { return gw.callCount("cancel") == 1 })
}

func TestEmergencyCancel_DedupsLocalAndRemote(t *testing.T) {
	gw := &fakeGateway{resting: []types.ExchangeOrder{{OrderID: "order-1"}, {OrderID: "order-99"}}}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})
	waitUntil(t, func() bool { return gw.callCount("place") == 1 })

	if err := r.EmergencyCancel(context.Background()); err != nil {
		t.Fatalf("EmergencyCancel: %v", err)
	}

	// order-1 appears both locally (as the placed order) and in the
	// remote listing; it should only be cancelled once.
	if got := gw.callCount("cancel"); got != 2 {
		t.Errorf("cancel calls = %d, want 2 (order-1 deduped, order-99 added)", got)
	}
}

func TestReconcile_PlaceErrorLeavesNoRestingOrder(t *testing.T) {
	gw := &fakeGateway{placeErr: errors.New("exchange unavailable")}
	r := newTestReconciler(t, gw)
	key := types.OrderKey{MatchID: "m1", Ticker: "TICK-A", Side: types.SideYes}

	r.Reconcile(context.Background(), key, Target{Kind: TargetPrice, Price: 45, Size: 10, ExpiresAt: time.Now().Add(time.Hour)})
	time.Sleep(20 * time.Millisecond)

	if resting := r.RestingOrders(); len(resting) != 0 {
		t.Errorf("resting = %+v, want none after place failure", resting)
	}
}
