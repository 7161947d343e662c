package inventory

import (
	"testing"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap/zaptest"
)

func TestApplyFill_UpdatesCostAndInventory(t *testing.T) {
	l := New(zaptest.NewLogger(t))

	l.ApplyFill("m1", types.LegAYes, 40, 5)
	l.ApplyFill("m1", types.LegBNo, 45, 3)
	l.ApplyFill("m1", types.LegBYes, 30, 2)

	e := l.Get("m1")
	if e.CostLongA != 40*5+45*3 || e.CountLongA != 8 {
		t.Errorf("long-A cost/count = %d/%d, want %d/8", e.CostLongA, e.CountLongA, 40*5+45*3)
	}
	if e.CostLongB != 60 || e.CountLongB != 2 {
		t.Errorf("long-B cost/count = %d/%d, want 60/2", e.CostLongB, e.CountLongB)
	}
	if e.Inventory != 8-2 {
		t.Errorf("inventory = %d, want %d", e.Inventory, 8-2)
	}
}

func TestApplyPosition_RecomputesInventoryAndOverridesFillEstimate(t *testing.T) {
	l := New(zaptest.NewLogger(t))

	l.ApplyFill("m1", types.LegAYes, 40, 100) // stale estimate: inventory=100

	l.ApplyPosition("m1", true, types.PositionUpdate{Ticker: "TICK-A", YesNet: 7, NoNet: 0})
	l.ApplyPosition("m1", false, types.PositionUpdate{Ticker: "TICK-B", YesNet: 0, NoNet: 2})

	e := l.Get("m1")
	want := (7 + 2) - (0 + 0)
	if e.Inventory != want {
		t.Errorf("inventory = %d, want %d (position stream should override fill estimate)", e.Inventory, want)
	}
}

func TestApplyPosition_ClampsNegativeComponents(t *testing.T) {
	l := New(zaptest.NewLogger(t))

	l.ApplyPosition("m1", true, types.PositionUpdate{Ticker: "TICK-A", YesNet: -5, NoNet: 3})
	l.ApplyPosition("m1", false, types.PositionUpdate{Ticker: "TICK-B", YesNet: 0, NoNet: 0})

	e := l.Get("m1")
	// Negative YesNet clamped to 0.
	want := (0 + 0) - (3 + 0)
	if e.Inventory != want {
		t.Errorf("inventory = %d, want %d (negative component should clamp to 0)", e.Inventory, want)
	}
}

func TestAvgCost(t *testing.T) {
	l := New(zaptest.NewLogger(t))
	l.ApplyFill("m1", types.LegAYes, 70, 10)

	e := l.Get("m1")
	if got := e.AvgCostLongA(); got != 70 {
		t.Errorf("AvgCostLongA() = %v, want 70", got)
	}
	if got := e.AvgCostLongB(); got != 0 {
		t.Errorf("AvgCostLongB() = %v, want 0 (no exposure)", got)
	}
}

func TestRemove(t *testing.T) {
	l := New(zaptest.NewLogger(t))
	l.ApplyFill("m1", types.LegAYes, 10, 1)
	l.Remove("m1")

	if e := l.Get("m1"); e.CountLongA != 0 {
		t.Errorf("expected empty entry after Remove, got %+v", e)
	}
}
