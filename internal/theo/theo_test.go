package theo

import "testing"

func TestTwoWay(t *testing.T) {
	tests := []struct {
		name           string
		oddsA, oddsB   float64
		wantA, wantB   int
	}{
		{name: "even money", oddsA: 2.0, oddsB: 2.0, wantA: 50, wantB: 50},
		{name: "favorite vs underdog", oddsA: 1.5, oddsB: 3.0, wantA: 67, wantB: 33},
		{name: "heavy favorite", oddsA: 1.1, oddsB: 10.0, wantA: 90, wantB: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotA, gotB := TwoWay(tt.oddsA, tt.oddsB)
			if gotA != tt.wantA || gotB != tt.wantB {
				t.Errorf("TwoWay(%v, %v) = (%d, %d), want (%d, %d)",
					tt.oddsA, tt.oddsB, gotA, gotB, tt.wantA, tt.wantB)
			}
			if gotA+gotB != 100 {
				t.Errorf("theoA + theoB = %d, want 100", gotA+gotB)
			}
		})
	}
}

func TestThreeWay(t *testing.T) {
	tests := []struct {
		name                 string
		oddsA, oddsB, oddsD  float64
		wantA, wantB         int
	}{
		{name: "symmetric with draw", oddsA: 3.0, oddsB: 3.0, oddsD: 3.0, wantA: 50, wantB: 50},
		{name: "favorite with draw", oddsA: 2.0, oddsB: 4.0, oddsD: 4.0, wantA: 63, wantB: 37},
		{name: "missing draw uses default", oddsA: 2.0, oddsB: 2.0, oddsD: 0, wantA: 50, wantB: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotA, gotB := ThreeWay(tt.oddsA, tt.oddsB, tt.oddsD)
			if gotA != tt.wantA || gotB != tt.wantB {
				t.Errorf("ThreeWay(%v, %v, %v) = (%d, %d), want (%d, %d)",
					tt.oddsA, tt.oddsB, tt.oddsD, gotA, gotB, tt.wantA, tt.wantB)
			}
			if gotA+gotB != 100 {
				t.Errorf("theoA + theoB = %d, want 100", gotA+gotB)
			}
		})
	}
}

func TestThreeWayConvergesToTwoWay(t *testing.T) {
	// With a very long-shot draw, the three-way split should land close to
	// the two-way result for the same A/B odds.
	twoA, twoB := TwoWay(2.0, 2.0)
	threeA, threeB := ThreeWay(2.0, 2.0, DefaultDrawOdds)

	if diff := abs(twoA - threeA); diff > 2 {
		t.Errorf("three-way theoA=%d diverges from two-way theoA=%d by %d cents", threeA, twoA, diff)
	}
	if diff := abs(twoB - threeB); diff > 2 {
		t.Errorf("three-way theoB=%d diverges from two-way theoB=%d by %d cents", threeB, twoB, diff)
	}
}

func TestFairOdds(t *testing.T) {
	if got := FairOdds(50); got != 2.0 {
		t.Errorf("FairOdds(50) = %v, want 2.0", got)
	}
	if got := FairOdds(25); got != 4.0 {
		t.Errorf("FairOdds(25) = %v, want 4.0", got)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
