package order

import (
	"testing"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

func unitOrder(id string, budget int64) Pair {
	return Pair{
		ID:      id,
		Trader:  "trader1",
		Pay:     asset.USD,
		Receive: asset.EUR,
		Budget:  amount.FromUnits(budget),
	}
}

func TestValidateOK(t *testing.T) {
	limit := 1.2
	minFill := 0.5
	p := unitOrder("order1", 1000)
	p.LimitRatio = &limit
	p.MinFillFraction = &minFill
	if err := Validate(p); err != nil {
		t.Fatalf("expected valid order, got %v", err)
	}
}

func TestValidateZeroBudget(t *testing.T) {
	p := unitOrder("order1", 0)
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for zero budget")
	}
}

func TestValidateSameAssets(t *testing.T) {
	p := unitOrder("order1", 100)
	p.Receive = asset.USD
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for same pay/receive asset")
	}
}

func TestValidateBadLimit(t *testing.T) {
	p := unitOrder("order1", 100)
	bad := -1.0
	p.LimitRatio = &bad
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for non-positive limit ratio")
	}
}

func TestValidateBadMinFill(t *testing.T) {
	p := unitOrder("order1", 100)
	bad := 1.5
	p.MinFillFraction = &bad
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for out-of-range min fill fraction")
	}
}

func TestValidateEmptyID(t *testing.T) {
	p := unitOrder("", 100)
	if err := Validate(p); err == nil {
		t.Fatalf("expected error for empty ID")
	}
}

func TestHasLimitAndLogLimit(t *testing.T) {
	p := unitOrder("order1", 100)
	if p.HasLimit() {
		t.Fatalf("expected no limit")
	}
	limit := 2.0
	p.LimitRatio = &limit
	if !p.HasLimit() {
		t.Fatalf("expected limit set")
	}
	if got := p.LogLimit(); got <= 0 {
		t.Fatalf("LogLimit() = %v, want positive", got)
	}
}

func TestMinFillDefault(t *testing.T) {
	p := unitOrder("order1", 100)
	if p.MinFill() != 0.0 {
		t.Fatalf("expected default min fill 0")
	}
}
