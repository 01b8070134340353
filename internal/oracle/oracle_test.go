package oracle

import (
	"math"
	"testing"
	"time"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

func TestMockDefaultNumeraire(t *testing.T) {
	m := NewMock()
	prices, err := m.CurrentPrices()
	if err != nil {
		t.Fatalf("CurrentPrices: %v", err)
	}
	if got := prices.Get(asset.USD); got != 0.0 {
		t.Fatalf("USD log-price = %v, want 0", got)
	}
	eur := prices.Get(asset.EUR)
	if eur <= 0 {
		t.Fatalf("expected EUR log-price > 0 since EURUSD > 1, got %v", eur)
	}
	if math.Abs(eur-math.Log(1.1)) > 1e-10 {
		t.Fatalf("EUR log-price = %v, want ln(1.1)", eur)
	}
}

func TestMockBands(t *testing.T) {
	m := NewMock().WithBandBps(50.0)
	prices, err := m.CurrentPrices()
	if err != nil {
		t.Fatalf("CurrentPrices: %v", err)
	}
	ref := prices.Get(asset.EUR)
	low := prices.Low(asset.EUR)
	high := prices.High(asset.EUR)
	if math.Abs(ref-low-0.0050) > 1e-6 {
		t.Fatalf("low band mismatch: ref=%v low=%v", ref, low)
	}
	if math.Abs(high-ref-0.0050) > 1e-6 {
		t.Fatalf("high band mismatch: ref=%v high=%v", ref, high)
	}
}

func TestMockSetPrice(t *testing.T) {
	m := NewMock()
	m.SetPrice(asset.EUR, 1.15)
	prices, err := m.CurrentPrices()
	if err != nil {
		t.Fatalf("CurrentPrices: %v", err)
	}
	if math.Abs(prices.Get(asset.EUR)-math.Log(1.15)) > 1e-10 {
		t.Fatalf("expected updated EUR price to be reflected")
	}
}

func TestRefPricesVectorOrder(t *testing.T) {
	m := NewMock()
	prices, _ := m.CurrentPrices()
	v := prices.Vector()
	if len(v) != asset.N {
		t.Fatalf("expected vector length %d, got %d", asset.N, len(v))
	}
	if v[asset.USD.Index()] != 0.0 {
		t.Fatalf("expected USD entry to be 0")
	}
}

func TestIsStale(t *testing.T) {
	prices := New(map[asset.Id]float64{asset.USD: 0}, 20, time.Now().Add(-time.Hour).UnixMilli(), nil)
	if !prices.IsStale(time.Now(), time.Minute) {
		t.Fatalf("expected snapshot to be stale")
	}
	if prices.IsStale(time.Now(), 2*time.Hour) {
		t.Fatalf("expected snapshot to not be stale under a generous max age")
	}
}
