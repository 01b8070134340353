package oracle

import (
	"math"
	"sync"
	"time"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// Mock is an in-memory oracle with configurable linear prices, useful
// for tests and demos. USD is always the numeraire at log-price zero.
type Mock struct {
	mu      sync.RWMutex
	prices  map[asset.Id]float64
	bandBps float64
}

// NewMock builds a mock oracle pre-seeded with a plausible FX snapshot.
func NewMock() *Mock {
	return &Mock{
		prices: map[asset.Id]float64{
			asset.USD: 1.0,
			asset.EUR: 1.1000,
			asset.JPY: 0.0100,
			asset.GBP: 1.2500,
			asset.CHF: 1.0800,
			asset.AUD: 0.7500,
		},
		bandBps: 20.0,
	}
}

// WithBandBps sets the reference band width in basis points.
func (m *Mock) WithBandBps(bandBps float64) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bandBps = bandBps
	return m
}

// SetPrice updates the linear USD price of an asset.
func (m *Mock) SetPrice(a asset.Id, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[a] = price
}

func (m *Mock) toLogPrices() map[asset.Id]float64 {
	out := make(map[asset.Id]float64, len(m.prices))
	for a, p := range m.prices {
		if a == asset.USD {
			out[a] = 0.0
			continue
		}
		out[a] = math.Log(p)
	}
	return out
}

// ReferencePrices returns the current snapshot regardless of epoch; the
// mock has no per-epoch history.
func (m *Mock) ReferencePrices(epochID uint64) (RefPrices, error) {
	return m.CurrentPrices()
}

// CurrentPrices returns the mock's current price snapshot.
func (m *Mock) CurrentPrices() (RefPrices, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	yRef := m.toLogPrices()
	return New(yRef, m.bandBps, time.Now().UnixMilli(), []string{"mock"}), nil
}
