// Package oracle supplies reference log-prices the clearing engine
// hot-starts and trust-region-bands around. Price discovery itself is
// out of scope; this package only models the consumer interface and an
// in-memory mock suitable for tests and demos, plus an optional NATS
// subscriber that ingests externally published snapshots.
package oracle

import (
	"time"

	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// RefPrices is a reference snapshot: a log-price per asset (USD pinned
// to zero) plus a symmetric band, in basis points, around each price (see
// Low and High). The SCP driver starts from these log-prices but does not
// read the band: its trust-region widths come from clearing.ScpParams.
type RefPrices struct {
	YRef        map[asset.Id]float64
	BandLowBps  float64
	BandHighBps float64
	TimestampMs int64
	Providers   []string
}

// New builds a RefPrices snapshot with a symmetric band in basis points
// around each reference log-price.
func New(yRef map[asset.Id]float64, bandBps float64, timestampMs int64, providers []string) RefPrices {
	out := RefPrices{
		YRef:        make(map[asset.Id]float64, len(yRef)),
		BandLowBps:  bandBps,
		BandHighBps: bandBps,
		TimestampMs: timestampMs,
		Providers:   providers,
	}
	for k, v := range yRef {
		out.YRef[k] = v
	}
	return out
}

// Get returns the reference log-price for an asset, defaulting to 0.
func (r RefPrices) Get(a asset.Id) float64 {
	if v, ok := r.YRef[a]; ok {
		return v
	}
	return 0.0
}

// Low returns the lower log-price band for an asset.
func (r RefPrices) Low(a asset.Id) float64 { return r.Get(a) - r.BandLowBps/10000.0 }

// High returns the upper log-price band for an asset.
func (r RefPrices) High(a asset.Id) float64 { return r.Get(a) + r.BandHighBps/10000.0 }

// IsStale reports whether the snapshot is older than maxAge at now.
func (r RefPrices) IsStale(now time.Time, maxAge time.Duration) bool {
	age := now.Sub(time.UnixMilli(r.TimestampMs))
	return age > maxAge
}

// Vector renders YRef as a dense slice ordered by asset.All, for direct
// use as the SCP driver's hot-start y_ref.
func (r RefPrices) Vector() []float64 {
	out := make([]float64, asset.N)
	for i, a := range asset.All {
		out[i] = r.Get(a)
	}
	return out
}

// Oracle supplies reference prices for a given epoch.
type Oracle interface {
	ReferencePrices(epochID uint64) (RefPrices, error)
	// CurrentPrices returns the latest snapshot, independent of epoch.
	CurrentPrices() (RefPrices, error)
}
