package reporter

import (
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
)

// Witness is the flat record a downstream proof system consumes: the
// solved log-prices and their implied spot prices, every fill, the
// inventory before and after clearing, and the objective/diagnostic
// breakdown the solver produced along the way. Proof generation itself
// is out of scope; this package only assembles the record.
type Witness struct {
	EpochID uint64 `json:"epoch_id"`

	Y      []float64          `json:"y"`
	Prices map[string]float64 `json:"prices"`

	Fills []clearing.Fill `json:"fills"`

	InventoryPre  []float64 `json:"inventory_pre"`
	InventoryPost []float64 `json:"inventory_post"`

	Objective   clearing.ObjectiveTerms `json:"objective"`
	Diagnostics clearing.Diagnostics    `json:"diagnostics"`
}

// BuildWitness assembles a Witness from a cleared epoch's solution and
// the instance it was cleared against.
func BuildWitness(sol clearing.EpochSolution, inst clearing.EpochInstance) Witness {
	prices := make(map[string]float64, len(asset.All))
	for _, a := range asset.All {
		prices[a.String()] = sol.Price(a)
	}

	return Witness{
		EpochID:       sol.EpochID,
		Y:             append([]float64(nil), sol.Y...),
		Prices:        prices,
		Fills:         append([]clearing.Fill(nil), sol.Fills...),
		InventoryPre:  append([]float64(nil), inst.InventoryQ...),
		InventoryPost: append([]float64(nil), sol.InventoryPost...),
		Objective:     sol.Objective,
		Diagnostics:   sol.Diagnostics,
	}
}

// Digest returns the SHA-256 hash of the witness's canonical JSON
// encoding, independent of the reporter's chained audit digest, for
// callers that want to pin a witness without publishing it.
func (w Witness) Digest() (HashRef, error) {
	return computeJSONHash(w)
}
