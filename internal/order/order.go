// Package order defines the pair-order type the clearing engine consumes
// and the validation rules applied before an order enters an epoch.
package order

import (
	"errors"
	"fmt"
	"math"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// ErrInvalidOrder wraps all order-validation failures; callers can
// errors.Is against it and read the message for the specific reason.
var ErrInvalidOrder = errors.New("order: invalid")

// Pair is a single trader's "pay X, receive Y, budget B" commitment for
// one epoch, optionally constrained by a worst-acceptable exchange ratio
// and a minimum acceptable fill fraction.
type Pair struct {
	ID      string
	Trader  string
	Pay     asset.Id
	Receive asset.Id
	Budget  amount.Amount

	// LimitRatio, if set, is the worst acceptable receive/pay exchange
	// ratio: the trader will not accept filling at a worse rate.
	LimitRatio *float64
	// MinFillFraction, if set, is the minimum fraction of Budget the
	// trader will accept being filled; below it the engine drops the
	// fill to zero rather than partially filling (see applyMinFillRepair
	// in package clearing).
	MinFillFraction *float64

	Metadata map[string]any
}

// HasLimit reports whether the order carries a limit-ratio constraint.
func (p Pair) HasLimit() bool { return p.LimitRatio != nil }

// LogLimit returns log(LimitRatio), the form the QP builder consumes.
// Only meaningful when HasLimit is true.
func (p Pair) LogLimit() float64 { return math.Log(*p.LimitRatio) }

// MinFill returns the minimum acceptable fill fraction, defaulting to 0.
func (p Pair) MinFill() float64 {
	if p.MinFillFraction == nil {
		return 0.0
	}
	return *p.MinFillFraction
}

// Validate checks basic order consistency: positive budget, distinct
// pay/receive assets, a finite positive limit ratio if present, a
// min-fill fraction in [0,1] if present, and a non-empty ID.
func Validate(p Pair) error {
	if !p.Budget.IsPositive() {
		return fmt.Errorf("%w: budget must be positive", ErrInvalidOrder)
	}
	if p.Pay == p.Receive {
		return fmt.Errorf("%w: pay and receive assets must be different", ErrInvalidOrder)
	}
	if !asset.Valid(p.Pay) || !asset.Valid(p.Receive) {
		return fmt.Errorf("%w: unknown asset", ErrInvalidOrder)
	}
	if p.LimitRatio != nil {
		r := *p.LimitRatio
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0.0 {
			return fmt.Errorf("%w: limit ratio must be positive and finite", ErrInvalidOrder)
		}
	}
	if p.MinFillFraction != nil {
		m := *p.MinFillFraction
		if m < 0.0 || m > 1.0 {
			return fmt.Errorf("%w: min fill fraction must be in [0,1]", ErrInvalidOrder)
		}
	}
	if p.ID == "" {
		return fmt.Errorf("%w: order ID cannot be empty", ErrInvalidOrder)
	}
	return nil
}
