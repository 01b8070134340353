// Package asset defines the fixed table of currencies the clearing engine
// prices against, with USD as the numeraire held at log-price zero.
package asset

import (
	"encoding/json"
	"fmt"
)

// Id identifies one of the pool's tradable currencies. USD is always
// index 0 and is the numeraire: its log-price is fixed at zero.
type Id int

const (
	USD Id = iota
	EUR
	JPY
	GBP
	CHF
	AUD
)

// All is the fixed, compile-time asset table, USD first.
var All = []Id{USD, EUR, JPY, GBP, CHF, AUD}

// N is the number of assets in the pool.
var N = len(All)

var names = map[Id]string{
	USD: "USD",
	EUR: "EUR",
	JPY: "JPY",
	GBP: "GBP",
	CHF: "CHF",
	AUD: "AUD",
}

var byName = func() map[string]Id {
	m := make(map[string]Id, len(names))
	for id, name := range names {
		m[name] = id
	}
	return m
}()

// String renders the asset's three-letter code.
func (a Id) String() string {
	if name, ok := names[a]; ok {
		return name
	}
	return fmt.Sprintf("Id(%d)", int(a))
}

// Index returns the asset's position in the pool's log-price vector.
func (a Id) Index() int { return int(a) }

// IsNumeraire reports whether a is the USD numeraire.
func (a Id) IsNumeraire() bool { return a == USD }

// FromString looks up an asset by its three-letter code.
func FromString(s string) (Id, error) {
	id, ok := byName[s]
	if !ok {
		return 0, fmt.Errorf("asset: unknown code %q", s)
	}
	return id, nil
}

// Valid reports whether a is within the registered table.
func Valid(a Id) bool {
	_, ok := names[a]
	return ok
}

// MarshalJSON renders the asset as its three-letter code, not its index,
// so the wire format survives table reordering.
func (a Id) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses a three-letter asset code.
func (a *Id) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := FromString(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}
