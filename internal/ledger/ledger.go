// Package ledger tracks per-account asset balances and turns a cleared
// epoch's fills into immutable trade entries, grounded on
// convexfx-ledger's Ledger trait and the teacher's model.LedgerEntry /
// store.InsertLedgerEntry pattern.
package ledger

import (
	"errors"
	"fmt"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// AccountId names a ledger account: an LP vault, the pool itself, or a
// trader's account.
type AccountId string

// ErrInvalidAmount is returned for negative deposit/withdraw/transfer amounts.
var ErrInvalidAmount = errors.New("ledger: amount must be non-negative")

// ErrInsufficientBalance is returned when a withdrawal or transfer would
// drive a balance negative.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// Inventory is a per-asset balance snapshot for one account, or for the
// whole ledger when summed across accounts.
type Inventory map[asset.Id]amount.Amount

// NewInventory returns an empty inventory.
func NewInventory() Inventory { return make(Inventory) }

// Get returns the balance for an asset, defaulting to zero.
func (inv Inventory) Get(a asset.Id) amount.Amount {
	if v, ok := inv[a]; ok {
		return v
	}
	return amount.Zero
}

// Add credits an asset's balance in place.
func (inv Inventory) Add(a asset.Id, v amount.Amount) {
	inv[a] = inv.Get(a).Add(v)
}

// Sub debits an asset's balance in place.
func (inv Inventory) Sub(a asset.Id, v amount.Amount) {
	inv[a] = inv.Get(a).Sub(v)
}

// Clone returns a deep copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Snapshot is a point-in-time copy of every account's inventory, for
// checkpoint/restore.
type Snapshot struct {
	Accounts map[AccountId]Inventory
}

// Ledger manages account balances and transfers. Implementations may be
// in-memory (tests, demos) or backed by a durable store.
type Ledger interface {
	Deposit(account AccountId, a asset.Id, v amount.Amount) error
	Withdraw(account AccountId, a asset.Id, v amount.Amount) error
	Transfer(from, to AccountId, a asset.Id, v amount.Amount) error

	Balance(account AccountId, a asset.Id) amount.Amount
	Inventory() Inventory
	AccountBalances(account AccountId) Inventory
	HasSufficient(account AccountId, a asset.Id, required amount.Amount) bool

	CreateAccount(account AccountId) error
	ListAccounts() []AccountId

	Snapshot() Snapshot
	Restore(snap Snapshot) error
}

func negativeAmountErr(verb string) error {
	return fmt.Errorf("%w: %s amount must be non-negative", ErrInvalidAmount, verb)
}
