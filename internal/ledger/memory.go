package ledger

import (
	"fmt"
	"sync"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
)

// MemoryLedger is an in-memory Ledger, suitable for tests and demos.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[AccountId]Inventory
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[AccountId]Inventory)}
}

// WithAccounts pre-funds a new in-memory ledger with the given starting
// balances.
func WithAccounts(accounts map[AccountId]Inventory) *MemoryLedger {
	m := NewMemoryLedger()
	for id, inv := range accounts {
		m.accounts[id] = inv.Clone()
	}
	return m
}

func (m *MemoryLedger) getOrCreate(account AccountId) Inventory {
	inv, ok := m.accounts[account]
	if !ok {
		inv = NewInventory()
		m.accounts[account] = inv
	}
	return inv
}

// Deposit implements Ledger.
func (m *MemoryLedger) Deposit(account AccountId, a asset.Id, v amount.Amount) error {
	if v.IsNegative() {
		return negativeAmountErr("deposit")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(account).Add(a, v)
	return nil
}

// Withdraw implements Ledger.
func (m *MemoryLedger) Withdraw(account AccountId, a asset.Id, v amount.Amount) error {
	if v.IsNegative() {
		return negativeAmountErr("withdraw")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getOrCreate(account).Get(a).Cmp(v) < 0 {
		return fmt.Errorf("%w: account %s asset %s", ErrInsufficientBalance, account, a)
	}
	m.getOrCreate(account).Sub(a, v)
	return nil
}

// Transfer implements Ledger.
func (m *MemoryLedger) Transfer(from, to AccountId, a asset.Id, v amount.Amount) error {
	if v.IsNegative() {
		return negativeAmountErr("transfer")
	}
	if v.IsZero() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getOrCreate(from).Get(a).Cmp(v) < 0 {
		return fmt.Errorf("%w: account %s asset %s", ErrInsufficientBalance, from, a)
	}
	m.getOrCreate(from).Sub(a, v)
	m.getOrCreate(to).Add(a, v)
	return nil
}

// Balance implements Ledger.
func (m *MemoryLedger) Balance(account AccountId, a asset.Id) amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.accounts[account]
	if !ok {
		return amount.Zero
	}
	return inv.Get(a)
}

// Inventory implements Ledger: the sum of every account's balances.
func (m *MemoryLedger) Inventory() Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := NewInventory()
	for _, inv := range m.accounts {
		for a, v := range inv {
			if !v.IsZero() {
				total.Add(a, v)
			}
		}
	}
	return total
}

// AccountBalances implements Ledger.
func (m *MemoryLedger) AccountBalances(account AccountId) Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.accounts[account]
	if !ok {
		return NewInventory()
	}
	return inv.Clone()
}

// HasSufficient implements Ledger.
func (m *MemoryLedger) HasSufficient(account AccountId, a asset.Id, required amount.Amount) bool {
	return m.Balance(account, a).Cmp(required) >= 0
}

// CreateAccount implements Ledger.
func (m *MemoryLedger) CreateAccount(account AccountId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreate(account)
	return nil
}

// ListAccounts implements Ledger.
func (m *MemoryLedger) ListAccounts() []AccountId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AccountId, 0, len(m.accounts))
	for id := range m.accounts {
		out = append(out, id)
	}
	return out
}

// Snapshot implements Ledger.
func (m *MemoryLedger) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make(map[AccountId]Inventory, len(m.accounts))
	for id, inv := range m.accounts {
		accounts[id] = inv.Clone()
	}
	return Snapshot{Accounts: accounts}
}

// Restore implements Ledger.
func (m *MemoryLedger) Restore(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make(map[AccountId]Inventory, len(snap.Accounts))
	for id, inv := range snap.Accounts {
		accounts[id] = inv.Clone()
	}
	m.accounts = accounts
	return nil
}
