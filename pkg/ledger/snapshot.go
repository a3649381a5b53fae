package ledger

import "github.com/chainsafe/remittance-ledger/pkg/ledgertypes"

// State is a flat, JSON-friendly dump of every map the Ledger holds. It
// exists so pkg/snapshot can marshal the whole balance state into a single
// persisted row without reaching into Ledger's unexported fields.
type State struct {
	Available       []AvailableEntry       `json:"available"`
	Withheld        []WithheldEntry        `json:"withheld"`
	WithheldAmounts []WithheldAmountsEntry `json:"withheld_amounts"`
	CanisterPool    []CanisterPoolEntry    `json:"canister_pool"`
	Receipts        []ReceiptEntry         `json:"receipts"`
}

// AvailableEntry is one (key, balance) pair from the available map.
type AvailableEntry struct {
	Token   ledgertypes.Wallet          `json:"token"`
	Chain   ledgertypes.Chain           `json:"chain"`
	Account ledgertypes.Wallet          `json:"account"`
	DC      ledgertypes.SourcePrincipal `json:"dc"`
	Balance uint64                      `json:"balance"`
}

// WithheldEntry is one outstanding withdrawal authorization.
type WithheldEntry struct {
	Token     ledgertypes.Wallet          `json:"token"`
	Chain     ledgertypes.Chain           `json:"chain"`
	Account   ledgertypes.Wallet          `json:"account"`
	DC        ledgertypes.SourcePrincipal `json:"dc"`
	Amount    uint64                      `json:"amount"`
	Signature string                      `json:"signature"`
	Nonce     uint64                      `json:"nonce"`
}

// WithheldAmountsEntry is the multiset of outstanding withheld amounts for
// one (token, chain, account, dc) key.
type WithheldAmountsEntry struct {
	Token   ledgertypes.Wallet          `json:"token"`
	Chain   ledgertypes.Chain           `json:"chain"`
	Account ledgertypes.Wallet          `json:"account"`
	DC      ledgertypes.SourcePrincipal `json:"dc"`
	Amounts []uint64                    `json:"amounts"`
}

// CanisterPoolEntry is one data source's custodial capacity for a token/chain.
type CanisterPoolEntry struct {
	Token   ledgertypes.Wallet          `json:"token"`
	Chain   ledgertypes.Chain           `json:"chain"`
	DC      ledgertypes.SourcePrincipal `json:"dc"`
	Balance uint64                      `json:"balance"`
}

// ReceiptEntry is one confirmed withdrawal receipt.
type ReceiptEntry struct {
	DC      ledgertypes.SourcePrincipal `json:"dc"`
	Nonce   uint64                      `json:"nonce"`
	Receipt RemittanceReceipt           `json:"receipt"`
}

// Snapshot dumps the entire ledger state for persistence.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := State{
		Available:       make([]AvailableEntry, 0, len(l.available)),
		Withheld:        make([]WithheldEntry, 0, len(l.withheld)),
		WithheldAmounts: make([]WithheldAmountsEntry, 0, len(l.withheldAmount)),
		CanisterPool:    make([]CanisterPoolEntry, 0, len(l.canisterPool)),
		Receipts:        make([]ReceiptEntry, 0, len(l.receipts)),
	}

	for k, v := range l.available {
		s.Available = append(s.Available, AvailableEntry{Token: k.Token, Chain: k.Chain, Account: k.Account, DC: k.DC, Balance: v})
	}
	for k, v := range l.withheld {
		s.Withheld = append(s.Withheld, WithheldEntry{
			Token: k.Token, Chain: k.Chain, Account: k.Account, DC: k.DC, Amount: k.Amount,
			Signature: v.Signature, Nonce: v.Nonce,
		})
	}
	for k, v := range l.withheldAmount {
		amounts := make([]uint64, len(v))
		copy(amounts, v)
		s.WithheldAmounts = append(s.WithheldAmounts, WithheldAmountsEntry{Token: k.Token, Chain: k.Chain, Account: k.Account, DC: k.DC, Amounts: amounts})
	}
	for k, v := range l.canisterPool {
		s.CanisterPool = append(s.CanisterPool, CanisterPoolEntry{Token: k.Token, Chain: k.Chain, DC: k.DC, Balance: v})
	}
	for k, v := range l.receipts {
		s.Receipts = append(s.Receipts, ReceiptEntry{DC: k.DC, Nonce: k.Nonce, Receipt: v})
	}
	return s
}

// Restore replaces the ledger's state wholesale from a previously taken
// Snapshot, used by pkg/snapshot after a process restart.
func (l *Ledger) Restore(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.available = make(map[AvailableKey]uint64, len(s.Available))
	for _, e := range s.Available {
		l.available[availableKey(e.Token, e.Chain, e.Account, e.DC)] = e.Balance
	}

	l.withheld = make(map[WithheldKey]WithheldAccount, len(s.Withheld))
	for _, e := range s.Withheld {
		l.withheld[withheldKey(e.Token, e.Chain, e.Account, e.DC, e.Amount)] = WithheldAccount{
			Balance: e.Amount, Signature: e.Signature, Nonce: e.Nonce,
		}
	}

	l.withheldAmount = make(map[WithheldAmountsKey][]uint64, len(s.WithheldAmounts))
	for _, e := range s.WithheldAmounts {
		amounts := make([]uint64, len(e.Amounts))
		copy(amounts, e.Amounts)
		l.withheldAmount[withheldAmountsKey(e.Token, e.Chain, e.Account, e.DC)] = amounts
	}

	l.canisterPool = make(map[CanisterPoolKey]uint64, len(s.CanisterPool))
	for _, e := range s.CanisterPool {
		l.canisterPool[canisterPoolKey(e.Token, e.Chain, e.DC)] = e.Balance
	}

	l.receipts = make(map[ReceiptKey]RemittanceReceipt, len(s.Receipts))
	for _, e := range s.Receipts {
		l.receipts[ReceiptKey{DC: e.DC, Nonce: e.Nonce}] = e.Receipt
	}
}
