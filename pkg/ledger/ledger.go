package ledger

import (
	"math/bits"
	"sync"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
)

// Ledger is the balance state: available and withheld pools per
// (token, chain, account, data-source), the per-data-source canister
// pool, and the receipt log. It is a single struct owned by the request
// dispatcher, guarded by one RWMutex so each read/modify/write sequence
// below is exclusive. An IC canister gets that for free from its
// single-threaded execution model; Go does not, so the mutex is
// load-bearing here.
type Ledger struct {
	mu sync.RWMutex

	available      map[AvailableKey]uint64
	withheld       map[WithheldKey]WithheldAccount
	withheldAmount map[WithheldAmountsKey][]uint64
	canisterPool   map[CanisterPoolKey]uint64
	receipts       map[ReceiptKey]RemittanceReceipt
}

// New constructs an empty Ledger.
func New() *Ledger {
	return &Ledger{
		available:      make(map[AvailableKey]uint64),
		withheld:       make(map[WithheldKey]WithheldAccount),
		withheldAmount: make(map[WithheldAmountsKey][]uint64),
		canisterPool:   make(map[CanisterPoolKey]uint64),
		receipts:       make(map[ReceiptKey]RemittanceReceipt),
	}
}

// Available returns the available balance for the given key.
func (l *Ledger) Available(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.available[availableKey(token, chain, account, dc)]
}

// Withheld returns the sum of outstanding withheld amounts for the given key.
func (l *Ledger) Withheld(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for _, a := range l.withheldAmount[withheldAmountsKey(token, chain, account, dc)] {
		total += a
	}
	return total
}

// WithheldAmounts returns a copy of the outstanding withheld-amount list
// for the given key, used by invariant checks and tests.
func (l *Ledger) WithheldAmounts(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src := l.withheldAmount[withheldAmountsKey(token, chain, account, dc)]
	out := make([]uint64, len(src))
	copy(out, src)
	return out
}

// WithheldEntry returns the cached authorization for a specific withheld
// amount, if one is outstanding.
func (l *Ledger) WithheldEntry(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64) (WithheldAccount, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wa, ok := l.withheld[withheldKey(token, chain, account, dc, amount)]
	return wa, ok
}

// CanisterPool returns the custodial capacity for a data source's token/chain pair.
func (l *Ledger) CanisterPool(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.canisterPool[canisterPoolKey(token, chain, dc)]
}

// Receipt returns the confirmed withdrawal receipt for (dc, nonce).
func (l *Ledger) Receipt(dc ledgertypes.SourcePrincipal, nonce uint64) (RemittanceReceipt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.receipts[ReceiptKey{DC: dc, Nonce: nonce}]
	return r, ok
}

func addU64Checked(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		panic("remittance ledger: uint64 balance overflow")
	}
	return sum
}

// ApplyAdjust applies a signed Adjust event to the available balance. A
// negative amount that would underflow returns INSUFFICIENT_USER_BALANCE
// rather than mutating state - the validator is expected to have already
// checked this, but the ledger itself never leaves a key in an
// inconsistent state even if called directly.
func (l *Ledger) ApplyAdjust(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := availableKey(token, chain, account, dc)
	cur := l.available[key]

	if amount >= 0 {
		l.available[key] = addU64Checked(cur, uint64(amount))
		return nil
	}

	dec := uint64(-amount)
	if dec > cur {
		return apperrors.LedgerState(apperrors.CodeInsufficientUserBalance, "adjust would underflow available balance", nil)
	}
	l.available[key] = cur - dec
	return nil
}

// ApplyDeposit credits both the account's available balance and the data
// source's canister pool by amount. Only protocol data collectors publish
// deposits.
func (l *Ledger) ApplyDeposit(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ak := availableKey(token, chain, account, dc)
	pk := canisterPoolKey(token, chain, dc)

	l.available[ak] = addU64Checked(l.available[ak], amount)
	l.canisterPool[pk] = addU64Checked(l.canisterPool[pk], amount)
}

// ReserveWithheld is the ledger-mutation step of a fresh remit()
// issuance: it moves amount from available to withheld and caches the
// signature/nonce. Callers (pkg/authz) must have already
// confirmed available >= amount; ReserveWithheld re-checks defensively
// and returns REMIT_AMOUNT > AVAILABLE_BALANCE rather than underflowing.
func (l *Ledger) ReserveWithheld(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64, signature string, nonce uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ak := availableKey(token, chain, account, dc)
	avail := l.available[ak]
	if amount > avail {
		return apperrors.LedgerState(apperrors.CodeRemitAmountExceedsAvailable, "remit amount exceeds available balance", nil)
	}

	wak := withheldAmountsKey(token, chain, account, dc)
	wk := withheldKey(token, chain, account, dc, amount)

	l.available[ak] = avail - amount
	l.withheldAmount[wak] = append(l.withheldAmount[wak], amount)
	l.withheld[wk] = WithheldAccount{Balance: amount, Signature: signature, Nonce: nonce}
	return nil
}

// removeOne removes the first occurrence of v from list, returning the
// shortened slice and whether a match was found.
func removeOne(list []uint64, v uint64) ([]uint64, bool) {
	for i, x := range list {
		if x == v {
			out := make([]uint64, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			return out, true
		}
	}
	return list, false
}

// ConfirmWithdrawal applies a Withdraw event: it consumes the withheld
// entry for (key, amount), records a receipt keyed by (dc, the cached
// nonce), and deducts amount from the canister pool. timestampFn supplies
// the process clock reading to stamp the receipt. Fails AMOUNT_NOT_WITHELD
// if no such withheld entry exists.
func (l *Ledger) ConfirmWithdrawal(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64, timestampFn func() uint64) (RemittanceReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wk := withheldKey(token, chain, account, dc, amount)
	entry, ok := l.withheld[wk]
	if !ok {
		return RemittanceReceipt{}, apperrors.LedgerState(apperrors.CodeAmountNotWitheld, "no outstanding withheld entry for this amount", nil)
	}

	wak := withheldAmountsKey(token, chain, account, dc)
	list, removed := removeOne(l.withheldAmount[wak], amount)
	if !removed {
		return RemittanceReceipt{}, apperrors.LedgerState(apperrors.CodeAmountNotWitheld, "withheld amount missing from outstanding list", nil)
	}
	l.withheldAmount[wak] = list
	delete(l.withheld, wk)

	pk := canisterPoolKey(token, chain, dc)
	pool := l.canisterPool[pk]
	if amount > pool {
		panic("remittance ledger: canister pool would go negative on confirm")
	}
	l.canisterPool[pk] = pool - amount

	receipt := RemittanceReceipt{
		Token:     token,
		Chain:     chain,
		Account:   account,
		Amount:    amount,
		Timestamp: timestampFn(),
	}
	l.receipts[ReceiptKey{DC: dc, Nonce: entry.Nonce}] = receipt
	return receipt, nil
}

// CancelWithdrawal applies a CancelWithdraw event: it consumes the
// withheld entry and returns amount to available. It does not create a
// receipt and does not touch the canister pool. Fails AMOUNT_NOT_WITHELD
// if no such withheld entry exists.
func (l *Ledger) CancelWithdrawal(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	wk := withheldKey(token, chain, account, dc, amount)
	if _, ok := l.withheld[wk]; !ok {
		return apperrors.LedgerState(apperrors.CodeAmountNotWitheld, "no outstanding withheld entry for this amount", nil)
	}

	wak := withheldAmountsKey(token, chain, account, dc)
	list, removed := removeOne(l.withheldAmount[wak], amount)
	if !removed {
		return apperrors.LedgerState(apperrors.CodeAmountNotWitheld, "withheld amount missing from outstanding list", nil)
	}
	l.withheldAmount[wak] = list
	delete(l.withheld, wk)

	ak := availableKey(token, chain, account, dc)
	l.available[ak] = addU64Checked(l.available[ak], amount)
	return nil
}
