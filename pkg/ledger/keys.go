// Package ledger holds the remittance balance state: available and
// withheld pools per (token, chain, account, data-source), the canister
// custodial pool, and the append-only receipt log.
package ledger

import (
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
)

// AvailableKey identifies an account's available balance pool.
type AvailableKey struct {
	Token   ledgertypes.Wallet
	Chain   ledgertypes.Chain
	Account ledgertypes.Wallet
	DC      ledgertypes.SourcePrincipal
}

// WithheldKey identifies one outstanding withdrawal authorization.
type WithheldKey struct {
	Token   ledgertypes.Wallet
	Chain   ledgertypes.Chain
	Account ledgertypes.Wallet
	DC      ledgertypes.SourcePrincipal
	Amount  uint64
}

// WithheldAmountsKey identifies the multiset of outstanding withheld
// amounts for an account; it is AvailableKey without the amount dimension.
type WithheldAmountsKey struct {
	Token   ledgertypes.Wallet
	Chain   ledgertypes.Chain
	Account ledgertypes.Wallet
	DC      ledgertypes.SourcePrincipal
}

// CanisterPoolKey identifies a data source's custodial capacity for a token/chain.
type CanisterPoolKey struct {
	Token ledgertypes.Wallet
	Chain ledgertypes.Chain
	DC    ledgertypes.SourcePrincipal
}

// ReceiptKey identifies a confirmed withdrawal receipt.
type ReceiptKey struct {
	DC    ledgertypes.SourcePrincipal
	Nonce uint64
}

func availableKey(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) AvailableKey {
	return AvailableKey{Token: token, Chain: chain, Account: account, DC: dc}
}

func withheldAmountsKey(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) WithheldAmountsKey {
	return WithheldAmountsKey{Token: token, Chain: chain, Account: account, DC: dc}
}

func withheldKey(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal, amount uint64) WithheldKey {
	return WithheldKey{Token: token, Chain: chain, Account: account, DC: dc, Amount: amount}
}

func canisterPoolKey(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal) CanisterPoolKey {
	return CanisterPoolKey{Token: token, Chain: chain, DC: dc}
}
