package ledger

import "github.com/chainsafe/remittance-ledger/pkg/ledgertypes"

// WithheldAccount is the cached authorization for one outstanding withheld
// amount: the signature and nonce returned to the caller on issuance, and
// replayed verbatim on an idempotent re-request.
type WithheldAccount struct {
	Balance   uint64
	Signature string
	Nonce     uint64
}

// RemittanceReceipt is an append-only record of a confirmed withdrawal.
type RemittanceReceipt struct {
	Token     ledgertypes.Wallet
	Chain     ledgertypes.Chain
	Account   ledgertypes.Wallet
	Amount    uint64
	Timestamp uint64 // unix nanoseconds, from the process clock
}
