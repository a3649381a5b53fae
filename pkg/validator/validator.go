// Package validator enforces the per-producer well-formedness and
// solvency rules a batch of events must satisfy before the ledger ever
// mutates. Validation is pure: it reads ledger balances but never writes.
// On any failure the whole batch is rejected atomically.
package validator

import (
	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
	"github.com/chainsafe/remittance-ledger/pkg/ledger"
	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
)

// BalanceReader is the read-only subset of *ledger.Ledger the validator
// depends on, so unit tests can substitute a fake without a real ledger.
type BalanceReader interface {
	Available(token ledgertypes.Wallet, chain ledgertypes.Chain, account ledgertypes.Wallet, dc ledgertypes.SourcePrincipal) uint64
	CanisterPool(token ledgertypes.Wallet, chain ledgertypes.Chain, dc ledgertypes.SourcePrincipal) uint64
}

var _ BalanceReader = (*ledger.Ledger)(nil)

// ValidatePlainDC enforces the plain-data-collector batch rules:
//
//	(i) every event is an Adjust,
//	(ii) the batch's amounts sum to zero,
//	(iii) every negative-amount event has sufficient available balance,
//	(iv) every positive-amount event has sufficient canister pool capacity.
func ValidatePlainDC(r BalanceReader, batch []ledgertypes.DataModel, dc ledgertypes.SourcePrincipal) error {
	var sum int64
	for _, e := range batch {
		if e.Action != ledgertypes.ActionAdjust {
			return apperrors.Validation(apperrors.CodeInvalidActionFound,
				"plain data collector batches may only contain Adjust events", nil)
		}
		sum += e.Amount
	}
	if sum != 0 {
		return apperrors.Validation(apperrors.CodeSumAdjustAmountsNotZero,
			"sum of adjust amounts in batch must be zero", nil)
	}

	for _, e := range batch {
		switch {
		case e.Amount < 0:
			need := uint64(-e.Amount)
			if r.Available(e.Token, e.Chain, e.Account, dc) < need {
				return apperrors.Validation(apperrors.CodeInsufficientUserBalance,
					"adjust would underflow available balance", nil)
			}
		case e.Amount > 0:
			need := uint64(e.Amount)
			if r.CanisterPool(e.Token, e.Chain, dc) < need {
				return apperrors.Validation(apperrors.CodeInsufficientCanisterBalance,
					"adjust exceeds canister pool capacity", nil)
			}
		}
	}
	return nil
}

// ValidateProtocolDC enforces the protocol-data-collector batch rules:
// the Adjust sub-batch must satisfy ValidatePlainDC, and
// every non-Adjust event (Deposit/Withdraw/CancelWithdraw) must carry a
// strictly positive amount. There is no sum constraint on non-adjusts.
func ValidateProtocolDC(r BalanceReader, batch []ledgertypes.DataModel, dc ledgertypes.SourcePrincipal) error {
	adjustBatch := make([]ledgertypes.DataModel, 0, len(batch))
	for _, e := range batch {
		if e.Action == ledgertypes.ActionAdjust {
			adjustBatch = append(adjustBatch, e)
			continue
		}
		if e.Amount <= 0 {
			return apperrors.Validation(apperrors.CodeNonAdjustAmountMustBeGT0,
				"non-adjust events must carry a strictly positive amount", nil)
		}
	}
	return ValidatePlainDC(r, adjustBatch, dc)
}

// Validate dispatches to ValidatePlainDC or ValidateProtocolDC depending
// on whether dc is a registered protocol data collector.
func Validate(r BalanceReader, batch []ledgertypes.DataModel, dc ledgertypes.SourcePrincipal, isProtocolDC bool) error {
	if isProtocolDC {
		return ValidateProtocolDC(r, batch, dc)
	}
	return ValidatePlainDC(r, batch, dc)
}
