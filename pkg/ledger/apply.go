package ledger

import (
	"fmt"

	"github.com/chainsafe/remittance-ledger/pkg/ledgertypes"
)

// ApplyBatch applies an already-validated batch of events in input order.
// It is called only after pkg/validator has accepted the whole batch; it
// does not re-check business rules, only dispatches each event to the
// matching state transition.
func (l *Ledger) ApplyBatch(events []ledgertypes.DataModel, dc ledgertypes.SourcePrincipal, timestampFn func() uint64) error {
	for i, e := range events {
		switch e.Action {
		case ledgertypes.ActionAdjust:
			if err := l.ApplyAdjust(e.Token, e.Chain, e.Account, dc, e.Amount); err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		case ledgertypes.ActionDeposit:
			l.ApplyDeposit(e.Token, e.Chain, e.Account, dc, uint64(e.Amount))
		case ledgertypes.ActionWithdraw:
			if _, err := l.ConfirmWithdrawal(e.Token, e.Chain, e.Account, dc, uint64(e.Amount), timestampFn); err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		case ledgertypes.ActionCancelWithdraw:
			if err := l.CancelWithdrawal(e.Token, e.Chain, e.Account, dc, uint64(e.Amount)); err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
		default:
			return fmt.Errorf("event %d: unhandled action %v", i, e.Action)
		}
	}
	return nil
}
