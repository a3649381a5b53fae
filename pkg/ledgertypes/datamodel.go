package ledgertypes

import (
	"encoding/json"
	"fmt"

	"github.com/chainsafe/remittance-ledger/pkg/apperrors"
)

// SourcePrincipal identifies the publisher (data collector or protocol data
// collector) a batch of events or a ledger key is associated with. It
// stands in for an Internet Computer canister's caller() principal.
type SourcePrincipal string

// String returns the principal's text representation.
func (p SourcePrincipal) String() string {
	return string(p)
}

// DataModel is the parsed, validated event record the rest of the system
// operates on. amount may be negative only for Adjust actions; for
// Deposit/Withdraw/CancelWithdraw it must be strictly positive.
type DataModel struct {
	Token   Wallet
	Chain   Chain
	Amount  int64
	Account Wallet
	Action  Action
}

// Event is the wire record published by data collectors.
type Event struct {
	EventName  string `json:"event_name"`
	CanisterID string `json:"canister_id"`
	Account    string `json:"account"`
	Amount     int64  `json:"amount"`
	Chain      string `json:"chain"`
	Token      string `json:"token"`
}

// ParseEventBatch decodes a JSON array of wire Events. A malformed
// document fails with JSON_DESERIALIZATION_FAILED; a valid document
// whose top-level shape is not an array of events fails with
// ERROR_PARSING_EVENT_INTO_DATAMODEL.
func ParseEventBatch(raw []byte) ([]Event, error) {
	var doc json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.MalformedInput(apperrors.CodeJSONDeserializationFailed, "failed to deserialize event batch", err)
	}
	var events []Event
	if err := json.Unmarshal(doc, &events); err != nil {
		return nil, apperrors.MalformedInput(apperrors.CodeErrorParsingEventIntoDataModel, "event batch must be a top-level JSON array", err)
	}
	return events, nil
}

// ToDataModel converts a wire Event into a DataModel, parsing the chain
// string, the token/account hex strings, and the event-name into its
// Action. Any malformed field fails the whole batch with PARSE_EVENT_FAILED.
func (e Event) ToDataModel() (DataModel, error) {
	action, ok := EventNameToAction(e.EventName)
	if !ok {
		return DataModel{}, apperrors.MalformedInput(apperrors.CodeParseEventFailed,
			fmt.Sprintf("unrecognized event_name: %s", e.EventName), nil)
	}

	token, err := ParseWallet(e.Token)
	if err != nil {
		return DataModel{}, apperrors.MalformedInput(apperrors.CodeParseEventFailed, "invalid token address", err)
	}

	account, err := ParseWallet(e.Account)
	if err != nil {
		return DataModel{}, apperrors.MalformedInput(apperrors.CodeParseEventFailed, "invalid account address", err)
	}

	chain, err := ParseChain(e.Chain)
	if err != nil {
		return DataModel{}, apperrors.MalformedInput(apperrors.CodeParseEventFailed, "invalid chain", err)
	}

	dm := DataModel{
		Token:   token,
		Chain:   chain,
		Amount:  e.Amount,
		Account: account,
		Action:  action,
	}

	if action != ActionAdjust && dm.Amount <= 0 {
		return DataModel{}, apperrors.MalformedInput(apperrors.CodeParseEventFailed,
			fmt.Sprintf("%s amount must be strictly positive, got %d", action, dm.Amount), nil)
	}

	return dm, nil
}

// ToEvent serializes a DataModel back into its wire Event form. It is the
// inverse of ToDataModel and is used for round-trip encode/decode tests.
func (dm DataModel) ToEvent() (Event, error) {
	name, ok := ActionToEventName(dm.Action)
	if !ok {
		return Event{}, fmt.Errorf("cannot serialize unknown action %v", dm.Action)
	}
	return Event{
		EventName: name,
		Account:   dm.Account.String(),
		Amount:    dm.Amount,
		Chain:     dm.Chain.String(),
		Token:     dm.Token.String(),
	}, nil
}

// ParseEventsToDataModels converts an entire wire batch to DataModels. The
// whole batch is rejected atomically on the first conversion failure.
func ParseEventsToDataModels(events []Event) ([]DataModel, error) {
	models := make([]DataModel, 0, len(events))
	for i, e := range events {
		dm, err := e.ToDataModel()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		models = append(models, dm)
	}
	return models, nil
}
