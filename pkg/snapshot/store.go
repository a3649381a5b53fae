package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/remittance-ledger/pkg/ledger"
	"github.com/chainsafe/remittance-ledger/pkg/registry"
)

// Store persists and restores the ledger's and registries' full state as
// a single row in Postgres via bun.
type Store struct {
	db *bun.DB
}

// NewStore wraps an already-connected *bun.DB.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Save marshals the current ledger and registry state and upserts it into
// the single snapshots row.
func (s *Store) Save(ctx context.Context, l *ledger.Ledger, subs *registry.SubscriptionRegistry, dcs *registry.DCRegistry) error {
	state := l.Snapshot()

	availableJSON, err := json.Marshal(state.Available)
	if err != nil {
		return fmt.Errorf("marshal available: %w", err)
	}
	withheldJSON, err := json.Marshal(state.Withheld)
	if err != nil {
		return fmt.Errorf("marshal withheld: %w", err)
	}
	withheldAmtJSON, err := json.Marshal(state.WithheldAmounts)
	if err != nil {
		return fmt.Errorf("marshal withheld amounts: %w", err)
	}
	canisterJSON, err := json.Marshal(state.CanisterPool)
	if err != nil {
		return fmt.Errorf("marshal canister pool: %w", err)
	}
	receiptsJSON, err := json.Marshal(state.Receipts)
	if err != nil {
		return fmt.Errorf("marshal receipts: %w", err)
	}
	subscriberJSON, err := json.Marshal(subs.Record())
	if err != nil {
		return fmt.Errorf("marshal subscriber record: %w", err)
	}
	dcPrincipalsJSON, err := json.Marshal(dcs.Principals())
	if err != nil {
		return fmt.Errorf("marshal dc principals: %w", err)
	}
	protocolDCJSON, err := json.Marshal(dcs.ProtocolDCFlags())
	if err != nil {
		return fmt.Errorf("marshal protocol dc flags: %w", err)
	}

	dao := &Dao{
		ID:              snapshotRowID,
		AvailableJSON:   availableJSON,
		WithheldJSON:    withheldJSON,
		WithheldAmtJSON: withheldAmtJSON,
		CanisterJSON:    canisterJSON,
		ReceiptsJSON:    receiptsJSON,
		SubscriberJSON:  subscriberJSON,
		DCPrincipals:    dcPrincipalsJSON,
		ProtocolDCFlags: protocolDCJSON,
		UpdatedAt:       time.Now(),
	}

	_, err = s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id) DO UPDATE").
		Set("available_json = EXCLUDED.available_json").
		Set("withheld_json = EXCLUDED.withheld_json").
		Set("withheld_amounts_json = EXCLUDED.withheld_amounts_json").
		Set("canister_pool_json = EXCLUDED.canister_pool_json").
		Set("receipts_json = EXCLUDED.receipts_json").
		Set("subscriber_json = EXCLUDED.subscriber_json").
		Set("dc_principals_json = EXCLUDED.dc_principals_json").
		Set("protocol_dc_flags_json = EXCLUDED.protocol_dc_flags_json").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Restore loads the persisted snapshot row, if any, into l, subs and dcs.
// It is a no-op (and returns no error) if no snapshot has ever been
// saved, which is every process's first boot.
func (s *Store) Restore(ctx context.Context, l *ledger.Ledger, subs *registry.SubscriptionRegistry, dcs *registry.DCRegistry) error {
	dao := new(Dao)
	err := s.db.NewSelect().Model(dao).Where("id = ?", snapshotRowID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("select snapshot: %w", err)
	}

	var state ledger.State
	if err := json.Unmarshal(dao.AvailableJSON, &state.Available); err != nil {
		return fmt.Errorf("unmarshal available: %w", err)
	}
	if err := json.Unmarshal(dao.WithheldJSON, &state.Withheld); err != nil {
		return fmt.Errorf("unmarshal withheld: %w", err)
	}
	if err := json.Unmarshal(dao.WithheldAmtJSON, &state.WithheldAmounts); err != nil {
		return fmt.Errorf("unmarshal withheld amounts: %w", err)
	}
	if err := json.Unmarshal(dao.CanisterJSON, &state.CanisterPool); err != nil {
		return fmt.Errorf("unmarshal canister pool: %w", err)
	}
	if err := json.Unmarshal(dao.ReceiptsJSON, &state.Receipts); err != nil {
		return fmt.Errorf("unmarshal receipts: %w", err)
	}
	l.Restore(state)

	var record *registry.SubscriberRecord
	if err := json.Unmarshal(dao.SubscriberJSON, &record); err != nil {
		return fmt.Errorf("unmarshal subscriber record: %w", err)
	}
	subs.Restore(record)

	var principals []string
	if err := json.Unmarshal(dao.DCPrincipals, &principals); err != nil {
		return fmt.Errorf("unmarshal dc principals: %w", err)
	}
	var protocolDC map[string]bool
	if err := json.Unmarshal(dao.ProtocolDCFlags, &protocolDC); err != nil {
		return fmt.Errorf("unmarshal protocol dc flags: %w", err)
	}
	dcs.Restore(principals, protocolDC)

	return nil
}
