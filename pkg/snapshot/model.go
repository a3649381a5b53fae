// Package snapshot persists the ledger's and registries' in-memory state
// to Postgres so a process restart observes exactly the state the last
// successful save left behind.
//
// The ledger's state is a handful of maps with no natural primary key of
// their own, so it is persisted as one row of JSON columns rather than
// one row per balance entry - the upgrade-snapshot use case needs a
// single atomic save/restore, not per-entry querying.
package snapshot

import (
	"time"

	"github.com/uptrace/bun"
)

// Dao is the bun model for the single-row snapshots table. ID is always 1;
// Save upserts that row so the table never grows.
type Dao struct {
	bun.BaseModel `bun:"table:snapshots"`

	ID              int64     `bun:",pk"`
	AvailableJSON   []byte    `bun:"available_json,type:jsonb,notnull"`
	WithheldJSON    []byte    `bun:"withheld_json,type:jsonb,notnull"`
	WithheldAmtJSON []byte    `bun:"withheld_amounts_json,type:jsonb,notnull"`
	CanisterJSON    []byte    `bun:"canister_pool_json,type:jsonb,notnull"`
	ReceiptsJSON    []byte    `bun:"receipts_json,type:jsonb,notnull"`
	SubscriberJSON  []byte    `bun:"subscriber_json,type:jsonb,notnull"`
	DCPrincipals    []byte    `bun:"dc_principals_json,type:jsonb,notnull"`
	ProtocolDCFlags []byte    `bun:"protocol_dc_flags_json,type:jsonb,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// snapshotRowID is the fixed primary key of the single snapshots row.
const snapshotRowID = 1
