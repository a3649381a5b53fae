package migrations

import (
	"context"
	"testing"

	"github.com/chainsafe/remittance-ledger/pkg/config"
	"github.com/chainsafe/remittance-ledger/pkg/pgutil"
	"github.com/uptrace/bun"
)

// auditDao is a throwaway model shaped like the ledger's persisted rows,
// used only to exercise the schema helpers.
type auditDao struct {
	bun.BaseModel `bun:"table:audit_entries"`
	ID            int64  `bun:",pk,autoincrement"`
	Principal     string `bun:",notnull,type:varchar(100)"`
	Nonce         int64  `bun:",nullzero"`
}

func TestConnectDB_Success(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestConnectDB_InvalidHost(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	}

	db, err := pgutil.ConnectDB(cfg)
	if err == nil {
		db.Close()
		t.Error("ConnectDB() should fail with invalid host")
	}
}

func TestCreateSchema(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := CreateSchema(ctx, db, &auditDao{}); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	pgutil.AssertTableExists(t, db, "audit_entries")

	// Idempotency: a second call must not fail.
	if err := CreateSchema(ctx, db, &auditDao{}); err != nil {
		t.Errorf("CreateSchema() second call failed: %v", err)
	}
}

func TestDropTables(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := CreateSchema(ctx, db, &auditDao{}); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	pgutil.AssertTableExists(t, db, "audit_entries")

	if err := DropTables(ctx, db, &auditDao{}); err != nil {
		t.Fatalf("DropTables() failed: %v", err)
	}
	pgutil.AssertTableNotExists(t, db, "audit_entries")

	// Idempotency: dropping an absent table must not fail.
	if err := DropTables(ctx, db, &auditDao{}); err != nil {
		t.Errorf("DropTables() second call failed: %v", err)
	}
}

func TestTruncateTables(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := CreateSchema(ctx, db, &auditDao{}); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}

	entries := []*auditDao{
		{Principal: "dc-1", Nonce: 11},
		{Principal: "pdc-1", Nonce: 12},
	}
	for _, e := range entries {
		if _, err := db.NewInsert().Model(e).Exec(ctx); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	pgutil.AssertRowCount(t, db, "audit_entries", 2)

	if err := TruncateTables(ctx, db, &auditDao{}); err != nil {
		t.Fatalf("TruncateTables() failed: %v", err)
	}

	pgutil.AssertRowCount(t, db, "audit_entries", 0)
	pgutil.AssertTableExists(t, db, "audit_entries")
}
