package snapshotdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/chainsafe/remittance-ledger/pkg/pgutil/migrations"
	"github.com/chainsafe/remittance-ledger/pkg/snapshot"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating snapshots table...")
		return mghelper.CreateSchema(ctx, db, &snapshot.Dao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping snapshots table...")
		return mghelper.DropTables(ctx, db, &snapshot.Dao{})
	})
}
