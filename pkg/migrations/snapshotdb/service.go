// Package snapshotdb holds the migrations for the snapshot store's
// Postgres schema: one file declaring the registry, one file per
// migration registering its up/down with mghelper.
package snapshotdb

import "github.com/uptrace/bun/migrate"

// Migrations is the registry every migration file in this package
// registers itself into via init().
var Migrations = migrate.NewMigrations()
