// Package ledgerdb holds all the migrations for the referral ledger database
package ledgerdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the referral ledger database
var Migrations = migrate.NewMigrations()
