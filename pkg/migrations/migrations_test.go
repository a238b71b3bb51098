package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"

	"github.com/angelcrypto/referral-ledger/pkg/migrations/ledgerdb"
	"github.com/angelcrypto/referral-ledger/pkg/pgutil"
)

func TestLedgerDBMigrations_Apply(t *testing.T) {
	pgutil.RequireDockerAccess(t)

	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, ledgerdb.Migrations)

	// Initialize migration system
	err := migrator.Init(ctx)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	// Run all migrations up
	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected migrations to run, but none were applied")
	}

	// Verify all expected tables exist
	expectedTables := []string{
		"users",
		"invitations",
		"reward_records",
		"bun_migrations",
	}

	for _, table := range expectedTables {
		pgutil.AssertTableExists(t, db, table)
	}

	// Verify indexes
	pgutil.AssertIndexExists(t, db, "idx_users_referred_by")
	pgutil.AssertIndexExists(t, db, "idx_invitations_inviter_id")
	pgutil.AssertIndexExists(t, db, "idx_invitations_status")
	pgutil.AssertIndexExists(t, db, "uq_invitations_inviter_invitee")
	pgutil.AssertIndexExists(t, db, "idx_reward_records_user_id")
	pgutil.AssertIndexExists(t, db, "uq_reward_records_welcome_once")
	pgutil.AssertIndexExists(t, db, "uq_reward_records_invitation_type")
}

func TestLedgerDBMigrations_Rollback(t *testing.T) {
	pgutil.RequireDockerAccess(t)

	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, ledgerdb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	// Roll everything back
	for {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			t.Fatalf("Rollback() failed: %v", err)
		}
		if group.IsZero() {
			break
		}
	}

	for _, table := range []string{"users", "invitations", "reward_records"} {
		var exists bool
		err := db.NewSelect().
			ColumnExpr("EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ?)", table).
			Scan(ctx, &exists)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if exists {
			t.Errorf("table %s should have been dropped", table)
		}
	}
}
