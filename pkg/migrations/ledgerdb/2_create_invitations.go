package ledgerdb

import (
	"context"
	"log"

	"github.com/angelcrypto/referral-ledger/pkg/ledgerstore"
	mghelper "github.com/angelcrypto/referral-ledger/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating invitations table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.InvitationDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &ledgerstore.InvitationDao{}, "inviter_id", "status"); err != nil {
			return err
		}
		// One edge per inviter/invitee pair once the invitee is known.
		return mghelper.CreatePartialUniqueIndex(ctx, db,
			"invitations", "uq_invitations_inviter_invitee",
			"inviter_id, invitee_id", "invitee_id IS NOT NULL")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping invitations table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.InvitationDao{})
	})
}
