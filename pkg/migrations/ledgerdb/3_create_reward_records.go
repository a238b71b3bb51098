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
		log.Println("creating reward_records table...")
		if err := mghelper.CreateSchema(ctx, db, &ledgerstore.RewardRecordDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &ledgerstore.RewardRecordDao{}, "user_id"); err != nil {
			return err
		}
		// At most one welcome credit per user, first writer wins.
		if err := mghelper.CreatePartialUniqueIndex(ctx, db,
			"reward_records", "uq_reward_records_welcome_once",
			"user_id", "reward_type = 'welcome'"); err != nil {
			return err
		}
		// One credit per invitation and level, so settlement retries never double-pay.
		return mghelper.CreatePartialUniqueIndex(ctx, db,
			"reward_records", "uq_reward_records_invitation_type",
			"invitation_id, reward_type", "invitation_id IS NOT NULL")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping reward_records table...")
		return mghelper.DropTables(ctx, db, &ledgerstore.RewardRecordDao{})
	})
}
