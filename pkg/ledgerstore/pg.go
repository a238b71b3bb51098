package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/angelcrypto/referral-ledger/pkg/ledger"
	"github.com/angelcrypto/referral-ledger/pkg/pgutil"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the ledger store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// RecordInvitation inserts the invitation and bumps the inviter's
// invites_count in one transaction. A duplicate inviter/invitee pair rolls
// the whole write back and comes back as ErrInvitationExists.
func (s *pgStore) RecordInvitation(ctx context.Context, inv *ledger.Invitation) error {
	dao := toInvitationDao(inv)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(dao).
			Returning("id").
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			TableExpr("users").
			Set("invites_count = COALESCE(invites_count, 0) + 1").
			Set("updated_at = NOW()").
			Where("id = ?", inv.InviterID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows != 1 {
			return fmt.Errorf("inviter %d not found", inv.InviterID)
		}
		return nil
	})
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return ErrInvitationExists
		}
		return fmt.Errorf("failed to record invitation: %w", err)
	}

	inv.ID = dao.ID
	return nil
}

func (s *pgStore) InsertInvitation(ctx context.Context, inv *ledger.Invitation) error {
	dao := toInvitationDao(inv)

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}

	inv.ID = dao.ID
	return nil
}

func (s *pgStore) CompleteInvitation(ctx context.Context, invitationID int64) error {
	_, err := s.db.NewUpdate().
		Model((*InvitationDao)(nil)).
		Set("status = ?", string(ledger.InvitationCompleted)).
		Set("updated_at = NOW()").
		Where("id = ?", invitationID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete invitation: %w", err)
	}
	return nil
}

func (s *pgStore) GetInvitation(ctx context.Context, invitationID int64) (*ledger.Invitation, error) {
	dao := new(InvitationDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", invitationID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return toInvitation(dao), nil
}

func (s *pgStore) FindInvitationByPair(ctx context.Context, inviterID, inviteeID int64) (*ledger.Invitation, error) {
	dao := new(InvitationDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("inviter_id = ? AND invitee_id = ?", inviterID, inviteeID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	return toInvitation(dao), nil
}

func (s *pgStore) FindInvitationsByInviter(ctx context.Context, inviterID int64) ([]*ledger.Invitation, error) {
	var daos []InvitationDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("inviter_id = ?", inviterID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations by inviter: %w", err)
	}
	invs := make([]*ledger.Invitation, len(daos))
	for i := range daos {
		invs[i] = toInvitation(&daos[i])
	}
	return invs, nil
}

func (s *pgStore) ListPendingInvitations(ctx context.Context, limit int) ([]*ledger.Invitation, error) {
	var daos []InvitationDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("status = ? AND invitee_id IS NOT NULL", string(ledger.InvitationPending)).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	invs := make([]*ledger.Invitation, len(daos))
	for i := range daos {
		invs[i] = toInvitation(&daos[i])
	}
	return invs, nil
}

// RecordReward inserts the reward record and applies the matching balance
// credit in one transaction. On a duplicate the whole write rolls back and
// ErrRewardExists is returned, so an existing record always implies the
// credit was applied.
func (s *pgStore) RecordReward(ctx context.Context, rec *ledger.RewardRecord) error {
	dao := toRewardRecordDao(rec)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(dao).
			Returning("id").
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			TableExpr("users").
			Set("angel_balance = COALESCE(angel_balance, 0) + ?::DECIMAL", rec.Amount.String()).
			Set("total_earned = COALESCE(total_earned, 0) + ?::DECIMAL", rec.Amount.String()).
			Set("updated_at = NOW()").
			Where("id = ?", rec.UserID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows != 1 {
			return fmt.Errorf("reward recipient %d not found", rec.UserID)
		}
		return nil
	})
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return ErrRewardExists
		}
		return fmt.Errorf("failed to record reward: %w", err)
	}

	rec.ID = dao.ID
	return nil
}

// InsertReward records a reward row without touching balances. Duplicate
// welcome or per-invitation rewards hit the unique indexes and come back
// as ErrRewardExists.
func (s *pgStore) InsertReward(ctx context.Context, rec *ledger.RewardRecord) error {
	dao := toRewardRecordDao(rec)

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("id").
		Exec(ctx)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return ErrRewardExists
		}
		return fmt.Errorf("failed to insert reward: %w", err)
	}

	rec.ID = dao.ID
	return nil
}

func (s *pgStore) FindRewardsByUser(ctx context.Context, userID int64) ([]*ledger.RewardRecord, error) {
	var daos []RewardRecordDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards by user: %w", err)
	}
	recs := make([]*ledger.RewardRecord, len(daos))
	for i := range daos {
		recs[i] = toRewardRecord(&daos[i])
	}
	return recs, nil
}

func (s *pgStore) HasWelcomeReward(ctx context.Context, userID int64) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*RewardRecordDao)(nil)).
		Where("user_id = ? AND reward_type = ?", userID, string(ledger.RewardWelcome)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check welcome reward: %w", err)
	}
	return exists, nil
}

func (s *pgStore) HasReward(ctx context.Context, invitationID int64, rewardType ledger.RewardType) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*RewardRecordDao)(nil)).
		Where("invitation_id = ? AND reward_type = ?", invitationID, string(rewardType)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check invitation reward: %w", err)
	}
	return exists, nil
}
