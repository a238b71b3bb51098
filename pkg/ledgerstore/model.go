package ledgerstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/angelcrypto/referral-ledger/pkg/ledger"
)

// InvitationDao is a data access object that maps directly to the 'invitations' table in PostgreSQL.
type InvitationDao struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            int64           `bun:"id,pk,autoincrement"`
	InviterID     int64           `bun:"inviter_id,notnull"`
	InviteeID     *int64          `bun:"invitee_id"`
	InviteCode    string          `bun:"invite_code,unique,notnull,type:varchar(64)"`
	Status        string          `bun:"status,notnull,type:varchar(16),default:'pending'"`
	RewardAmount  decimal.Decimal `bun:"reward_amount,notnull,type:numeric(38,18),default:0"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

// RewardRecordDao is a data access object that maps directly to the 'reward_records' table in PostgreSQL.
type RewardRecordDao struct {
	bun.BaseModel `bun:"table:reward_records,alias:rr"`
	ID            int64           `bun:"id,pk,autoincrement"`
	UserID        int64           `bun:"user_id,notnull"`
	RewardType    string          `bun:"reward_type,notnull,type:varchar(32)"`
	Amount        decimal.Decimal `bun:"amount,notnull,type:numeric(38,18)"`
	Description   string          `bun:"description,notnull,type:varchar(255)"`
	Status        string          `bun:"status,notnull,type:varchar(16),default:'completed'"`
	InvitationID  *int64          `bun:"invitation_id"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
}

func toInvitationDao(inv *ledger.Invitation) *InvitationDao {
	return &InvitationDao{
		ID:           inv.ID,
		InviterID:    inv.InviterID,
		InviteeID:    inv.InviteeID,
		InviteCode:   inv.InviteCode,
		Status:       string(inv.Status),
		RewardAmount: inv.RewardAmount,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}

func toInvitation(dao *InvitationDao) *ledger.Invitation {
	return &ledger.Invitation{
		ID:           dao.ID,
		InviterID:    dao.InviterID,
		InviteeID:    dao.InviteeID,
		InviteCode:   dao.InviteCode,
		Status:       ledger.InvitationStatus(dao.Status),
		RewardAmount: dao.RewardAmount,
		CreatedAt:    dao.CreatedAt,
		UpdatedAt:    dao.UpdatedAt,
	}
}

func toRewardRecordDao(rec *ledger.RewardRecord) *RewardRecordDao {
	return &RewardRecordDao{
		ID:           rec.ID,
		UserID:       rec.UserID,
		RewardType:   string(rec.RewardType),
		Amount:       rec.Amount,
		Description:  rec.Description,
		Status:       string(rec.Status),
		InvitationID: rec.InvitationID,
		CreatedAt:    rec.CreatedAt,
	}
}

func toRewardRecord(dao *RewardRecordDao) *ledger.RewardRecord {
	return &ledger.RewardRecord{
		ID:           dao.ID,
		UserID:       dao.UserID,
		RewardType:   ledger.RewardType(dao.RewardType),
		Amount:       dao.Amount,
		Description:  dao.Description,
		Status:       ledger.RewardStatus(dao.Status),
		InvitationID: dao.InvitationID,
		CreatedAt:    dao.CreatedAt,
	}
}
