package userstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/angelcrypto/referral-ledger/pkg/user"
)

// UserDao is a data access object that maps directly to the 'users' table in PostgreSQL.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            int64           `bun:"id,pk,autoincrement"`
	WalletAddress string          `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	ReferredBy    *int64          `bun:"referred_by"`
	InvitesCount  int64           `bun:"invites_count,notnull,default:0"`
	AngelBalance  decimal.Decimal `bun:"angel_balance,notnull,type:numeric(38,18),default:0"`
	TotalEarned   decimal.Decimal `bun:"total_earned,notnull,type:numeric(38,18),default:0"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero,default:current_timestamp"`
}

// toUserDao converts a user.User to UserDao.
func toUserDao(usr *user.User) *UserDao {
	return &UserDao{
		ID:            usr.ID,
		WalletAddress: usr.WalletAddress,
		ReferredBy:    usr.ReferredBy,
		InvitesCount:  usr.InvitesCount,
		AngelBalance:  usr.AngelBalance,
		TotalEarned:   usr.TotalEarned,
		CreatedAt:     usr.CreatedAt,
		UpdatedAt:     usr.UpdatedAt,
	}
}

// toUser converts a UserDao to user.User.
func toUser(dao *UserDao) *user.User {
	return &user.User{
		ID:            dao.ID,
		WalletAddress: dao.WalletAddress,
		ReferredBy:    dao.ReferredBy,
		InvitesCount:  dao.InvitesCount,
		AngelBalance:  dao.AngelBalance,
		TotalEarned:   dao.TotalEarned,
		CreatedAt:     dao.CreatedAt,
		UpdatedAt:     dao.UpdatedAt,
	}
}
