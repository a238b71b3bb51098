package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/angelcrypto/referral-ledger/pkg/pgutil"
	"github.com/angelcrypto/referral-ledger/pkg/user"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the user store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) CreateUser(ctx context.Context, usr *user.User) error {
	dao := toUserDao(usr)

	_, err := s.db.NewInsert().
		Model(dao).
		Returning("id").
		Exec(ctx)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return ErrWalletExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	usr.ID = dao.ID
	return nil
}

func (s *pgStore) GetUser(ctx context.Context, opts ...QueryOption) (*user.User, error) {
	options := &QueryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dao := new(UserDao)
	query := s.db.NewSelect().Model(dao)

	if options.ID != nil {
		query = query.Where("id = ?", *options.ID)
	}
	if options.WalletAddress != nil {
		query = query.Where("wallet_address = ?", *options.WalletAddress)
	}

	err := query.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUser(dao), nil
}

func (s *pgStore) UserExists(ctx context.Context, walletAddress string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*UserDao)(nil)).
		Where("wallet_address = ?", walletAddress).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check user exists: %w", err)
	}
	return exists, nil
}

func (s *pgStore) ListUsersReferredBy(ctx context.Context, inviterID int64) ([]*user.User, error) {
	var daos []UserDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("referred_by = ?", inviterID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list referred users: %w", err)
	}
	users := make([]*user.User, len(daos))
	for i := range daos {
		users[i] = toUser(&daos[i])
	}
	return users, nil
}

// ClaimReferral sets referred_by only when it is still null, so exactly one
// of any concurrent registrations wins the claim.
func (s *pgStore) ClaimReferral(ctx context.Context, userID, inviterID int64) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*UserDao)(nil)).
		Set("referred_by = ?", inviterID).
		Set("updated_at = NOW()").
		Where("id = ? AND referred_by IS NULL", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim referral: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *pgStore) IncrementInvitesCount(ctx context.Context, userID int64) error {
	_, err := s.db.NewUpdate().
		Model((*UserDao)(nil)).
		Set("invites_count = invites_count + 1").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment invites count: %w", err)
	}
	return nil
}

func (s *pgStore) CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_, err := s.db.NewUpdate().
		Model((*UserDao)(nil)).
		Set("angel_balance = COALESCE(angel_balance, 0) + ?::DECIMAL", amount.String()).
		Set("total_earned = COALESCE(total_earned, 0) + ?::DECIMAL", amount.String()).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

func (s *pgStore) GetUserByID(ctx context.Context, id int64) (*user.User, error) {
	return s.GetUser(ctx, WithID(id))
}

func (s *pgStore) GetUserByWallet(ctx context.Context, walletAddress string) (*user.User, error) {
	return s.GetUser(ctx, WithWalletAddress(walletAddress))
}
