package userstore

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelcrypto/referral-ledger/pkg/user"
)

var (
	// ErrUserNotFound is returned when a user lookup finds no matching record.
	ErrUserNotFound = errors.New("user not found")
	// ErrWalletExists is returned when an insert collides with the
	// wallet_address unique index, meaning a concurrent request created
	// the user first.
	ErrWalletExists = errors.New("wallet address already registered")
)

// Store defines the interface for user data persistence.
//
// CreditBalance and IncrementInvitesCount are atomic SQL increments so
// concurrent referral registrations for the same inviter never lose
// updates. ClaimReferral is a conditional write that succeeds for exactly
// one caller per user.
type Store interface {
	CreateUser(ctx context.Context, user *user.User) error
	GetUser(ctx context.Context, opts ...QueryOption) (*user.User, error)
	UserExists(ctx context.Context, walletAddress string) (bool, error)
	ListUsersReferredBy(ctx context.Context, inviterID int64) ([]*user.User, error)

	// ClaimReferral sets referred_by for the user only if it is currently
	// null. Returns false when the user was already referred.
	ClaimReferral(ctx context.Context, userID, inviterID int64) (bool, error)
	IncrementInvitesCount(ctx context.Context, userID int64) error

	// CreditBalance adds amount to both angel_balance and total_earned.
	CreditBalance(ctx context.Context, userID int64, amount decimal.Decimal) error
}

// QueryOptions defines options for querying users
type QueryOptions struct {
	ID            *int64
	WalletAddress *string
}

// QueryOption is a functional option for querying users
type QueryOption func(*QueryOptions)

// WithID sets the user id filter
func WithID(id int64) QueryOption {
	return func(opts *QueryOptions) {
		opts.ID = &id
	}
}

// WithWalletAddress sets the wallet address filter
func WithWalletAddress(walletAddress string) QueryOption {
	return func(opts *QueryOptions) {
		opts.WalletAddress = &walletAddress
	}
}
