// Package user holds the domain model for referral ledger users.
package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents the domain model for a wallet-keyed user.
//
// WalletAddress is stored lowercase and is immutable after creation.
// ReferredBy is set at most once, by the referral service; it never
// transitions back to nil.
type User struct {
	ID            int64
	WalletAddress string
	ReferredBy    *int64
	InvitesCount  int64
	AngelBalance  decimal.Decimal
	TotalEarned   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a User for the given lowercase wallet address. referredBy may
// be nil for users who joined without an invite.
func New(walletAddress string, referredBy *int64) *User {
	now := time.Now()
	return &User{
		WalletAddress: walletAddress,
		ReferredBy:    referredBy,
		AngelBalance:  decimal.Zero,
		TotalEarned:   decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsReferred reports whether the user has already been claimed by an inviter.
func (u *User) IsReferred() bool {
	return u.ReferredBy != nil
}
