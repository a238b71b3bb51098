// Package ledger holds the domain model for the append-only referral ledger:
// invitations (inviter → invitee edges) and reward records (balance credits).
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxReferralDepth is the number of levels credited up the referral chain.
const MaxReferralDepth = 3

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	// InvitationPending means the relationship is recorded but one or more
	// reward credits are still outstanding.
	InvitationPending InvitationStatus = "pending"
	// InvitationCompleted means all reward credits for the invitation landed.
	InvitationCompleted InvitationStatus = "completed"
)

// RewardType identifies what a reward record was credited for.
type RewardType string

const (
	RewardWelcome    RewardType = "welcome"
	RewardReferralL1 RewardType = "referral_l1"
	RewardReferralL2 RewardType = "referral_l2"
	RewardReferralL3 RewardType = "referral_l3"
)

// ReferralRewardType returns the reward type for a referral level in [1, MaxReferralDepth].
func ReferralRewardType(level int) RewardType {
	return RewardType(fmt.Sprintf("referral_l%d", level))
}

// RewardStatus is the lifecycle state of a reward record. Records are
// append-only; completed is terminal.
type RewardStatus string

const (
	RewardPending   RewardStatus = "pending"
	RewardCompleted RewardStatus = "completed"
)

// Invitation is an inviter → invitee edge. InviteeID is nil until the
// invited user registers. Invitations are never deleted.
type Invitation struct {
	ID           int64
	InviterID    int64
	InviteeID    *int64
	InviteCode   string
	Status       InvitationStatus
	RewardAmount decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RewardRecord is a single credit to a user's balance. InvitationID links
// referral credits back to the invitation that caused them and doubles as
// the idempotency key for retries.
type RewardRecord struct {
	ID           int64
	UserID       int64
	RewardType   RewardType
	Amount       decimal.Decimal
	Description  string
	Status       RewardStatus
	InvitationID *int64
	CreatedAt    time.Time
}

// RewardTable holds the configured bonus amounts. Level amounts are
// strictly decreasing: Level1 > Level2 > Level3.
type RewardTable struct {
	Welcome decimal.Decimal
	Level1  decimal.Decimal
	Level2  decimal.Decimal
	Level3  decimal.Decimal
}

// ForLevel returns the reward amount for a referral level in [1, MaxReferralDepth].
func (t RewardTable) ForLevel(level int) (decimal.Decimal, bool) {
	switch level {
	case 1:
		return t.Level1, true
	case 2:
		return t.Level2, true
	case 3:
		return t.Level3, true
	default:
		return decimal.Zero, false
	}
}
