package ledgerstore

import (
	"context"
	"errors"

	"github.com/angelcrypto/referral-ledger/pkg/ledger"
)

var (
	// ErrInvitationNotFound is returned when no invitation matches the lookup
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationExists is returned when the inviter/invitee pair already has an invitation
	ErrInvitationExists = errors.New("invitation already recorded")
	// ErrRewardExists is returned when an equivalent reward was already recorded
	ErrRewardExists = errors.New("reward already recorded")
)

// Store persists invitations and reward records.
//
// RecordInvitation and RecordReward are transactional: the ledger row and
// the matching user-side update (invites_count, balances) land or roll
// back together, so a duplicate-row error always means the previous
// attempt fully applied.
type Store interface {
	RecordInvitation(ctx context.Context, inv *ledger.Invitation) error
	InsertInvitation(ctx context.Context, inv *ledger.Invitation) error
	CompleteInvitation(ctx context.Context, invitationID int64) error
	GetInvitation(ctx context.Context, invitationID int64) (*ledger.Invitation, error)
	FindInvitationByPair(ctx context.Context, inviterID, inviteeID int64) (*ledger.Invitation, error)
	FindInvitationsByInviter(ctx context.Context, inviterID int64) ([]*ledger.Invitation, error)
	ListPendingInvitations(ctx context.Context, limit int) ([]*ledger.Invitation, error)

	RecordReward(ctx context.Context, rec *ledger.RewardRecord) error
	InsertReward(ctx context.Context, rec *ledger.RewardRecord) error
	FindRewardsByUser(ctx context.Context, userID int64) ([]*ledger.RewardRecord, error)
	HasWelcomeReward(ctx context.Context, userID int64) (bool, error)
	HasReward(ctx context.Context, invitationID int64, rewardType ledger.RewardType) (bool, error)
}
