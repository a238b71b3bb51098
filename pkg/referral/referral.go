// Package referral holds the request/response surface of the referral
// ledger service.
package referral

import (
	"time"

	"github.com/angelcrypto/referral-ledger/pkg/user"
)

// RegisterReferralRequest links a newly connected wallet to its inviter.
// Addresses are case-insensitive and normalized to lowercase before storage.
type RegisterReferralRequest struct {
	NewUserWallet string `json:"new_user_wallet" validate:"required,eth_addr"`
	InviterWallet string `json:"inviter_wallet" validate:"required,eth_addr"`
}

// UserView is the wire representation of a user record. Balances are
// decimal strings to avoid float precision loss in JSON.
type UserView struct {
	ID            int64     `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	ReferredBy    *int64    `json:"referred_by,omitempty"`
	InvitesCount  int64     `json:"invites_count"`
	AngelBalance  string    `json:"angel_balance"`
	TotalEarned   string    `json:"total_earned"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUserView converts a domain user to its wire representation.
func NewUserView(u *user.User) *UserView {
	return &UserView{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		ReferredBy:    u.ReferredBy,
		InvitesCount:  u.InvitesCount,
		AngelBalance:  u.AngelBalance.String(),
		TotalEarned:   u.TotalEarned.String(),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// RegisterReferralResponse returns both sides of the new referral edge.
type RegisterReferralResponse struct {
	Success bool      `json:"success"`
	Inviter *UserView `json:"inviter"`
	NewUser *UserView `json:"new_user"`
}

// WelcomeBonusRequest asks for the one-time welcome credit.
type WelcomeBonusRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// WelcomeBonusResponse reports the created reward record and the balance
// after the credit.
type WelcomeBonusResponse struct {
	Success  bool   `json:"success"`
	RecordID int64  `json:"record_id"`
	Balance  string `json:"balance"`
}

// InviteLinkResponse carries a shareable invite URL for an existing user.
type InviteLinkResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
}

// IssueSeverity grades a reconciliation finding.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue kinds reported by the reconcile diagnostic.
const (
	IssueInvitesCountMismatch = "invites_count_mismatch"
	IssueTotalEarnedMismatch  = "total_earned_mismatch"
	IssueTotalEarnedExcess    = "total_earned_excess"
	IssueInvitationOrphaned   = "invitation_orphaned"
	IssueMissingInvitation    = "missing_invitation"
)

// Issue is one discrepancy found between a user record and the ledger.
type Issue struct {
	Kind     string        `json:"kind"`
	Message  string        `json:"message"`
	Severity IssueSeverity `json:"severity"`
}

// ReconcileResponse lists ledger discrepancies for one user. Empty issues
// means the ledger is consistent.
type ReconcileResponse struct {
	Success bool    `json:"success"`
	Issues  []Issue `json:"issues"`
}
