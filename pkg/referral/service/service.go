package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/angelcrypto/referral-ledger/internal/metrics"
	apperrors "github.com/angelcrypto/referral-ledger/pkg/app/errors"
	"github.com/angelcrypto/referral-ledger/pkg/ledger"
	"github.com/angelcrypto/referral-ledger/pkg/ledgerstore"
	"github.com/angelcrypto/referral-ledger/pkg/referral"
	"github.com/angelcrypto/referral-ledger/pkg/user"
	"github.com/angelcrypto/referral-ledger/pkg/userstore"
	"github.com/angelcrypto/referral-ledger/pkg/wallet"
)

var (
	ErrInvalidInput     = errors.New("invalid wallet address")
	ErrSelfReferral     = errors.New("self referral is not allowed")
	ErrInviterNotFound  = errors.New("inviter not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyReferred  = errors.New("user already referred")
	ErrAlreadyClaimed   = errors.New("welcome bonus already claimed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// UserStore is the narrow data-access interface the ledger service needs
// from the user store. Defined here to keep the service decoupled from
// the userstore implementation.
type UserStore interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByID(ctx context.Context, id int64) (*user.User, error)
	GetUserByWallet(ctx context.Context, walletAddress string) (*user.User, error)
	ListUsersReferredBy(ctx context.Context, inviterID int64) ([]*user.User, error)
	ClaimReferral(ctx context.Context, userID, inviterID int64) (bool, error)
}

// LedgerStore is the narrow data-access interface for invitations and
// reward records. RecordInvitation and RecordReward are transactional:
// the ledger row and its user-side update land or roll back together.
type LedgerStore interface {
	RecordInvitation(ctx context.Context, inv *ledger.Invitation) error
	CompleteInvitation(ctx context.Context, invitationID int64) error
	FindInvitationByPair(ctx context.Context, inviterID, inviteeID int64) (*ledger.Invitation, error)
	FindInvitationsByInviter(ctx context.Context, inviterID int64) ([]*ledger.Invitation, error)
	ListPendingInvitations(ctx context.Context, limit int) ([]*ledger.Invitation, error)
	RecordReward(ctx context.Context, rec *ledger.RewardRecord) error
	FindRewardsByUser(ctx context.Context, userID int64) ([]*ledger.RewardRecord, error)
	HasWelcomeReward(ctx context.Context, userID int64) (bool, error)
}

// Service defines the referral ledger business logic.
type Service interface {
	RegisterReferral(ctx context.Context, req *referral.RegisterReferralRequest) (*referral.RegisterReferralResponse, error)
	GrantWelcomeBonus(ctx context.Context, userID int64) (*referral.WelcomeBonusResponse, error)
	GenerateInviteLink(ctx context.Context, walletAddress string) (*referral.InviteLinkResponse, error)
	Reconcile(ctx context.Context, userID int64) (*referral.ReconcileResponse, error)
	SettlePendingInvitations(ctx context.Context, limit int) (int, error)
}

type ledgerService struct {
	users         UserStore
	ledger        LedgerStore
	rewards       ledger.RewardTable
	inviteBaseURL string
	storeTimeout  time.Duration
	logger        *zap.Logger
}

// NewService creates a new referral ledger service.
func NewService(
	users UserStore,
	ledgerStore LedgerStore,
	rewards ledger.RewardTable,
	inviteBaseURL string,
	storeTimeout time.Duration,
	logger *zap.Logger,
) Service {
	return &ledgerService{
		users:         users,
		ledger:        ledgerStore,
		rewards:       rewards,
		inviteBaseURL: inviteBaseURL,
		storeTimeout:  storeTimeout,
		logger:        logger,
	}
}

// storeCtx bounds a store call so a stuck database surfaces as a timeout
// instead of hanging the request.
func (s *ledgerService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// storeFailure wraps an unexpected store error into the dependency error
// taxonomy. Known sentinels must be handled before calling this.
func storeFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.TimeoutError(fmt.Errorf("%w: %v", ErrStoreUnavailable, err), "store timed out")
	}
	return apperrors.DependencyError(fmt.Errorf("%w: %v", ErrStoreUnavailable, err), "store unavailable")
}

// RegisterReferral records the inviter → new-user edge and credits the
// referral chain up to three levels.
//
// The referred_by claim lands first; the invitation record and the
// inviter's invites_count follow in one transaction, and each reward
// credit pairs the record with its balance update in one transaction.
// A credit that keeps failing leaves the invitation status=pending for
// the background settler, and a request that dies between the claim and
// the invitation is finished by the next registration for the same pair,
// so a crash between steps never loses or double-pays a reward.
func (s *ledgerService) RegisterReferral(
	ctx context.Context,
	req *referral.RegisterReferralRequest,
) (*referral.RegisterReferralResponse, error) {
	newWallet, err := wallet.Normalize(req.NewUserWallet)
	if err != nil {
		return nil, apperrors.BadRequestError(ErrInvalidInput, "invalid new user wallet address")
	}
	inviterWallet, err := wallet.Normalize(req.InviterWallet)
	if err != nil {
		return nil, apperrors.BadRequestError(ErrInvalidInput, "invalid inviter wallet address")
	}
	if newWallet == inviterWallet {
		return nil, apperrors.BadRequestError(ErrSelfReferral, "self referral is not allowed")
	}

	inviter, err := s.getUserByWallet(ctx, inviterWallet)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(ErrInviterNotFound, "inviter not found")
		}
		return nil, storeFailure(err)
	}

	newUser, claimed, err := s.claimNewUser(ctx, newWallet, inviter.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.resumeReferral(ctx, inviter, newUser.ID)
	}
	return s.finishRegistration(ctx, inviter, newUser.ID)
}

// finishRegistration records the invitation, which bumps invites_count in
// the same transaction, then credits the chain.
func (s *ledgerService) finishRegistration(ctx context.Context, inviter *user.User, newUserID int64) (*referral.RegisterReferralResponse, error) {
	inv := &ledger.Invitation{
		InviterID:    inviter.ID,
		InviteeID:    &newUserID,
		InviteCode:   newInviteCode(),
		Status:       ledger.InvitationPending,
		RewardAmount: s.rewards.Level1,
	}
	if err := s.recordInvitation(ctx, inv); err != nil {
		if errors.Is(err, ledgerstore.ErrInvitationExists) {
			// A concurrent request for the same pair got there first.
			metrics.ReferralRegistrations.WithLabelValues("already_referred").Inc()
			return nil, apperrors.ConflictError(ErrAlreadyReferred, "user already referred")
		}
		return nil, storeFailure(err)
	}

	if err := s.settleInvitation(ctx, inv); err != nil {
		// Relationship is recorded; credits resume in the background.
		s.logger.Warn("referral credits left pending",
			zap.Int64("invitation_id", inv.ID),
			zap.Error(err),
		)
	}

	metrics.ReferralRegistrations.WithLabelValues("success").Inc()

	updatedInviter, err := s.getUserByID(ctx, inviter.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	updatedNewUser, err := s.getUserByID(ctx, newUserID)
	if err != nil {
		return nil, storeFailure(err)
	}

	return &referral.RegisterReferralResponse{
		Success: true,
		Inviter: referral.NewUserView(updatedInviter),
		NewUser: referral.NewUserView(updatedNewUser),
	}, nil
}

// resumeReferral handles a registration for a wallet that is already
// referred. A repeat for the same inviter whose invitation never landed
// finishes the interrupted registration; anything else is a conflict.
func (s *ledgerService) resumeReferral(ctx context.Context, inviter *user.User, userID int64) (*referral.RegisterReferralResponse, error) {
	// Re-read; after a lost ClaimReferral race the in-memory copy is stale.
	current, err := s.getUserByID(ctx, userID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if current.ReferredBy == nil || *current.ReferredBy != inviter.ID {
		metrics.ReferralRegistrations.WithLabelValues("already_referred").Inc()
		return nil, apperrors.ConflictError(ErrAlreadyReferred, "user already referred")
	}

	_, err = s.findInvitationByPair(ctx, inviter.ID, current.ID)
	if err == nil {
		metrics.ReferralRegistrations.WithLabelValues("already_referred").Inc()
		return nil, apperrors.ConflictError(ErrAlreadyReferred, "user already referred")
	}
	if !errors.Is(err, ledgerstore.ErrInvitationNotFound) {
		return nil, storeFailure(err)
	}

	// referred_by landed on an earlier attempt but the invitation did not.
	return s.finishRegistration(ctx, inviter, current.ID)
}

// claimNewUser creates the new user with referred_by set, or claims the
// referral on an existing unreferred user. Returns claimed=false when the
// user was already referred, whoever the inviter was.
func (s *ledgerService) claimNewUser(ctx context.Context, walletAddress string, inviterID int64) (*user.User, bool, error) {
	existing, err := s.getUserByWallet(ctx, walletAddress)
	if err == nil {
		return s.claimExisting(ctx, existing, inviterID)
	}
	if !errors.Is(err, userstore.ErrUserNotFound) {
		return nil, false, storeFailure(err)
	}

	newUser := user.New(walletAddress, &inviterID)
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.users.CreateUser(cctx, newUser)
	if err == nil {
		return newUser, true, nil
	}
	if !errors.Is(err, userstore.ErrWalletExists) {
		return nil, false, storeFailure(err)
	}

	// Lost a create race; the wallet landed between the read and the
	// insert. Re-read and claim the existing row instead.
	existing, err = s.getUserByWallet(ctx, walletAddress)
	if err != nil {
		return nil, false, storeFailure(err)
	}
	return s.claimExisting(ctx, existing, inviterID)
}

func (s *ledgerService) claimExisting(ctx context.Context, existing *user.User, inviterID int64) (*user.User, bool, error) {
	if existing.IsReferred() {
		return existing, false, nil
	}
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	claimed, err := s.users.ClaimReferral(cctx, existing.ID, inviterID)
	if err != nil {
		return nil, false, storeFailure(err)
	}
	return existing, claimed, nil
}

// settleInvitation credits referral_l1..l3 up the chain starting at the
// inviter, stopping at the first missing link, and marks the invitation
// completed once every level landed. Safe to call repeatedly: rewards are
// deduplicated per (invitation, level).
func (s *ledgerService) settleInvitation(ctx context.Context, inv *ledger.Invitation) error {
	recipientID := inv.InviterID
	for level := 1; level <= ledger.MaxReferralDepth; level++ {
		amount, ok := s.rewards.ForLevel(level)
		if !ok {
			break
		}

		if err := s.creditReferralReward(ctx, inv.ID, recipientID, level, amount); err != nil {
			// One retry before giving up on this settlement round.
			if err = s.creditReferralReward(ctx, inv.ID, recipientID, level, amount); err != nil {
				return fmt.Errorf("level %d credit failed: %w", level, err)
			}
		}

		next, err := s.getUserByID(ctx, recipientID)
		if err != nil {
			return fmt.Errorf("failed to load level %d recipient: %w", level, err)
		}
		if next.ReferredBy == nil {
			break
		}
		recipientID = *next.ReferredBy
	}

	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.ledger.CompleteInvitation(cctx, inv.ID); err != nil {
		return fmt.Errorf("failed to complete invitation: %w", err)
	}
	inv.Status = ledger.InvitationCompleted
	return nil
}

// creditReferralReward records the reward and its balance credit in one
// transactional store write. A duplicate means a previous attempt fully
// applied this level, so skipping it never loses a credit.
func (s *ledgerService) creditReferralReward(ctx context.Context, invitationID, recipientID int64, level int, amount decimal.Decimal) error {
	rewardType := ledger.ReferralRewardType(level)

	rec := &ledger.RewardRecord{
		UserID:       recipientID,
		RewardType:   rewardType,
		Amount:       amount,
		Description:  fmt.Sprintf("level %d referral reward", level),
		Status:       ledger.RewardCompleted,
		InvitationID: &invitationID,
	}

	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err := s.ledger.RecordReward(cctx, rec)
	if errors.Is(err, ledgerstore.ErrRewardExists) {
		return nil
	}
	if err != nil {
		return err
	}

	metrics.RewardsCredited.WithLabelValues(string(rewardType)).Inc()
	return nil
}

// GrantWelcomeBonus credits the one-time welcome amount. The welcome
// unique index makes concurrent claims first-writer-wins.
func (s *ledgerService) GrantWelcomeBonus(ctx context.Context, userID int64) (*referral.WelcomeBonusResponse, error) {
	usr, err := s.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(ErrUserNotFound, "user not found")
		}
		return nil, storeFailure(err)
	}

	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	claimed, err := s.ledger.HasWelcomeReward(cctx, usr.ID)
	if err != nil {
		return nil, storeFailure(err)
	}
	if claimed {
		return nil, apperrors.ConflictError(ErrAlreadyClaimed, "welcome bonus already claimed")
	}

	rec := &ledger.RewardRecord{
		UserID:      usr.ID,
		RewardType:  ledger.RewardWelcome,
		Amount:      s.rewards.Welcome,
		Description: "welcome bonus",
		Status:      ledger.RewardCompleted,
	}

	ictx, icancel := s.storeCtx(ctx)
	defer icancel()
	err = s.ledger.RecordReward(ictx, rec)
	if errors.Is(err, ledgerstore.ErrRewardExists) {
		return nil, apperrors.ConflictError(ErrAlreadyClaimed, "welcome bonus already claimed")
	}
	if err != nil {
		return nil, storeFailure(err)
	}

	metrics.RewardsCredited.WithLabelValues(string(ledger.RewardWelcome)).Inc()

	updated, err := s.getUserByID(ctx, usr.ID)
	if err != nil {
		return nil, storeFailure(err)
	}

	return &referral.WelcomeBonusResponse{
		Success:  true,
		RecordID: rec.ID,
		Balance:  updated.AngelBalance.String(),
	}, nil
}

// GenerateInviteLink builds the shareable URL for an existing user. Pure
// read, no writes.
func (s *ledgerService) GenerateInviteLink(ctx context.Context, walletAddress string) (*referral.InviteLinkResponse, error) {
	normalized, err := wallet.Normalize(walletAddress)
	if err != nil {
		return nil, apperrors.BadRequestError(ErrInvalidInput, "invalid wallet address")
	}

	usr, err := s.getUserByWallet(ctx, normalized)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(ErrUserNotFound, "user not found")
		}
		return nil, storeFailure(err)
	}

	link, err := buildInviteLink(s.inviteBaseURL, usr.ID)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}

	return &referral.InviteLinkResponse{
		Success: true,
		Link:    link,
	}, nil
}

// Reconcile cross-checks one user's record against the ledger and reports
// discrepancies without repairing anything.
func (s *ledgerService) Reconcile(ctx context.Context, userID int64) (*referral.ReconcileResponse, error) {
	usr, err := s.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, apperrors.ResourceNotFoundError(ErrUserNotFound, "user not found")
		}
		return nil, storeFailure(err)
	}

	rctx, rcancel := s.storeCtx(ctx)
	defer rcancel()
	referred, err := s.users.ListUsersReferredBy(rctx, userID)
	if err != nil {
		return nil, storeFailure(err)
	}

	ictx, icancel := s.storeCtx(ctx)
	defer icancel()
	invitations, err := s.ledger.FindInvitationsByInviter(ictx, userID)
	if err != nil {
		return nil, storeFailure(err)
	}

	wctx, wcancel := s.storeCtx(ctx)
	defer wcancel()
	rewards, err := s.ledger.FindRewardsByUser(wctx, userID)
	if err != nil {
		return nil, storeFailure(err)
	}

	issues := []referral.Issue{}

	if usr.InvitesCount != int64(len(referred)) {
		issues = append(issues, referral.Issue{
			Kind:     referral.IssueInvitesCountMismatch,
			Message:  fmt.Sprintf("invites_count is %d but %d users have referred_by=%d", usr.InvitesCount, len(referred), userID),
			Severity: referral.SeverityError,
		})
	}

	credited := decimal.Zero
	for _, rec := range rewards {
		credited = credited.Add(rec.Amount)
	}
	switch {
	case usr.TotalEarned.LessThan(credited):
		issues = append(issues, referral.Issue{
			Kind:     referral.IssueTotalEarnedMismatch,
			Message:  fmt.Sprintf("total_earned %s is below the credited reward sum %s", usr.TotalEarned, credited),
			Severity: referral.SeverityError,
		})
	case usr.TotalEarned.GreaterThan(credited):
		issues = append(issues, referral.Issue{
			Kind:     referral.IssueTotalEarnedExcess,
			Message:  fmt.Sprintf("total_earned %s exceeds the credited reward sum %s", usr.TotalEarned, credited),
			Severity: referral.SeverityWarning,
		})
	}

	referredIDs := make(map[int64]struct{}, len(referred))
	for _, u := range referred {
		referredIDs[u.ID] = struct{}{}
	}
	invited := make(map[int64]struct{}, len(invitations))
	for _, inv := range invitations {
		if inv.InviteeID == nil {
			continue
		}
		invited[*inv.InviteeID] = struct{}{}
		if _, ok := referredIDs[*inv.InviteeID]; !ok {
			issues = append(issues, referral.Issue{
				Kind:     referral.IssueInvitationOrphaned,
				Message:  fmt.Sprintf("invitation %d names invitee %d who is not referred by user %d", inv.ID, *inv.InviteeID, userID),
				Severity: referral.SeverityError,
			})
		}
	}
	for _, u := range referred {
		if _, ok := invited[u.ID]; !ok {
			issues = append(issues, referral.Issue{
				Kind:     referral.IssueMissingInvitation,
				Message:  fmt.Sprintf("user %d is referred by user %d but has no invitation record", u.ID, userID),
				Severity: referral.SeverityError,
			})
		}
	}

	return &referral.ReconcileResponse{
		Success: true,
		Issues:  issues,
	}, nil
}

// SettlePendingInvitations finishes reward credits for invitations left
// pending by earlier failures. Returns the number settled.
func (s *ledgerService) SettlePendingInvitations(ctx context.Context, limit int) (int, error) {
	lctx, cancel := s.storeCtx(ctx)
	defer cancel()
	pending, err := s.ledger.ListPendingInvitations(lctx, limit)
	if err != nil {
		return 0, storeFailure(err)
	}

	settled := 0
	for _, inv := range pending {
		if err := s.settleInvitation(ctx, inv); err != nil {
			s.logger.Warn("failed to settle pending invitation",
				zap.Int64("invitation_id", inv.ID),
				zap.Error(err),
			)
			continue
		}
		settled++
	}
	return settled, nil
}

func (s *ledgerService) getUserByID(ctx context.Context, id int64) (*user.User, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.users.GetUserByID(cctx, id)
}

func (s *ledgerService) getUserByWallet(ctx context.Context, walletAddress string) (*user.User, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.users.GetUserByWallet(cctx, walletAddress)
}

func (s *ledgerService) recordInvitation(ctx context.Context, inv *ledger.Invitation) error {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.ledger.RecordInvitation(cctx, inv)
}

func (s *ledgerService) findInvitationByPair(ctx context.Context, inviterID, inviteeID int64) (*ledger.Invitation, error) {
	cctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.ledger.FindInvitationByPair(cctx, inviterID, inviteeID)
}

// newInviteCode derives a short invite code from a random UUID.
func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func buildInviteLink(baseURL string, userID int64) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid invite base url: %w", err)
	}
	q := u.Query()
	q.Set("invite", fmt.Sprintf("%d", userID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
