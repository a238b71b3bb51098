package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/angelcrypto/referral-ledger/internal/metrics"
	"github.com/angelcrypto/referral-ledger/pkg/referral"
)

const serviceName = "ReferralLedgerService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the referral ledger Service.
// It logs method entry/exit, duration and errors, and records operation
// latency metrics.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// RegisterReferral wraps the service method with logging
func (ls *logService) RegisterReferral(
	ctx context.Context,
	req *referral.RegisterReferralRequest,
) (resp *referral.RegisterReferralResponse, err error) {
	start := time.Now()

	ls.logger.Info("RegisterReferral started",
		zap.String("service", serviceName),
		zap.String("method", "RegisterReferral"),
		zap.String("new_user_wallet", req.NewUserWallet),
		zap.String("inviter_wallet", req.InviterWallet),
	)

	defer func() {
		duration := time.Since(start)
		metrics.OperationDuration.WithLabelValues("register_referral").Observe(duration.Seconds())

		if err != nil {
			ls.logger.Error("RegisterReferral failed",
				zap.String("service", serviceName),
				zap.String("method", "RegisterReferral"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("RegisterReferral completed",
				zap.String("service", serviceName),
				zap.String("method", "RegisterReferral"),
				zap.Int64("inviter_id", resp.Inviter.ID),
				zap.Int64("new_user_id", resp.NewUser.ID),
				zap.Int64("inviter_invites_count", resp.Inviter.InvitesCount),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.RegisterReferral(ctx, req)
}

// GrantWelcomeBonus wraps the service method with logging
func (ls *logService) GrantWelcomeBonus(ctx context.Context, userID int64) (resp *referral.WelcomeBonusResponse, err error) {
	start := time.Now()

	ls.logger.Info("GrantWelcomeBonus started",
		zap.String("service", serviceName),
		zap.String("method", "GrantWelcomeBonus"),
		zap.Int64("user_id", userID),
	)

	defer func() {
		duration := time.Since(start)
		metrics.OperationDuration.WithLabelValues("grant_welcome_bonus").Observe(duration.Seconds())

		if err != nil {
			ls.logger.Error("GrantWelcomeBonus failed",
				zap.String("service", serviceName),
				zap.String("method", "GrantWelcomeBonus"),
				zap.Int64("user_id", userID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("GrantWelcomeBonus completed",
				zap.String("service", serviceName),
				zap.String("method", "GrantWelcomeBonus"),
				zap.Int64("user_id", userID),
				zap.Int64("record_id", resp.RecordID),
				zap.String("balance", resp.Balance),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.GrantWelcomeBonus(ctx, userID)
}

// GenerateInviteLink wraps the service method with logging
func (ls *logService) GenerateInviteLink(ctx context.Context, walletAddress string) (resp *referral.InviteLinkResponse, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		metrics.OperationDuration.WithLabelValues("generate_invite_link").Observe(duration.Seconds())

		if err != nil {
			ls.logger.Error("GenerateInviteLink failed",
				zap.String("service", serviceName),
				zap.String("method", "GenerateInviteLink"),
				zap.String("wallet", walletAddress),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("GenerateInviteLink completed",
				zap.String("service", serviceName),
				zap.String("method", "GenerateInviteLink"),
				zap.String("wallet", walletAddress),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.GenerateInviteLink(ctx, walletAddress)
}

// Reconcile wraps the service method with logging
func (ls *logService) Reconcile(ctx context.Context, userID int64) (resp *referral.ReconcileResponse, err error) {
	start := time.Now()

	ls.logger.Info("Reconcile started",
		zap.String("service", serviceName),
		zap.String("method", "Reconcile"),
		zap.Int64("user_id", userID),
	)

	defer func() {
		duration := time.Since(start)
		metrics.OperationDuration.WithLabelValues("reconcile").Observe(duration.Seconds())

		if err != nil {
			ls.logger.Error("Reconcile failed",
				zap.String("service", serviceName),
				zap.String("method", "Reconcile"),
				zap.Int64("user_id", userID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Reconcile completed",
				zap.String("service", serviceName),
				zap.String("method", "Reconcile"),
				zap.Int64("user_id", userID),
				zap.Int("issue_count", len(resp.Issues)),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Reconcile(ctx, userID)
}

// SettlePendingInvitations wraps the service method with logging
func (ls *logService) SettlePendingInvitations(ctx context.Context, limit int) (settled int, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		metrics.OperationDuration.WithLabelValues("settle_pending_invitations").Observe(duration.Seconds())

		if err != nil {
			ls.logger.Error("SettlePendingInvitations failed",
				zap.String("service", serviceName),
				zap.String("method", "SettlePendingInvitations"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else if settled > 0 {
			ls.logger.Info("SettlePendingInvitations completed",
				zap.String("service", serviceName),
				zap.String("method", "SettlePendingInvitations"),
				zap.Int("settled", settled),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.SettlePendingInvitations(ctx, limit)
}
