package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReferralRegistrations counts referral registrations by outcome
	ReferralRegistrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_registrations_total",
			Help: "Total number of referral registration attempts",
		},
		[]string{"status"},
	)

	// RewardsCredited counts reward records credited by type
	RewardsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_rewards_credited_total",
			Help: "Total number of reward records credited",
		},
		[]string{"reward_type"},
	)

	// PendingInvitations tracks invitations awaiting reward settlement
	PendingInvitations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "referral_pending_invitations",
			Help: "Number of invitations with outstanding reward credits",
		},
	)

	// SettlementRuns counts background settlement sweeps by outcome
	SettlementRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_settlement_runs_total",
			Help: "Total number of background settlement sweeps",
		},
		[]string{"status"},
	)

	// OperationDuration tracks service operation latency
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "referral_operation_duration_seconds",
			Help:    "Service operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
