package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskpay",
		Name:      "ledger_entries_total",
		Help:      "Ledger entries written, by category.",
	}, []string{"category"})

	LedgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskpay",
		Name:      "ledger_amount_total",
		Help:      "Absolute amount moved through the ledger, by category.",
	}, []string{"category"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskpay",
		Name:      "transitions_total",
		Help:      "Submission and withdrawal state transitions.",
	}, []string{"kind", "status"})

	ReferralBonuses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taskpay",
		Name:      "referral_bonuses_total",
		Help:      "Referral bonuses paid, by trigger.",
	}, []string{"trigger"})

	BansLifted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "taskpay",
		Name:      "bans_lifted_total",
		Help:      "Temporary bans lifted by the sweeper.",
	})
)
