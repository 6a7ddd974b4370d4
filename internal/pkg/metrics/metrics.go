// Package metrics exposes Prometheus counters for the ticket economy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlaysConsumed counts successful ticket debits.
	PlaysConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapgame_plays_consumed_total",
		Help: "Number of tickets successfully debited.",
	})

	// PlaysRejected counts consume attempts rejected for exhausted allowance.
	PlaysRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapgame_plays_rejected_total",
		Help: "Number of play attempts rejected with no tickets remaining.",
	})

	// ReferralsCredited counts successfully credited invites.
	ReferralsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapgame_referrals_credited_total",
		Help: "Number of referral bonuses credited.",
	})

	// VisitsRecorded counts recorded daily visits.
	VisitsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapgame_visits_recorded_total",
		Help: "Number of visits recorded.",
	})

	// TxConflicts counts transient transaction conflicts that were retried.
	TxConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tapgame_tx_conflicts_total",
		Help: "Number of transient database conflicts encountered.",
	})
)
