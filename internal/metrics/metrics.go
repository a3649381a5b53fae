package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events applied to the ledger by action and data source.
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remittance_events_ingested_total",
			Help: "Total number of ledger events ingested",
		},
		[]string{"action", "dc"},
	)

	// BatchesRejected counts event batches rejected by the validator, by reason.
	BatchesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remittance_batches_rejected_total",
			Help: "Total number of event batches rejected by the validator",
		},
		[]string{"reason"},
	)

	// RemitCalls counts remit() invocations by outcome.
	RemitCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remittance_remit_calls_total",
			Help: "Total number of remit() invocations by outcome",
		},
		[]string{"outcome"},
	)

	// SignDuration tracks the latency of a whole remit() call, including the
	// signing oracle call when a fresh authorization is issued.
	SignDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remittance_sign_duration_seconds",
			Help:    "Latency of remit() calls, including the signing oracle call on fresh issuance",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AvailableBalance mirrors the current available balance per token/chain/dc.
	AvailableBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remittance_available_balance",
			Help: "Current available balance by token, chain and data source",
		},
		[]string{"token", "chain", "dc"},
	)

	// WithheldBalance mirrors the current withheld balance per token/chain/dc.
	WithheldBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remittance_withheld_balance",
			Help: "Current withheld balance by token, chain and data source",
		},
		[]string{"token", "chain", "dc"},
	)

	// CanisterPoolBalance mirrors the per-data-source custodial pool balance.
	CanisterPoolBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "remittance_canister_pool_balance",
			Help: "Current canister pool balance by data source",
		},
		[]string{"dc"},
	)

	// ReceiptsTotal counts confirmed withdrawal receipts by data source.
	ReceiptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remittance_receipts_total",
			Help: "Total number of confirmed withdrawal receipts",
		},
		[]string{"dc"},
	)

	// SnapshotDuration tracks how long a full ledger snapshot save or restore takes.
	SnapshotDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remittance_snapshot_duration_seconds",
			Help:    "Duration of snapshot save/restore operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// AccessDenied counts requests rejected by owner/publisher access checks.
	AccessDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remittance_access_denied_total",
			Help: "Total number of requests denied by access control",
		},
		[]string{"endpoint"},
	)

	// ErrorsTotal counts errors by component and category.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remittance_errors_total",
			Help: "Total number of errors by component and category",
		},
		[]string{"component", "category"},
	)
)
