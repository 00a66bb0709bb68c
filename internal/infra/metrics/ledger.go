package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerTransactionsTotal,
		ledgerPointsTotal,
		ledgerInvariantViolationsTotal,
		txConflictRetriesTotal,
	)
}

var (
	ledgerTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_ledger_transactions_total",
			Help: "Ledger transactions by type and result (recorded/rejected/failed).",
		},
		[]string{"type", "result"},
	)

	ledgerPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_ledger_points_total",
			Help: "Absolute points moved through the ledger, by direction (credit/debit).",
		},
		[]string{"direction"},
	)

	ledgerInvariantViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_ledger_invariant_violations_total",
			Help: "Times an account balance did not match the sum of its ledger. Must stay at zero.",
		},
	)

	txConflictRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_tx_conflict_retries_total",
			Help: "Transaction attempts retried after a concurrency conflict, by operation.",
		},
		[]string{"operation"},
	)
)

func IncLedgerTransaction(txType, result string) {
	ledgerTransactionsTotal.WithLabelValues(norm(txType), norm(result)).Inc()
}

func AddLedgerPoints(delta int64) {
	if delta >= 0 {
		ledgerPointsTotal.WithLabelValues("credit").Add(float64(delta))
		return
	}
	ledgerPointsTotal.WithLabelValues("debit").Add(float64(-delta))
}

func IncInvariantViolation() {
	ledgerInvariantViolationsTotal.Inc()
}

func IncConflictRetry(operation string) {
	txConflictRetriesTotal.WithLabelValues(norm(operation)).Inc()
}
