// Package walletmetrics exposes prometheus counters and gauges over the
// scanner and assembler's progress, grounded on the teacher's governance
// and reputation packages' use of observable state, generalized to
// github.com/prometheus/client_golang — the metrics library the rest of
// the retrieval pack's service-shaped repos reach for.
package walletmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every series this wallet engine emits.
type Metrics struct {
	BlocksScanned   prometheus.Counter
	NotesReceived   prometheus.Counter
	NotesSpent      prometheus.Counter
	ScanErrors      *prometheus.CounterVec
	LastHeight      prometheus.Gauge
	UnspentBalance  prometheus.Gauge
	TransactionsBuilt prometheus.Counter
}

// New creates and registers a fresh metrics bundle against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veilwallet",
			Name:      "blocks_scanned_total",
			Help:      "Compact blocks successfully scanned.",
		}),
		NotesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veilwallet",
			Name:      "notes_received_total",
			Help:      "Notes discovered and added to the unspent set.",
		}),
		NotesSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veilwallet",
			Name:      "notes_spent_total",
			Help:      "Notes moved from the unspent set to the spent set.",
		}),
		ScanErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veilwallet",
			Name:      "scan_errors_total",
			Help:      "Block scan failures by error kind.",
		}, []string{"kind"}),
		LastHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veilwallet",
			Name:      "last_block_height",
			Help:      "Height of the most recently scanned block.",
		}),
		UnspentBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veilwallet",
			Name:      "unspent_note_count",
			Help:      "Current size of the unspent note set.",
		}),
		TransactionsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veilwallet",
			Name:      "transactions_built_total",
			Help:      "Transactions successfully assembled and finalized.",
		}),
	}

	reg.MustRegister(
		m.BlocksScanned,
		m.NotesReceived,
		m.NotesSpent,
		m.ScanErrors,
		m.LastHeight,
		m.UnspentBalance,
		m.TransactionsBuilt,
	)
	return m
}
