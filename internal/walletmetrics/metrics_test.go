package walletmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAllSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BlocksScanned.Inc()
	m.NotesReceived.Inc()
	m.LastHeight.Set(100)
	m.ScanErrors.WithLabelValues("unexpected_block_height").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"veilwallet_blocks_scanned_total",
		"veilwallet_notes_received_total",
		"veilwallet_notes_spent_total",
		"veilwallet_scan_errors_total",
		"veilwallet_last_block_height",
		"veilwallet_unspent_note_count",
		"veilwallet_transactions_built_total",
	} {
		if !names[want] {
			t.Errorf("metric %q was not registered", want)
		}
	}
}

func TestScanErrorsLabelsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ScanErrors.WithLabelValues("duplicate_commitment").Inc()

	got := testutil.ToFloat64(m.ScanErrors.WithLabelValues("duplicate_commitment"))
	if got != 1 {
		t.Fatalf("counter = %v, want 1", got)
	}
}
