package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	// Replace global default registry to allow test inspection.
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry

	m := New()

	if m.LedgerEntries == nil || m.Trades == nil || m.XPFlushes == nil || m.DecaySweeps == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}

	for _, family := range metricFamilies {
		if !strings.HasPrefix(family.GetName(), "guildbank_") {
			t.Fatalf("expected guildbank_ namespace, got %s", family.GetName())
		}
	}
}
