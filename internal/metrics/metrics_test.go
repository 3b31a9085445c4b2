package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveComposition(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m.ObserveComposition("optimal", "none", true, 120.5, 42, 10*time.Millisecond)
	m.ObserveComposition("optimal", "none", true, 99, 10, 5*time.Millisecond)
	m.ObserveComposition("greedy", "dead_end", false, 0, 3, time.Millisecond)

	if got := testutil.ToFloat64(m.compositions.WithLabelValues("optimal", "none")); got != 2 {
		t.Errorf("optimal compositions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.compositions.WithLabelValues("greedy", "dead_end")); got != 1 {
		t.Errorf("greedy dead ends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.utility.WithLabelValues("optimal")); got != 99 {
		t.Errorf("last optimal utility = %v, want 99", got)
	}
	if n := testutil.CollectAndCount(m.utility); n != 1 {
		t.Errorf("utility series = %d, want 1 (failures must not set it)", n)
	}
}

func TestCacheAndFilter(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m.CacheMiss()
	m.CacheHit()
	m.CacheHit()
	m.ObserveFilter(250, 12)

	if got := testutil.ToFloat64(m.cacheRequests.WithLabelValues("hit")); got != 2 {
		t.Errorf("cache hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheRequests.WithLabelValues("miss")); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.poolServices); got != 250 {
		t.Errorf("pool services = %v, want 250", got)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("second New() on the same registry should fail")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveComposition("optimal", "none", true, 1, 1, time.Second)
	m.ObserveFilter(1, 1)
	m.CacheHit()
	m.CacheMiss()
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteTextfile() on nil metrics error = %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.ObserveComposition("heuristic", "none", true, 80, 7, 2*time.Millisecond)

	path := filepath.Join(t.TempDir(), "composer.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), `service_composer_compositions_total{failure="none",strategy="heuristic"} 1`) {
		t.Errorf("textfile missing composition counter:\n%s", data)
	}
}
