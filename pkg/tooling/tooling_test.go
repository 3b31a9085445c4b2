package tooling

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// The tooling API keeps process-wide state, so everything runs in one test
// against a single Initialize.
func TestToolingAPI(t *testing.T) {
	dir := t.TempDir()
	pool, err := filepath.Abs("testdata/pool.yaml")
	if err != nil {
		t.Fatal(err)
	}
	metricsFile := filepath.Join(dir, "metrics", "composer.prom")

	cfgFile := filepath.Join(dir, "composer.yaml")
	cfg := "engine:\n  max_iterations: 1000\ncache:\n  enabled: true\n  max_entries: 8\npool:\n  requests_file: requests.yaml\n"
	if err := os.WriteFile(cfgFile, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	requests, err := os.ReadFile("testdata/requests.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "requests.yaml"), requests, 0644); err != nil {
		t.Fatal(err)
	}

	err = Initialize(InitOptions{
		ConfigFile:   cfgFile,
		SuppressLog:  true,
		ServicesFile: pool,
		MetricsFile:  metricsFile,
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	t.Run("requests loaded relative to config", func(t *testing.T) {
		if got := Requests(); len(got) != 1 || got[0].ID != "forecast" {
			t.Fatalf("Requests() = %v, want the forecast request", got)
		}
		if _, err := FindRequest("nope"); !errors.Is(err, errors.ErrRequestNotFound) {
			t.Errorf("FindRequest(nope) error = %v, want ErrRequestNotFound", err)
		}
	})

	t.Run("compose by id", func(t *testing.T) {
		res, err := ComposeByID(context.Background(), "forecast", "dijkstra")
		if err != nil {
			t.Fatalf("ComposeByID() error = %v", err)
		}
		if !res.Success {
			t.Fatalf("composition failed: %s", res.Explanation)
		}
		if got := strings.Join(res.Workflow, ","); got != "geocode,weather" {
			t.Errorf("Workflow = %s, want geocode,weather", got)
		}
		if res.Strategy != search.Optimal {
			t.Errorf("Strategy = %s, want optimal", res.Strategy)
		}

		again, err := ComposeByID(context.Background(), "forecast", "optimal")
		if err != nil {
			t.Fatalf("ComposeByID() error = %v", err)
		}
		if !again.Cached {
			t.Error("second identical composition should come from the cache")
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := ComposeByID(context.Background(), "forecast", "bfs")
		if !errors.Is(err, errors.ErrUnknownStrategy) {
			t.Errorf("error = %v, want ErrUnknownStrategy", err)
		}
	})

	t.Run("compare and summarize", func(t *testing.T) {
		req, err := FindRequest("forecast")
		if err != nil {
			t.Fatal(err)
		}
		cmp, err := Compare(context.Background(), req)
		if err != nil {
			t.Fatalf("Compare() error = %v", err)
		}
		stats := Summarize([]*Comparison{cmp})
		for _, kind := range search.Kinds {
			if stats[kind].SuccessRate != 100 {
				t.Errorf("%s success rate = %v, want 100", kind, stats[kind].SuccessRate)
			}
		}
	})

	t.Run("set pool", func(t *testing.T) {
		err := SetPool([]Service{
			service.New("direct", []string{"address"}, []string{"forecast"}, qos.Vector{Availability: 99, Reliability: 99}),
		})
		if err != nil {
			t.Fatalf("SetPool() error = %v", err)
		}
		res, err := ComposeByID(context.Background(), "forecast", "greedy")
		if err != nil {
			t.Fatalf("ComposeByID() error = %v", err)
		}
		if got := strings.Join(res.Workflow, ","); got != "direct" {
			t.Errorf("Workflow = %s, want direct", got)
		}

		if n, err := LoadPool(pool); err != nil || n != 2 {
			t.Errorf("LoadPool() = %d, %v; want 2 services", n, err)
		}
	})

	t.Run("shutdown writes metrics", func(t *testing.T) {
		if err := Shutdown(); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		data, err := os.ReadFile(metricsFile)
		if err != nil {
			t.Fatalf("metrics textfile not written: %v", err)
		}
		if !strings.Contains(string(data), "service_composer_compositions_total") {
			t.Error("metrics textfile has no composition counter")
		}
	})

	if GetVersion() == "" {
		t.Error("GetVersion() is empty")
	}
}
