package tooling

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deploymenttheory/go-service-composer/internal/cache"
	"github.com/deploymenttheory/go-service-composer/internal/composition"
	"github.com/deploymenttheory/go-service-composer/internal/config"
	"github.com/deploymenttheory/go-service-composer/internal/logger"
	"github.com/deploymenttheory/go-service-composer/internal/metrics"
	"github.com/deploymenttheory/go-service-composer/internal/registry"
	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/deploymenttheory/go-service-composer/pkg/tooling.Version=...".
var Version = "0.1.0"

// Types re-exported for API callers.
type (
	Result     = composition.Result
	Comparison = composition.Comparison
	Statistics = composition.Statistics
	Request    = service.Request
	Service    = service.Service
)

// InitOptions contains options for initializing the tooling API
type InitOptions struct {
	ConfigFile   string // Path to configuration file
	Debug        bool   // Enable debug logging
	LogFormat    string // Log format: "human" or "json"
	LogFile      string // Path to log file
	SuppressLog  bool   // Suppress all logging
	ServicesFile string // Pool document, overrides pool.services_file
	RequestsFile string // Request document, overrides pool.requests_file
	MetricsFile  string // Textfile written on Shutdown, overrides metrics.textfile

	// SkipDocuments leaves the pool and request documents unloaded.
	SkipDocuments bool
}

var (
	mu          sync.Mutex
	initialized bool

	pools    = registry.NewRegistry(nil)
	composer *composition.Composer
	stats    *metrics.Metrics
	requests []service.Request
)

// Initialize initializes the tooling API with the given options. Pool and
// request documents named by the options or the configuration are loaded.
func Initialize(options InitOptions) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}

	if err := config.Initialize(options.ConfigFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	// Update config with provided options
	if options.Debug {
		config.Instance.Debug = true
	}
	if options.LogFormat != "" {
		config.Instance.LogFormat = options.LogFormat
	}
	if options.LogFile != "" {
		config.Instance.LogFile = options.LogFile
	}
	if options.ServicesFile != "" {
		config.Instance.Pool.ServicesFile = options.ServicesFile
	}
	if options.RequestsFile != "" {
		config.Instance.Pool.RequestsFile = options.RequestsFile
	}
	if options.MetricsFile != "" {
		config.Instance.Metrics.Textfile = options.MetricsFile
	}

	if !options.SuppressLog {
		logConfig := logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}
		if err := logger.InitLogger(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.LogInfo("Tooling API initialized", map[string]interface{}{
			"config_file": config.ConfigFile,
			"debug":       config.Instance.Debug,
			"log_format":  config.Instance.LogFormat,
		})
	}

	c, m, err := newComposer(&config.Instance)
	if err != nil {
		return err
	}
	composer, stats = c, m

	if options.SkipDocuments {
		initialized = true
		return nil
	}

	if path := config.Instance.Pool.ServicesFile; path != "" {
		if _, err := loadPool(path); err != nil {
			return err
		}
	}
	if path := config.Instance.Pool.RequestsFile; path != "" {
		loaded, err := registry.LoadRequests(path)
		if err != nil {
			return err
		}
		requests = loaded
	}

	initialized = true
	return nil
}

// newComposer wires a composer over the shared registry from cfg.
func newComposer(cfg *config.AppConfig) (*composition.Composer, *metrics.Metrics, error) {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, err
	}

	opts := append(composition.ConfigOptions(cfg),
		composition.WithLogger(logger.Component("composer")),
		composition.WithMetrics(m),
	)

	if cfg.Cache.Enabled {
		var store cache.Storage
		if cfg.Cache.Dir != "" {
			fc, err := cache.NewFileCache(cfg.Cache.Dir)
			if err != nil {
				return nil, nil, err
			}
			store = fc
		} else {
			store = cache.NewMemoryCache(cfg.Cache.MaxEntries)
		}
		opts = append(opts, composition.WithCache(store, cfg.Cache.TTL))
	}

	return composition.New(pools, opts...), m, nil
}

// DefaultOptions returns the default initialization options
func DefaultOptions() InitOptions {
	return InitOptions{
		Debug:     false,
		LogFormat: "human",
	}
}

func ensureInitialized() error {
	mu.Lock()
	done := initialized
	mu.Unlock()
	if done {
		return nil
	}
	if err := Initialize(DefaultOptions()); err != nil {
		return fmt.Errorf("failed to initialize tooling API: %w", err)
	}
	return nil
}

// LoadPool reads a pool document and makes it the current pool. It returns
// the number of services loaded.
func LoadPool(path string) (int, error) {
	if err := ensureInitialized(); err != nil {
		return 0, err
	}
	return loadPool(path)
}

func loadPool(path string) (int, error) {
	pool, err := registry.LoadPool(path)
	if err != nil {
		return 0, err
	}
	generation := pools.Replace(pool)
	logger.LogInfo("Service pool replaced", map[string]interface{}{
		"file":        path,
		"services":    pool.Len(),
		"generation":  generation,
		"fingerprint": pool.Fingerprint(),
	})
	return pool.Len(), nil
}

// SetPool makes services the current pool.
func SetPool(services []Service) error {
	if err := ensureInitialized(); err != nil {
		return err
	}
	pool, err := registry.NewPool(services)
	if err != nil {
		return err
	}
	pools.Replace(pool)
	return nil
}

// LoadRequests reads a request document and remembers its requests for
// ComposeByID.
func LoadRequests(path string) ([]Request, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	loaded, err := registry.LoadRequests(path)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	requests = loaded
	mu.Unlock()
	return loaded, nil
}

// Requests returns the requests loaded so far.
func Requests() []Request {
	mu.Lock()
	defer mu.Unlock()
	return append([]Request{}, requests...)
}

// FindRequest returns a loaded request by id.
func FindRequest(id string) (Request, error) {
	return registry.FindRequest(Requests(), id)
}

// Compose runs req with the named strategy against the current pool.
func Compose(ctx context.Context, req Request, strategy string) (*Result, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	kind, err := search.ParseKind(strategy)
	if err != nil {
		return nil, err
	}
	return composer.Compose(ctx, req, kind)
}

// ComposeByID runs a loaded request with the named strategy.
func ComposeByID(ctx context.Context, id, strategy string) (*Result, error) {
	req, err := FindRequest(id)
	if err != nil {
		return nil, err
	}
	return Compose(ctx, req, strategy)
}

// Compare runs req with every strategy.
func Compare(ctx context.Context, req Request) (*Comparison, error) {
	if err := ensureInitialized(); err != nil {
		return nil, err
	}
	return composer.CompareAll(ctx, req)
}

// Summarize aggregates comparisons into per-strategy statistics.
func Summarize(comparisons []*Comparison) Statistics {
	return composition.Summarize(comparisons)
}

// GetVersion returns the current version of the tooling API
func GetVersion() string {
	return Version
}

// Shutdown writes the metrics textfile, when configured, and flushes logs.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	if !initialized {
		return nil
	}

	var err error
	if path := config.Instance.Metrics.Textfile; path != "" {
		if err = stats.WriteTextfile(path); err != nil {
			logger.LogError("Failed to write metrics", err, map[string]interface{}{
				"file": path,
			})
		}
	}

	logger.LogInfo("Tooling API shutting down", nil)
	logger.Sync()
	return err
}
