package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/common/fsutil"
	"github.com/deploymenttheory/go-service-composer/internal/common/osutil"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "service-composer"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "SERVICE_COMPOSER"
)

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Search engine limits
	Engine struct {
		MaxIterations       int           `mapstructure:"max_iterations"`
		Timeout             time.Duration `mapstructure:"timeout"`
		GreedyMaxSteps      int           `mapstructure:"greedy_max_steps"`
		GreedyGoalBonus     float64       `mapstructure:"greedy_goal_bonus"`
		MinViableCandidates int           `mapstructure:"min_viable_candidates"`
		TraceExploreSteps   int           `mapstructure:"trace_explore_steps"`
		TraceExpandSteps    int           `mapstructure:"trace_expand_steps"`
		GraphNodeLimit      int           `mapstructure:"graph_node_limit"`
	} `mapstructure:"engine"`

	// Utility model
	Utility struct {
		QualityShare    float64     `mapstructure:"quality_share"`
		ConformityShare float64     `mapstructure:"conformity_share"`
		Weights         qos.Weights `mapstructure:"weights"`
	} `mapstructure:"utility"`

	Heuristic  search.HeuristicWeights   `mapstructure:"heuristic"`
	Annotation service.AnnotationWeights `mapstructure:"annotation"`

	// Pool and request documents
	Pool struct {
		ServicesFile string `mapstructure:"services_file"`
		RequestsFile string `mapstructure:"requests_file"`
	} `mapstructure:"pool"`

	// Result cache
	Cache struct {
		Enabled    bool          `mapstructure:"enabled"`
		TTL        time.Duration `mapstructure:"ttl"`
		MaxEntries int           `mapstructure:"max_entries"`
		// Dir switches to an on-disk cache shared between runs.
		Dir string `mapstructure:"dir"`
	} `mapstructure:"cache"`

	// Metrics export
	Metrics struct {
		Textfile string `mapstructure:"textfile"`
	} `mapstructure:"metrics"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	// Ensure thread safety
	initOnce sync.Once
)

// Initialize sets up the configuration system
func Initialize(cfgFile string) error {
	var err error

	initOnce.Do(func() {
		var cfg *AppConfig
		cfg, v, err = load(cfgFile)
		if err != nil {
			return
		}
		Instance = *cfg

		ConfigFile = v.ConfigFileUsed()
		ConfigLoaded = ConfigFile != ""

		ensureDirectories()
	})

	return err
}

// Viper returns the viper instance behind Instance, so that command flags
// can be bound to it. It is nil before Initialize.
func Viper() *viper.Viper {
	return v
}

// Load reads configuration from cfgFile (or the default search paths when
// empty), the environment and defaults, without touching Instance.
func Load(cfgFile string) (*AppConfig, error) {
	cfg, _, err := load(cfgFile)
	return cfg, err
}

func load(cfgFile string) (*AppConfig, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		addSearchPaths(v)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if readErr := v.ReadInConfig(); readErr != nil {
		// A missing file in the search paths is fine; defaults and the
		// environment still apply. An explicit file must exist.
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			return nil, v, fmt.Errorf("%w: %v", errors.ErrConfigParseError, readErr)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, v, fmt.Errorf("%w: %v", errors.ErrConfigParseError, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, v, fmt.Errorf("%w: %v", errors.ErrConfigInvalid, errs)
	}

	// A bare log file name lives in the platform log directory.
	if cfg.LogFile != "" && filepath.Base(cfg.LogFile) == cfg.LogFile {
		logDir, err := fsutil.AppDir(fsutil.LogDir, AppName)
		if err != nil {
			return nil, v, err
		}
		cfg.LogFile = filepath.Join(logDir, cfg.LogFile)
	}

	// Other paths in a config file are relative to that file.
	if used := v.ConfigFileUsed(); used != "" {
		base := filepath.Dir(used)
		var err error
		if cfg.LogFile, err = fsutil.ResolvePath(cfg.LogFile, base); err != nil {
			return nil, v, err
		}
		if cfg.Pool.ServicesFile, err = fsutil.ResolvePath(cfg.Pool.ServicesFile, base); err != nil {
			return nil, v, err
		}
		if cfg.Pool.RequestsFile, err = fsutil.ResolvePath(cfg.Pool.RequestsFile, base); err != nil {
			return nil, v, err
		}
		if cfg.Cache.Dir, err = fsutil.ResolvePath(cfg.Cache.Dir, base); err != nil {
			return nil, v, err
		}
	}

	return &cfg, v, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// Core settings
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	limits := search.DefaultLimits()
	v.SetDefault("engine.max_iterations", limits.MaxIterations)
	v.SetDefault("engine.timeout", limits.Timeout)
	v.SetDefault("engine.greedy_max_steps", limits.MaxGreedySteps)
	v.SetDefault("engine.greedy_goal_bonus", limits.GreedyGoalBonus)
	v.SetDefault("engine.min_viable_candidates", 3)
	v.SetDefault("engine.trace_explore_steps", limits.TraceExploreSteps)
	v.SetDefault("engine.trace_expand_steps", limits.TraceExpandSteps)
	v.SetDefault("engine.graph_node_limit", 40)

	model := qos.DefaultModel()
	v.SetDefault("utility.quality_share", model.QualityShare)
	v.SetDefault("utility.conformity_share", model.ConformityShare)
	w := model.Weights
	v.SetDefault("utility.weights.response_time", w.ResponseTime)
	v.SetDefault("utility.weights.availability", w.Availability)
	v.SetDefault("utility.weights.throughput", w.Throughput)
	v.SetDefault("utility.weights.successability", w.Successability)
	v.SetDefault("utility.weights.reliability", w.Reliability)
	v.SetDefault("utility.weights.compliance", w.Compliance)
	v.SetDefault("utility.weights.best_practices", w.BestPractices)
	v.SetDefault("utility.weights.latency", w.Latency)
	v.SetDefault("utility.weights.documentation", w.Documentation)

	h := search.DefaultHeuristicWeights()
	v.SetDefault("heuristic.goal", h.Goal)
	v.SetDefault("heuristic.reliability", h.Reliability)
	v.SetDefault("heuristic.availability", h.Availability)
	v.SetDefault("heuristic.response_time", h.ResponseTime)
	v.SetDefault("heuristic.novelty", h.Novelty)

	a := service.DefaultAnnotationWeights()
	v.SetDefault("annotation.trust", a.Trust)
	v.SetDefault("annotation.reputation", a.Reputation)
	v.SetDefault("annotation.cooperativeness", a.Cooperativeness)

	v.SetDefault("pool.services_file", "")
	v.SetDefault("pool.requests_file", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("cache.dir", "")

	v.SetDefault("metrics.textfile", "")
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	// Always check current directory first
	v.AddConfigPath(".")

	if osutil.IsDevEnvironment() {
		configDir, err := fsutil.AppDir(fsutil.ConfigDir, AppName)
		if err == nil {
			v.AddConfigPath(configDir)
		}
		return
	}

	if osutil.IsPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	configDir, err := fsutil.AppDir(fsutil.ConfigDir, AppName)
	if err == nil {
		v.AddConfigPath(configDir)
	}

	systemConfigDir, err := fsutil.AppDir(fsutil.SystemConfigDir, AppName)
	if err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// ensureDirectories creates necessary directories based on configuration
func ensureDirectories() {
	if osutil.IsPipeline() && os.Getenv("CREATE_DIRS") != "true" {
		return
	}

	if Instance.LogFile != "" {
		_ = fsutil.EnsureParentDir(Instance.LogFile)
	}
	if Instance.Metrics.Textfile != "" {
		_ = fsutil.EnsureParentDir(Instance.Metrics.Textfile)
	}
}

// Validate reports every out-of-range setting.
func (c *AppConfig) Validate() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.LogFormat != "json" && c.LogFormat != "human" {
		add("log_format must be json or human, got %q", c.LogFormat)
	}
	if c.Engine.MaxIterations <= 0 {
		add("engine.max_iterations must be positive")
	}
	if c.Engine.Timeout <= 0 {
		add("engine.timeout must be positive")
	}
	if c.Engine.GreedyMaxSteps <= 0 {
		add("engine.greedy_max_steps must be positive")
	}
	if c.Engine.MinViableCandidates < 0 {
		add("engine.min_viable_candidates must not be negative")
	}
	if c.Engine.GraphNodeLimit <= 0 {
		add("engine.graph_node_limit must be positive")
	}
	if c.Utility.QualityShare < 0 || c.Utility.ConformityShare < 0 {
		add("utility shares must not be negative")
	}
	for _, d := range qos.Dimensions {
		if c.Utility.Weights.Get(d) < 0 {
			add("utility.weights.%s must not be negative", d)
		}
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		add("cache.max_entries must be positive when the cache is enabled")
	}
	return errs
}

// UtilityModel returns the configured utility model.
func (c *AppConfig) UtilityModel() qos.Model {
	m := qos.DefaultModel()
	m.Weights = c.Utility.Weights
	m.QualityShare = c.Utility.QualityShare
	m.ConformityShare = c.Utility.ConformityShare
	return m
}

// Limits returns the configured search limits.
func (c *AppConfig) Limits() search.Limits {
	return search.Limits{
		MaxIterations:     c.Engine.MaxIterations,
		Timeout:           c.Engine.Timeout,
		MaxGreedySteps:    c.Engine.GreedyMaxSteps,
		GreedyGoalBonus:   c.Engine.GreedyGoalBonus,
		TraceExploreSteps: c.Engine.TraceExploreSteps,
		TraceExpandSteps:  c.Engine.TraceExpandSteps,
	}
}
