// Package composition answers composition requests: it filters the pool
// down to reachable candidates, runs a search strategy over them and
// packages the chosen workflow with its aggregated QoS, trace and graph.
package composition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/deploymenttheory/go-service-composer/internal/cache"
	"github.com/deploymenttheory/go-service-composer/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/logger"
	"github.com/deploymenttheory/go-service-composer/internal/metrics"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
	"github.com/deploymenttheory/go-service-composer/internal/reachability"
	"github.com/deploymenttheory/go-service-composer/internal/registry"
	"github.com/deploymenttheory/go-service-composer/internal/search"
	"github.com/deploymenttheory/go-service-composer/internal/service"
)

var tracer = otel.Tracer("service-composer.composition")

// PoolSource hands out the pool a composition runs against. Both
// *registry.Registry and a fixed *registry.Pool satisfy it.
type PoolSource interface {
	Pool() (*registry.Pool, error)
}

// Composer runs composition requests against a pool. It is safe for
// concurrent use.
type Composer struct {
	source PoolSource

	model      qos.Model
	limits     search.Limits
	heuristic  search.HeuristicWeights
	annotation service.AnnotationWeights
	minViable  int
	graphLimit int

	logger   *zap.Logger
	metrics  *metrics.Metrics
	cache    cache.Storage
	cacheTTL time.Duration

	// settings identifies everything above that changes results, for
	// cache keys.
	settings string
}

// Option configures a Composer.
type Option func(*Composer)

// WithModel sets the utility model.
func WithModel(m qos.Model) Option {
	return func(c *Composer) { c.model = m }
}

// WithLimits sets the search limits.
func WithLimits(l search.Limits) Option {
	return func(c *Composer) { c.limits = l }
}

// WithHeuristicWeights sets the weights of the heuristic strategy.
func WithHeuristicWeights(w search.HeuristicWeights) Option {
	return func(c *Composer) { c.heuristic = w }
}

// WithAnnotationWeights sets how annotation scores turn into utility.
func WithAnnotationWeights(w service.AnnotationWeights) Option {
	return func(c *Composer) { c.annotation = w }
}

// WithMinViable sets the reachability intersection size below which the
// union of both closures is searched.
func WithMinViable(n int) Option {
	return func(c *Composer) { c.minViable = n }
}

// WithGraphNodeLimit caps the service nodes of the result graph.
func WithGraphNodeLimit(n int) Option {
	return func(c *Composer) { c.graphLimit = n }
}

// WithLogger sets the logger. Without it the package logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// WithMetrics records every composition in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Composer) { c.metrics = m }
}

// WithCache stores deterministic results in s for ttl.
func WithCache(s cache.Storage, ttl time.Duration) Option {
	return func(c *Composer) {
		c.cache = s
		c.cacheTTL = ttl
	}
}

// New creates a Composer over source with default settings, adjusted by
// opts.
func New(source PoolSource, opts ...Option) *Composer {
	c := &Composer{
		source:     source,
		model:      qos.DefaultModel(),
		limits:     search.DefaultLimits(),
		heuristic:  search.DefaultHeuristicWeights(),
		annotation: service.DefaultAnnotationWeights(),
		minViable:  reachability.DefaultMinViable,
		graphLimit: DefaultGraphNodeLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settings = fmt.Sprintf("%+v|%+v|%+v|%+v|%d|%d",
		c.model, c.limits, c.heuristic, c.annotation, c.minViable, c.graphLimit)
	return c
}

func (c *Composer) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logger.Zap()
}

// Compose answers req with the given strategy. Only an invalid request, an
// unknown strategy or a missing pool produce an error; every search outcome,
// internal faults included, is reported through the Result.
func (c *Composer) Compose(ctx context.Context, req service.Request, kind search.Kind) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := prepare(req)
	if err != nil {
		return nil, err
	}
	strategy, err := search.New(kind, c.limits, c.heuristic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
	}
	pool, err := c.source.Pool()
	if err != nil {
		return nil, err
	}
	return c.compose(ctx, pool, req, strategy), nil
}

// prepare validates req and returns a copy with normalized parameters.
func prepare(req service.Request) (service.Request, error) {
	req.Provided = service.NormalizeParams(req.Provided)
	req.Resultant = strings.TrimSpace(req.Resultant)
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func (c *Composer) compose(ctx context.Context, pool *registry.Pool, req service.Request, strategy search.Strategy) *Result {
	start := time.Now()
	kind := strategy.Kind()

	ctx, span := tracer.Start(ctx, "Composer.Compose",
		trace.WithAttributes(
			attribute.String("composition.request_id", req.ID),
			attribute.String("composition.strategy", string(kind)),
			attribute.Int("composition.pool_size", pool.Len()),
		),
	)
	defer span.End()

	log := c.log().With(
		zap.String("request", req.ID),
		zap.String("strategy", string(kind)),
	)
	log.Debug("Composing workflow",
		zap.Int("pool_size", pool.Len()),
		zap.Strings("provided", req.Provided),
		zap.String("resultant", req.Resultant),
	)

	key := c.cacheKey(pool, req, kind)
	if res, ok := c.lookup(key, log); ok {
		span.SetAttributes(attribute.Bool("composition.cached", true))
		return res
	}

	res := c.run(ctx, pool, req, strategy)
	res.ComputationTime = time.Since(start)

	span.SetAttributes(
		attribute.Bool("composition.success", res.Success),
		attribute.String("composition.failure", string(res.Failure)),
		attribute.Int("composition.states_explored", res.StatesExplored),
		attribute.Float64("composition.utility", res.Utility),
	)
	if res.Failure == FailureInternal {
		span.SetStatus(codes.Error, res.Explanation)
	}

	c.metrics.ObserveComposition(string(kind), string(res.Failure), res.Success, res.Utility, res.StatesExplored, res.ComputationTime)

	fields := []zap.Field{
		zap.Int("candidates", res.CandidateCount),
		zap.Int("states_explored", res.StatesExplored),
		zap.Duration("elapsed", res.ComputationTime),
	}
	switch {
	case res.Success:
		log.Debug("Composition found", append(fields,
			zap.Strings("workflow", res.Workflow),
			zap.Float64("utility", res.Utility),
		)...)
	case res.Failure == FailureInternal:
		log.Error("Composition failed", append(fields, zap.String("error", res.Explanation))...)
	default:
		log.Warn("Composition failed", append(fields,
			zap.String("failure", string(res.Failure)),
			zap.String("explanation", res.Explanation),
		)...)
	}

	if cacheable(res) {
		c.store(key, res, log)
	}
	return res
}

// run filters and searches. A panic anywhere below is turned into an
// internal failure.
func (c *Composer) run(ctx context.Context, pool *registry.Pool, req service.Request, strategy search.Strategy) (res *Result) {
	kind := strategy.Kind()
	res = &Result{
		RunID:           uuid.NewString(),
		RequestID:       req.ID,
		Strategy:        kind,
		Workflow:        []string{},
		Failure:         FailureNone,
		PoolFingerprint: pool.Fingerprint(),
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", errors.ErrComputation, r)
			res.Workflow, res.Services, res.QoS, res.Utility = []string{}, nil, qos.Vector{}, 0
			res.Graph = nil
			res.fail(FailureInternal, "Error: "+err.Error())
		}
	}()

	_, filterSpan := tracer.Start(ctx, "reachability.Filter")
	filtered := reachability.Filter(pool, req, c.minViable)
	filterSpan.SetAttributes(
		attribute.Bool("reachability.reachable", filtered.Reachable),
		attribute.Bool("reachability.fallback", filtered.Fallback),
		attribute.Int("reachability.forward", filtered.ForwardCount),
		attribute.Int("reachability.backward", filtered.BackwardCount),
	)
	filterSpan.End()

	res.CandidateCount = len(filtered.Services)
	c.metrics.ObserveFilter(pool.Len(), res.CandidateCount)

	if !filtered.Reachable {
		res.fail(FailureUnreachable, fmt.Sprintf(
			"No reachable composition path exists: %s cannot be produced from the provided parameters", req.Resultant))
		return res
	}

	utility := c.utility(req)
	searchCtx, searchSpan := tracer.Start(ctx, "search."+string(kind))
	out := strategy.Search(searchCtx, &search.Problem{
		Request:    req,
		Candidates: filtered.Services,
		Utility:    utility,
	})
	searchSpan.SetAttributes(
		attribute.String("search.status", string(out.Status)),
		attribute.Int("search.iterations", out.Iterations),
	)
	searchSpan.End()

	res.StatesExplored = out.Iterations
	res.StopReason = out.StopReason
	res.Trace = out.Trace

	switch out.Status {
	case search.StatusFound:
		chain := make([]qos.Vector, len(out.Path))
		for i, ci := range out.Path {
			chain[i] = filtered.Services[ci].QoS
		}
		aggregated := qos.Aggregate(chain)
		if !aggregated.IsFinite() {
			err := fmt.Errorf("%w: aggregated QoS of %s is not finite", errors.ErrComputation, strings.Join(out.Workflow, " -> "))
			res.fail(FailureInternal, "Error: "+err.Error())
			return res
		}

		res.Workflow = out.Workflow
		res.Services = make([]service.Service, len(out.Path))
		for i, ci := range out.Path {
			res.Services[i] = filtered.Services[ci]
		}
		res.QoS = aggregated
		res.Utility = out.Utility
		res.Success = true
		res.Explanation = successText(kind, res, filtered, out)
	case search.StatusTrivial:
		res.fail(FailureTrivial, fmt.Sprintf("The resultant %s is already provided, nothing to compose", req.Resultant))
	case search.StatusDeadEnd:
		res.fail(FailureDeadEnd, fmt.Sprintf("Greedy did not find a composition after %d steps: no applicable service left", out.Iterations))
	case search.StatusExhausted:
		res.fail(FailureExhausted, fmt.Sprintf("No composition found after %d iterations: %s limit reached", out.Iterations, out.StopReason))
	case search.StatusCancelled:
		res.fail(FailureCancelled, fmt.Sprintf("Composition cancelled after %d iterations: %v", out.Iterations, ctx.Err()))
	case search.StatusFault:
		res.fail(FailureInternal, "Error: "+out.Err.Error())
		return res
	default:
		res.fail(FailureNoSolution, fmt.Sprintf("No composition found after %d iterations", out.Iterations))
	}

	var path []string
	if res.Success {
		path = res.Workflow
	}
	res.Graph = buildGraph(req, filtered.Services, utility, path, c.graphLimit)
	return res
}

func (r *Result) fail(kind FailureKind, explanation string) {
	r.Success = false
	r.Failure = kind
	r.Explanation = explanation
	if len(r.Trace) == 0 {
		r.Trace = []search.Event{{Action: search.ActionFailed, Description: explanation}}
	}
}

// utility is the per-service score used by every strategy for req.
func (c *Composer) utility(req service.Request) search.UtilityFunc {
	model, weights, constraints := c.model, c.annotation, req.Constraints
	return func(s *service.Service) float64 {
		return model.Utility(s.QoS, constraints) + weights.Bonus(s.Annotation())
	}
}

func successText(kind search.Kind, res *Result, filtered reachability.Result, out search.Outcome) string {
	var b strings.Builder
	switch kind {
	case search.Greedy:
		fmt.Fprintf(&b, "Greedy search: %d service(s) selected in %d steps\n", len(res.Workflow), out.Iterations)
	default:
		fmt.Fprintf(&b, "%s search: %d service(s) selected\n", label(kind), len(res.Workflow))
	}
	fmt.Fprintf(&b, "Path: %s\n", strings.Join(res.Workflow, " -> "))
	fmt.Fprintf(&b, "Utility Score: %.3f\n", res.Utility)
	fmt.Fprintf(&b, "States Explored: %d | Candidates: %d", out.Iterations, len(filtered.Services))
	if filtered.Fallback {
		b.WriteString(" (union fallback)")
	}
	if out.StopReason != search.StopNone {
		fmt.Fprintf(&b, "\nStopped early by the %s limit, best composition so far", out.StopReason)
	}
	return b.String()
}

func label(kind search.Kind) string {
	s := string(kind)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// cacheable reports whether res is a pure function of pool, request and
// settings. Limit-bound, cancelled and faulted runs are not.
func cacheable(res *Result) bool {
	if res.StopReason != search.StopNone {
		return false
	}
	switch res.Failure {
	case FailureCancelled, FailureInternal, FailureExhausted:
		return false
	}
	return true
}

func (c *Composer) cacheKey(pool *registry.Pool, req service.Request, kind search.Kind) string {
	if c.cache == nil {
		return ""
	}
	fp := cryptoutil.NewFingerprint().
		AddString(pool.Fingerprint()).
		AddString(c.settings).
		AddString(string(kind)).
		AddString(req.ID).
		AddStrings(req.Provided).
		AddString(req.Resultant)
	for _, x := range req.Constraints.Values() {
		fp.AddFloat(x)
	}
	return fp.Sum()
}

func (c *Composer) lookup(key string, log *zap.Logger) (*Result, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok, err := c.cache.Get(key)
	if err != nil {
		log.Warn("Result cache read failed", zap.Error(err))
	}
	if !ok {
		c.metrics.CacheMiss()
		return nil, false
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		log.Warn("Discarding unreadable cached result", zap.Error(err))
		_ = c.cache.Delete(key)
		c.metrics.CacheMiss()
		return nil, false
	}
	c.metrics.CacheHit()
	res.RunID = uuid.NewString()
	res.Cached = true
	log.Debug("Composition served from cache", zap.Bool("success", res.Success))
	return &res, true
}

func (c *Composer) store(key string, res *Result, log *zap.Logger) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		log.Warn("Failed to encode result for cache", zap.Error(err))
		return
	}
	if err := c.cache.Set(key, data, c.cacheTTL); err != nil {
		log.Warn("Result cache write failed", zap.Error(err))
	}
}
