package qos

// Weights assigns a share of the 0-100 point budget to each dimension.
type Weights struct {
	ResponseTime   float64 `mapstructure:"response_time"`
	Availability   float64 `mapstructure:"availability"`
	Throughput     float64 `mapstructure:"throughput"`
	Successability float64 `mapstructure:"successability"`
	Reliability    float64 `mapstructure:"reliability"`
	Compliance     float64 `mapstructure:"compliance"`
	BestPractices  float64 `mapstructure:"best_practices"`
	Latency        float64 `mapstructure:"latency"`
	Documentation  float64 `mapstructure:"documentation"`
}

// Get returns the weight of dimension d.
func (w Weights) Get(d Dimension) float64 {
	return Vector(w).Get(d)
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, d := range Dimensions {
		total += w.Get(d)
	}
	return total
}

// Range is the raw interval a dimension is normalized from.
type Range struct {
	Min float64
	Max float64
}

// Tier maps a minimum satisfaction ratio to a value. Tiers are evaluated
// in order and the first match wins.
type Tier struct {
	MinRatio float64
	Value    float64
}

// PenaltyTier multiplies the blended score by Factor when the satisfaction
// ratio is strictly below Below. Evaluated in order, first match wins.
type PenaltyTier struct {
	Below  float64
	Factor float64
}

// Model computes service utility from a QoS vector and a constraint set.
//
// The weights, shares and tiers are empirically chosen defaults. Changing
// them changes which service wins a tie, so they are exposed as fields
// rather than re-derived.
type Model struct {
	Weights         Weights
	QualityShare    float64
	ConformityShare float64

	// Normalization ranges. Percentages map as-is, throughput and the
	// time-like metrics are scaled from these ranges onto 0-100.
	PercentRange    Range
	ThroughputRange Range
	TimeRange       Range

	Bonuses   []Tier
	Penalties []PenaltyTier
}

// DefaultWeights returns the default per-dimension weights. They sum to 1.
func DefaultWeights() Weights {
	return Weights{
		Availability:   0.15,
		Reliability:    0.15,
		Successability: 0.15,
		Throughput:     0.10,
		Compliance:     0.10,
		BestPractices:  0.10,
		Documentation:  0.05,
		ResponseTime:   0.10,
		Latency:        0.10,
	}
}

// DefaultModel returns the reference utility model.
func DefaultModel() Model {
	return Model{
		Weights:         DefaultWeights(),
		QualityShare:    0.4,
		ConformityShare: 0.6,
		PercentRange:    Range{Min: 0, Max: 100},
		ThroughputRange: Range{Min: 0, Max: 1000},
		TimeRange:       Range{Min: 0, Max: 1000},
		Bonuses: []Tier{
			{MinRatio: 1.0, Value: 50},
			{MinRatio: 0.8, Value: 25},
			{MinRatio: 0.6, Value: 10},
		},
		Penalties: []PenaltyTier{
			{Below: 0.5, Factor: 0.5},
			{Below: 0.7, Factor: 0.7},
			{Below: 1.0, Factor: 0.9},
		},
	}
}

// Utility scores v against constraints. The result is never negative.
func (m Model) Utility(v, constraints Vector) float64 {
	return m.UtilityWithChecks(v, Check(v, constraints))
}

// UtilityWithChecks scores v using precomputed constraint checks.
func (m Model) UtilityWithChecks(v Vector, checks Checks) float64 {
	ratio := checks.Ratio()

	quality := m.Quality(v)
	conformity := 0.0
	for _, d := range Dimensions {
		if checks[d] {
			conformity += m.Weights.Get(d) * 100
		}
	}

	base := quality*m.QualityShare + conformity*m.ConformityShare
	utility := base*m.penaltyFactor(ratio) + m.bonus(ratio)
	if utility < 0 {
		return 0
	}
	return utility
}

// Quality is the weighted sum of every dimension normalized onto 0-100.
func (m Model) Quality(v Vector) float64 {
	score := 0.0
	for _, d := range Dimensions {
		score += m.normalized(d, v.Get(d)) * m.Weights.Get(d)
	}
	return score
}

func (m Model) normalized(d Dimension, x float64) float64 {
	switch {
	case d.LowerIsBetter():
		return normalizeInverse(x, m.TimeRange)
	case d == Throughput:
		return normalize(x, m.ThroughputRange)
	default:
		return normalize(x, m.PercentRange)
	}
}

func (m Model) bonus(ratio float64) float64 {
	for _, t := range m.Bonuses {
		if ratio >= t.MinRatio {
			return t.Value
		}
	}
	return 0
}

func (m Model) penaltyFactor(ratio float64) float64 {
	for _, p := range m.Penalties {
		if ratio < p.Below {
			return p.Factor
		}
	}
	return 1.0
}

func normalize(x float64, r Range) float64 {
	if r.Max == r.Min {
		return 0
	}
	return (x - r.Min) / (r.Max - r.Min) * 100
}

func normalizeInverse(x float64, r Range) float64 {
	if r.Max == r.Min {
		return 100
	}
	return (1 - (x-r.Min)/(r.Max-r.Min)) * 100
}
