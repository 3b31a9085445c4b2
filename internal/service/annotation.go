package service

// AnnotationProvider exposes externally-produced social scores for a
// service. Each score is in [0, 1].
type AnnotationProvider interface {
	Trust() float64
	Reputation() float64
	Cooperativeness() float64
}

// NoAnnotations is the provider used when a service carries no annotation
// data. Every score is zero.
type NoAnnotations struct{}

func (NoAnnotations) Trust() float64           { return 0 }
func (NoAnnotations) Reputation() float64      { return 0 }
func (NoAnnotations) Cooperativeness() float64 { return 0 }

// Annotation is a plain-value AnnotationProvider, as loaded from a pool
// document.
type Annotation struct {
	TrustScore           float64 `json:"trust" yaml:"trust" mapstructure:"trust" validate:"gte=0,lte=1"`
	ReputationScore      float64 `json:"reputation" yaml:"reputation" mapstructure:"reputation" validate:"gte=0,lte=1"`
	CooperativenessScore float64 `json:"cooperativeness" yaml:"cooperativeness" mapstructure:"cooperativeness" validate:"gte=0,lte=1"`
}

func (a Annotation) Trust() float64           { return a.TrustScore }
func (a Annotation) Reputation() float64      { return a.ReputationScore }
func (a Annotation) Cooperativeness() float64 { return a.CooperativenessScore }

// AnnotationWeights scales each annotation score into a utility bonus.
type AnnotationWeights struct {
	Trust           float64 `mapstructure:"trust"`
	Reputation      float64 `mapstructure:"reputation"`
	Cooperativeness float64 `mapstructure:"cooperativeness"`
}

// DefaultAnnotationWeights returns the default bonus weights.
func DefaultAnnotationWeights() AnnotationWeights {
	return AnnotationWeights{Trust: 10, Reputation: 10, Cooperativeness: 5}
}

// Bonus returns the additive utility bonus for the given annotations.
func (w AnnotationWeights) Bonus(a AnnotationProvider) float64 {
	if a == nil {
		return 0
	}
	return a.Trust()*w.Trust + a.Reputation()*w.Reputation + a.Cooperativeness()*w.Cooperativeness
}
