package composition

import (
	"github.com/deploymenttheory/go-service-composer/internal/config"
)

// ConfigOptions translates the engine, utility, heuristic and annotation
// sections of cfg into Composer options.
func ConfigOptions(cfg *config.AppConfig) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{
		WithModel(cfg.UtilityModel()),
		WithLimits(cfg.Limits()),
		WithHeuristicWeights(cfg.Heuristic),
		WithAnnotationWeights(cfg.Annotation),
		WithMinViable(cfg.Engine.MinViableCandidates),
		WithGraphNodeLimit(cfg.Engine.GraphNodeLimit),
	}
}
