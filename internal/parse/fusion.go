package parse

// Weights configures confidence fusion. The three weights combine the
// intent classification confidence, the mean entity confidence, and the
// external capture confidence into one overall score.
//
// They are configuration, not algorithm: tests and deployments may tune
// them without touching extraction or classification logic.
type Weights struct {
	Intent  float64 `yaml:"intent"`
	Entity  float64 `yaml:"entity"`
	Capture float64 `yaml:"capture"`
}

// DefaultWeights returns the standard 0.6/0.3/0.1 fusion weights.
func DefaultWeights() Weights {
	return Weights{Intent: 0.6, Entity: 0.3, Capture: 0.1}
}

const (
	// fusionFloor is the minimum overall confidence. Fusion never returns
	// zero: even a fully unrecognised command keeps a nonzero score so that
	// downstream consumers can rank rather than special-case it.
	fusionFloor = 0.1

	fusionCeiling = 1.0

	// neutralEntityConfidence substitutes for the entity mean when no
	// entities were extracted at all.
	neutralEntityConfidence = 0.5
)

// Fuse combines the three confidence signals under w and clamps the result
// to [0.1, 1.0]. entityConfidences may be empty.
func Fuse(w Weights, intentConfidence float64, entityConfidences []float64, captureConfidence float64) float64 {
	entityAvg := neutralEntityConfidence
	if len(entityConfidences) > 0 {
		sum := 0.0
		for _, c := range entityConfidences {
			sum += c
		}
		entityAvg = sum / float64(len(entityConfidences))
	}

	overall := w.Intent*intentConfidence + w.Entity*entityAvg + w.Capture*captureConfidence
	if overall < fusionFloor {
		return fusionFloor
	}
	if overall > fusionCeiling {
		return fusionCeiling
	}
	return overall
}
