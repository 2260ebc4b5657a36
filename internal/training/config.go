package training

import (
	"fmt"

	"github.com/abhisek/atrisk/internal/ml"
)

// Config holds the training pipeline's settings.
type Config struct {
	TestFraction  float64 // held-out share, stratified
	Seed          uint64
	SMOTE         ml.SMOTE
	NoiseStd      float64 // jitter added to the balanced training matrix
	CVFolds       int
	EvalThreshold float64 // cutoff used for test-set metrics
	ForestTrees   int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		TestFraction:  0.3,
		Seed:          42,
		SMOTE:         ml.DefaultSMOTE(),
		NoiseStd:      0.05,
		CVFolds:       10,
		EvalThreshold: 0.5,
		ForestTrees:   100,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test fraction %v outside (0, 1)", c.TestFraction)
	}
	if c.SMOTE.Ratio <= 0 || c.SMOTE.Ratio > 1 {
		return fmt.Errorf("SMOTE ratio %v outside (0, 1]", c.SMOTE.Ratio)
	}
	if c.SMOTE.K < 1 {
		return fmt.Errorf("SMOTE neighbours %d < 1", c.SMOTE.K)
	}
	if c.NoiseStd < 0 {
		return fmt.Errorf("noise std %v negative", c.NoiseStd)
	}
	if c.ForestTrees < 1 {
		return fmt.Errorf("forest trees %d < 1", c.ForestTrees)
	}
	return nil
}
