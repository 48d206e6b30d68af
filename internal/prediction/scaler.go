package prediction

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scaler standardizes feature vectors with the per-feature mean and
// standard deviation exported by the training pipeline. It is immutable
// after loading.
type Scaler struct {
	means []float64
	stds  []float64
}

// scalerFile is the YAML document shape for exported scaler parameters.
//
//	means: [10.2, 2.9, ...]
//	stds: [4.1, 1.9, ...]
type scalerFile struct {
	Means []float64 `yaml:"means"`
	Stds  []float64 `yaml:"stds"`
}

// LoadScaler reads scaler parameters from a YAML file. Every standard
// deviation must be non-zero; a zero would divide away a feature.
func LoadScaler(path string) (*Scaler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler params: %w", err)
	}

	var sf scalerFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse scaler params %s: %w", path, err)
	}
	return NewScaler(sf.Means, sf.Stds)
}

// NewScaler builds a scaler from explicit parameters.
func NewScaler(means, stds []float64) (*Scaler, error) {
	if len(means) == 0 || len(means) != len(stds) {
		return nil, fmt.Errorf("scaler params: %d means vs %d stds", len(means), len(stds))
	}
	for i, s := range stds {
		if s == 0 {
			return nil, fmt.Errorf("scaler params: std for feature %d is zero", i)
		}
	}
	return &Scaler{means: means, stds: stds}, nil
}

// Size returns the vector length the scaler was fitted for.
func (s *Scaler) Size() int {
	return len(s.means)
}

// Transform standardizes a feature vector: (x - mean) / std per feature.
func (s *Scaler) Transform(vector []float64) ([]float64, error) {
	if len(vector) != len(s.means) {
		return nil, fmt.Errorf("scaler fitted for %d features, got %d", len(s.means), len(vector))
	}

	out := make([]float64, len(vector))
	for i, v := range vector {
		out[i] = (v - s.means[i]) / s.stds[i]
	}
	return out, nil
}
