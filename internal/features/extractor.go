// Package features turns a validated transaction plus a velocity snapshot
// into a fixed-order numeric feature vector. Extraction is pure and
// deterministic: the same input always yields a bit-identical vector.
package features

import (
	"github.com/dygsom/fraudscore/internal/domain"
)

// extractFunc computes one feature group. Implementations must be pure.
type extractFunc func(tx *domain.Transaction, vel domain.VelocitySnapshot) []float64

type group struct {
	name    string
	names   []string
	extract extractFunc
}

// Extractor composes the registered feature groups. The feature name list and
// order are fixed at construction and form the model's input contract.
type Extractor struct {
	groups []group
	names  []string
}

// NewExtractor registers the standard groups: time, amount, email, velocity,
// and categorical indicators. New features are added by registering a group
// here, which extends the fixed name list.
func NewExtractor() *Extractor {
	e := &Extractor{}
	e.register("time", timeFeatureNames, extractTimeFeatures)
	e.register("amount", amountFeatureNames, extractAmountFeatures)
	e.register("email", emailFeatureNames, extractEmailFeatures)
	e.register("velocity", velocityFeatureNames, extractVelocityFeatures)
	e.register("categorical", categoricalFeatureNames, extractCategoricalFeatures)
	return e
}

func (e *Extractor) register(name string, names []string, fn extractFunc) {
	e.groups = append(e.groups, group{name: name, names: names, extract: fn})
	e.names = append(e.names, names...)
}

// Names returns the fixed, ordered feature name list.
func (e *Extractor) Names() []string {
	return e.names
}

// Count returns the vector cardinality.
func (e *Extractor) Count() int {
	return len(e.names)
}

// Extract builds the full feature vector for a transaction and its velocity
// snapshot.
func (e *Extractor) Extract(tx *domain.Transaction, vel domain.VelocitySnapshot) Vector {
	values := make([]float64, 0, len(e.names))
	for _, g := range e.groups {
		values = append(values, g.extract(tx, vel)...)
	}
	return Vector{names: e.names, Values: values}
}

// Vector is a fixed-schema feature vector. Values are ordered exactly as
// Extractor.Names.
type Vector struct {
	names  []string
	Values []float64
}

// Get returns the value of a named feature, or 0 when the name is unknown.
func (v Vector) Get(name string) float64 {
	for i, n := range v.names {
		if n == name {
			return v.Values[i]
		}
	}
	return 0
}

// Map renders the vector as a name-to-value map for diagnostics and fixtures.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		m[n] = v.Values[i]
	}
	return m
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
