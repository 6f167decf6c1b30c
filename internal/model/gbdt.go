package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Node is a single split or leaf in a boosted tree. Non-leaf nodes route to
// Left when value < Threshold, otherwise Right.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      float64 `json:"leaf"`
	IsLeaf    bool    `json:"is_leaf"`
}

// Tree is one member of the boosted ensemble, stored as a flat node array
// rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) score(values []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.IsLeaf {
			return n.Leaf
		}
		if values[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Ensemble is a gradient-boosted binary classifier exported by the offline
// training pipeline as JSON.
type Ensemble struct {
	Version   string  `json:"version"`
	NFeatures int     `json:"n_features"`
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// LoadEnsemble reads and validates an ensemble file. Node references and
// feature indexes are bounds-checked up front so prediction never has to.
func LoadEnsemble(path string, featureCount int) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file %s: %w", path, err)
	}

	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse model file %s: %w", path, err)
	}

	if e.NFeatures != featureCount {
		return nil, fmt.Errorf("model expects %d features, extractor produces %d", e.NFeatures, featureCount)
	}
	if len(e.Trees) == 0 {
		return nil, fmt.Errorf("model file %s contains no trees", path)
	}

	for ti, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range tree.Nodes {
			if n.IsLeaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= e.NFeatures {
				return nil, fmt.Errorf("tree %d node %d references feature %d outside [0,%d)", ti, ni, n.Feature, e.NFeatures)
			}
			if n.Left < 0 || n.Left >= len(tree.Nodes) || n.Right < 0 || n.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
			}
		}
	}

	return &e, nil
}

// Probability evaluates the ensemble: sigmoid of base score plus the summed
// leaf margins.
func (e *Ensemble) Probability(values []float64) float64 {
	margin := e.BaseScore
	for i := range e.Trees {
		margin += e.Trees[i].score(values)
	}
	return sigmoid(margin)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
