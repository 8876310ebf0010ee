package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/ryanhyunminbae/airtype/internal/features"
	"github.com/ryanhyunminbae/airtype/internal/landmark"
)

// ConfidenceScale converts a prototype distance to a confidence:
// confidence = max(0, 1 - distance*ConfidenceScale).
// It was tuned for the default table and is not revalidated for new prototypes.
const ConfidenceScale = 5

// ErrInvalidPrototype is returned when a prototype table entry is malformed.
var ErrInvalidPrototype = errors.New("invalid prototype")

// Prototype is a hand-authored heuristic feature vector for one letter.
type Prototype struct {
	Letter   string          `json:"letter"`
	Features features.Vector `json:"features"`
}

// DefaultPrototypes returns the reference table.
func DefaultPrototypes() []Prototype {
	return []Prototype{
		{Letter: "A", Features: features.Vector{0.08, 0.12, 0.1, 0.03, 0.004}}, // closed fist
		{Letter: "B", Features: features.Vector{0.32, 0.4, 0.35, 0.14, 0.02}},  // open palm
		{Letter: "C", Features: features.Vector{0.22, 0.24, 0.3, 0.2, 0.01}},   // curved "C" shape
	}
}

// LoadPrototypes decodes a JSON array of prototypes.
func LoadPrototypes(r io.Reader) ([]Prototype, error) {
	var table []Prototype
	if err := json.NewDecoder(r).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode prototypes: %w", err)
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrInvalidPrototype)
	}

	seen := make(map[string]bool, len(table))
	for i, p := range table {
		if p.Letter == "" {
			return nil, fmt.Errorf("%w: entry %d has no letter", ErrInvalidPrototype, i)
		}
		if seen[p.Letter] {
			return nil, fmt.Errorf("%w: duplicate letter %q", ErrInvalidPrototype, p.Letter)
		}
		if len(p.Features) != features.HeuristicLength {
			return nil, fmt.Errorf("%w: letter %q has %d features, expected %d",
				ErrInvalidPrototype, p.Letter, len(p.Features), features.HeuristicLength)
		}
		seen[p.Letter] = true
	}

	return table, nil
}

// LoadPrototypesFile reads a prototype table from a JSON file.
func LoadPrototypesFile(path string) ([]Prototype, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prototypes: %w", err)
	}
	defer f.Close()

	return LoadPrototypes(f)
}

// Candidate is one scored prototype.
type Candidate struct {
	Letter     string  `json:"letter"`
	Distance   float64 `json:"distance"`   // Euclidean distance to the prototype
	Confidence float64 `json:"confidence"` // derived from Distance
}

// PrototypeClassifier matches heuristic features against a fixed prototype table.
type PrototypeClassifier struct {
	prototypes []Prototype
}

// NewPrototypeClassifier creates a classifier over a copy of table.
func NewPrototypeClassifier(table []Prototype) *PrototypeClassifier {
	prototypes := make([]Prototype, len(table))
	for i, p := range table {
		prototypes[i] = Prototype{
			Letter:   p.Letter,
			Features: append(features.Vector(nil), p.Features...),
		}
	}
	return &PrototypeClassifier{prototypes: prototypes}
}

// Letters returns the letters of the table in order.
func (c *PrototypeClassifier) Letters() []string {
	letters := make([]string, len(c.prototypes))
	for i, p := range c.prototypes {
		letters[i] = p.Letter
	}
	return letters
}

// Classify computes the heuristic features of hand and returns the closest prototype.
func (c *PrototypeClassifier) Classify(hand landmark.Hand) *Prediction {
	if !hand.Complete() {
		return nil
	}

	p := c.ClassifyVector(features.Heuristic(hand))
	return &p
}

// ClassifyVector returns the prototype closest to v. Ties resolve to the
// earliest entry in the table.
func (c *PrototypeClassifier) ClassifyVector(v features.Vector) Prediction {
	prediction := Prediction{Vector: v, Source: SourcePrototype}

	best := math.Inf(1)
	for _, p := range c.prototypes {
		d := features.Distance(v, p.Features)
		if d < best {
			best = d
			prediction.Letter = p.Letter
		}
	}

	if prediction.Letter != "" {
		prediction.Confidence = confidence(best)
	}
	return prediction
}

// Rank scores every prototype against v, best first. Ties keep table order.
func (c *PrototypeClassifier) Rank(v features.Vector) []Candidate {
	candidates := make([]Candidate, 0, len(c.prototypes))
	for _, p := range c.prototypes {
		d := features.Distance(v, p.Features)
		candidates = append(candidates, Candidate{
			Letter:     p.Letter,
			Distance:   d,
			Confidence: confidence(d),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	return candidates
}

func confidence(distance float64) float64 {
	return math.Max(0, 1-distance*ConfidenceScale)
}
