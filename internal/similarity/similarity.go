package similarity

import (
	"math"
	"strings"
	"sync"

	"github.com/sells-group/prospect-match/internal/vocab"
)

// Score levels returned by the ordered similarity checks.
const (
	ExactScore        = 1.0
	ContainmentScore  = 0.85
	SameClusterScore  = 0.7
	IncompatibleScore = 0.1
	TokenWeight       = 0.5
)

// Scorer compares text fields using a vocabulary of topic clusters.
type Scorer struct {
	vocab *vocab.Vocabulary
}

// New creates a Scorer over v. A nil vocabulary selects the embedded default.
func New(v *vocab.Vocabulary) *Scorer {
	if v == nil {
		v = vocab.Default()
	}
	return &Scorer{vocab: v}
}

var (
	defaultOnce   sync.Once
	defaultScorer *Scorer
)

// Default returns a Scorer over the embedded vocabulary.
func Default() *Scorer {
	defaultOnce.Do(func() { defaultScorer = New(nil) })
	return defaultScorer
}

// Similarity scores a against b with the default vocabulary.
func Similarity(a, b string) float64 {
	return Default().Similarity(a, b)
}

// Similarity returns a score in [0,1]. The checks run in a fixed order and
// the first decisive one wins: empty input, exact match, containment,
// incompatible sectors, then the better of cluster and token overlap.
func (s *Scorer) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return ExactScore
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return ContainmentScore
	}

	semantic, incompatible := s.semantic(na, nb)
	if incompatible {
		return IncompatibleScore
	}

	ta, tb := tokens(na), tokens(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return semantic
	}
	return math.Min(1, math.Max(semantic, jaccard(ta, tb)*TokenWeight))
}

// semantic walks the clusters in table order. A cluster hit by both texts
// ends the walk with SameClusterScore. A cluster hit by only one text checks
// the incompatible pairs; any pair spanning both texts is decisive.
func (s *Scorer) semantic(na, nb string) (score float64, incompatible bool) {
	for _, c := range s.vocab.Clusters {
		hitA, hitB := c.Hit(na), c.Hit(nb)
		if hitA && hitB {
			return SameClusterScore, false
		}
		if !hitA && !hitB {
			continue
		}
		for _, p := range s.vocab.Incompatible {
			if (vocab.Contains(na, p[0]) && vocab.Contains(nb, p[1])) ||
				(vocab.Contains(na, p[1]) && vocab.Contains(nb, p[0])) {
				return 0, true
			}
		}
	}
	return 0, false
}
