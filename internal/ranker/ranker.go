// Package ranker scores customers against a prospect profile and selects
// the shortlist.
package ranker

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/explain"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/similarity"
)

// Field weights (sum = 1.00).
const (
	WeightSector          = 0.35
	WeightCoreActivity    = 0.30
	WeightServiceModel    = 0.10
	WeightProducts        = 0.10
	WeightSalesModel      = 0.08
	WeightCustomerProfile = 0.05
	WeightDealSize        = 0.02
)

// Bonus amounts added on top of the weighted sum.
const (
	BonusDealer          = 0.15
	BonusTender          = 0.12
	BonusEngineerToOrder = 0.10
)

// Shortlist policy.
const (
	MinThreshold  = 0.30
	MaxMatches    = 5
	MinMatches    = 3
	LowQualityBar = 0.5
)

// LowScorePrefix marks the explanation of a backfilled candidate.
const LowScorePrefix = "⚠️ Low match score - "

// Ranker scores and ranks customers.
type Ranker struct {
	scorer *similarity.Scorer
}

// New creates a Ranker. A nil scorer selects the default vocabulary.
func New(scorer *similarity.Scorer) *Ranker {
	if scorer == nil {
		scorer = similarity.Default()
	}
	return &Ranker{scorer: scorer}
}

// Ranking is the shortlist produced by Rank.
type Ranking struct {
	Candidates []model.MatchCandidate
	// Empty is set when the pool had no customers at all.
	Empty bool
}

// Best returns the top total score, or 0 for an empty ranking.
func (r Ranking) Best() float64 {
	if len(r.Candidates) == 0 {
		return 0
	}
	return r.Candidates[0].TotalScore
}

// LowQuality reports whether the best candidate is below LowQualityBar.
func (r Ranking) LowQuality() bool {
	return len(r.Candidates) > 0 && r.Best() < LowQualityBar
}

// Score computes the field scores, bonus and total of one customer. The
// returned candidate carries a local explanation.
func (r *Ranker) Score(profile model.InputProfile, customer model.CustomerRecord) model.MatchCandidate {
	s := r.scorer
	scores := model.FieldScores{
		Sector:          s.Similarity(profile.Sector, customer.Sector()),
		CoreActivity:    s.Similarity(profile.CoreActivity, customer.CoreActivity()),
		Products:        s.Similarity(profile.Products, customer.Products()),
		SalesModel:      s.Similarity(profile.SalesModel, customer.SalesModel()),
		ServiceModel:    s.Similarity(profile.ServiceModel, customer.ServiceModel()),
		CustomerProfile: s.Similarity(profile.CustomerProfile, customer.CustomerProfile()),
		DealSize:        s.DealSizeScore(profile.DealSize, customer.DealSize()),
	}

	var bonus model.Bonus
	bonus.Dealer, bonus.Tender, bonus.EngineerToOrder = explain.BonusRules(profile, customer)
	if bonus.Dealer {
		bonus.Total += BonusDealer
	}
	if bonus.Tender {
		bonus.Total += BonusTender
	}
	if bonus.EngineerToOrder {
		bonus.Total += BonusEngineerToOrder
	}

	total := Clamp(Weighted(scores) + bonus.Total)
	return model.MatchCandidate{
		Customer:    customer,
		Scores:      scores,
		Bonus:       bonus,
		LocalScore:  total,
		TotalScore:  total,
		Explanation: explain.Explain(scores, customer, profile, nil),
	}
}

// Weighted returns the weighted sum of field scores, added in a fixed order.
func Weighted(s model.FieldScores) float64 {
	return s.Sector*WeightSector +
		s.CoreActivity*WeightCoreActivity +
		s.ServiceModel*WeightServiceModel +
		s.Products*WeightProducts +
		s.SalesModel*WeightSalesModel +
		s.CustomerProfile*WeightCustomerProfile +
		s.DealSize*WeightDealSize
}

// Rank scores the whole pool and returns the shortlist: up to MaxMatches
// candidates at or above MinThreshold, backfilled with the best
// below-threshold candidates until MinMatches are present or the pool runs out.
func (r *Ranker) Rank(profile model.InputProfile, pool []model.CustomerRecord) Ranking {
	if len(pool) == 0 {
		return Ranking{Empty: true}
	}

	scored := make([]model.MatchCandidate, len(pool))
	for i, c := range pool {
		scored[i] = r.Score(profile, c)
		scored[i].Index = i
	}
	SortCandidates(scored)

	var out []model.MatchCandidate
	var below []model.MatchCandidate
	for _, c := range scored {
		if c.TotalScore >= MinThreshold {
			if len(out) < MaxMatches {
				out = append(out, c)
			}
			continue
		}
		below = append(below, c)
	}
	for _, c := range below {
		if len(out) >= MinMatches {
			break
		}
		c.BelowThreshold = true
		c.Explanation = LowScorePrefix + c.Explanation
		out = append(out, c)
	}

	zap.L().Debug("ranker: ranked pool",
		zap.Int("pool", len(pool)),
		zap.Int("shortlist", len(out)),
		zap.Float64("best", scored[0].TotalScore),
	)
	return Ranking{Candidates: out}
}

// SortCandidates orders candidates by total score descending; equal scores
// keep pool order.
func SortCandidates(c []model.MatchCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].TotalScore != c[j].TotalScore {
			return c[i].TotalScore > c[j].TotalScore
		}
		return c[i].Index < c[j].Index
	})
}

// Clamp limits v to [0,1].
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
