package ranker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-match/internal/extract"
	"github.com/sells-group/prospect-match/internal/model"
)

func unrelatedPool(n int) []model.CustomerRecord {
	pool := make([]model.CustomerRecord, n)
	for i := range pool {
		pool[i] = model.CustomerRecord{
			model.FieldCompany:      fmt.Sprintf("Aannemer %d", i),
			model.FieldSector:       "Bouw",
			model.FieldCoreActivity: "aannemer",
		}
	}
	return pool
}

func TestWeightsSumToOne(t *testing.T) {
	sum := WeightSector + WeightCoreActivity + WeightServiceModel + WeightProducts +
		WeightSalesModel + WeightCustomerProfile + WeightDealSize
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestScore_DealerScenario(t *testing.T) {
	profile := extract.Extract("Sector: Transport, Kernactiviteit: maritieme logistiek, Verkoopmodel: dealer")
	customer := model.CustomerRecord{
		model.FieldCompany:      "Van Dijk Shipping",
		model.FieldSector:       "Transport",
		model.FieldCoreActivity: "maritieme dienstverlening",
		model.FieldSalesModel:   "dealer netwerk",
	}

	ranking := New(nil).Rank(profile, []model.CustomerRecord{customer})
	require.Len(t, ranking.Candidates, 1)
	top := ranking.Candidates[0]

	assert.GreaterOrEqual(t, top.Scores.Sector, 0.85)
	assert.True(t, top.Bonus.Dealer)
	assert.InDelta(t, BonusDealer, top.Bonus.Total, 1e-9)
	assert.Greater(t, top.TotalScore, 0.5)
	assert.False(t, top.BelowThreshold)
	assert.Contains(t, top.Explanation, "🤝 Dealer network match")
	assert.Equal(t, top.LocalScore, top.TotalScore)
}

func TestScore_ClampsWithAllBonuses(t *testing.T) {
	c := model.CustomerRecord{
		model.FieldSector:          "transport",
		model.FieldCoreActivity:    "vervoer",
		model.FieldProducts:        "containers",
		model.FieldSalesModel:      "dealer",
		model.FieldServiceModel:    "onderhoud",
		model.FieldCustomerProfile: "rederijen",
		model.FieldDealSize:        "mkb",
		model.FieldCoreProcess:     "tender, engineer-to-order",
	}
	p := model.InputProfile{
		Sector: "transport", CoreActivity: "vervoer", Products: "containers", SalesModel: "dealer",
		ServiceModel: "onderhoud", CustomerProfile: "rederijen", DealSize: "mkb",
		DealerDriven: true, TenderInvolved: true, EngineerToOrder: true,
	}

	got := New(nil).Score(p, c)
	assert.InDelta(t, 1.0, Weighted(got.Scores), 1e-9)
	assert.InDelta(t, BonusDealer+BonusTender+BonusEngineerToOrder, got.Bonus.Total, 1e-9)
	assert.Equal(t, 1.0, got.TotalScore)
}

func TestRank_BackfillWhenNothingQualifies(t *testing.T) {
	profile := model.InputProfile{Sector: "Horeca", CoreActivity: "restaurants"}

	for _, n := range []int{1, 2, 3, 6} {
		t.Run(fmt.Sprintf("pool_%d", n), func(t *testing.T) {
			ranking := New(nil).Rank(profile, unrelatedPool(n))
			want := n
			if want > MinMatches {
				want = MinMatches
			}
			require.Len(t, ranking.Candidates, want)
			for _, c := range ranking.Candidates {
				assert.True(t, c.BelowThreshold)
				assert.Less(t, c.TotalScore, MinThreshold)
				assert.True(t, strings.HasPrefix(c.Explanation, LowScorePrefix))
			}
			assert.True(t, ranking.LowQuality())
		})
	}
}

func TestRank_KeepsTopFiveAboveThreshold(t *testing.T) {
	pool := make([]model.CustomerRecord, 7)
	for i := range pool {
		pool[i] = model.CustomerRecord{
			model.FieldCompany:      fmt.Sprintf("Rederij %d", i),
			model.FieldSector:       "Transport",
			model.FieldCoreActivity: "scheepvaart",
		}
	}
	profile := model.InputProfile{Sector: "transport", CoreActivity: "scheepvaart"}

	ranking := New(nil).Rank(profile, pool)
	require.Len(t, ranking.Candidates, MaxMatches)
	for i, c := range ranking.Candidates {
		assert.False(t, c.BelowThreshold)
		assert.Equal(t, i, c.Index, "ties keep pool order")
	}
	assert.False(t, ranking.LowQuality())
}

func TestRank_MixedBackfill(t *testing.T) {
	pool := append([]model.CustomerRecord{{
		model.FieldCompany:      "Rederij",
		model.FieldSector:       "Transport",
		model.FieldCoreActivity: "scheepvaart",
	}}, unrelatedPool(4)...)
	profile := model.InputProfile{Sector: "transport", CoreActivity: "scheepvaart"}

	ranking := New(nil).Rank(profile, pool)
	require.Len(t, ranking.Candidates, MinMatches)
	assert.False(t, ranking.Candidates[0].BelowThreshold)
	assert.True(t, ranking.Candidates[1].BelowThreshold)
	assert.True(t, ranking.Candidates[2].BelowThreshold)
}

func TestRank_SortedAndIdempotent(t *testing.T) {
	pool := []model.CustomerRecord{
		{model.FieldCompany: "A", model.FieldSector: "Bouw", model.FieldCoreActivity: "aannemer"},
		{model.FieldCompany: "B", model.FieldSector: "Transport", model.FieldCoreActivity: "cargo"},
		{model.FieldCompany: "C", model.FieldSector: "Logistiek", model.FieldCoreActivity: "opslag", model.FieldSalesModel: "dealer"},
		{model.FieldCompany: "D", model.FieldSector: "Software", model.FieldCoreActivity: "saas"},
	}
	profile := extract.Extract("Sector: transport\nKernactiviteit: cargo afhandeling\nVerkoop: via dealers")

	r := New(nil)
	first := r.Rank(profile, pool)
	second := r.Rank(profile, pool)

	assert.Equal(t, first, second)
	for i := 1; i < len(first.Candidates); i++ {
		assert.GreaterOrEqual(t, first.Candidates[i-1].TotalScore, first.Candidates[i].TotalScore)
	}
}

func TestRank_EmptyPool(t *testing.T) {
	ranking := New(nil).Rank(model.InputProfile{Sector: "transport"}, nil)
	assert.True(t, ranking.Empty)
	assert.Empty(t, ranking.Candidates)
	assert.Equal(t, 0.0, ranking.Best())
	assert.False(t, ranking.LowQuality())
}

func TestSortCandidates_StableTies(t *testing.T) {
	c := []model.MatchCandidate{
		{TotalScore: 0.5, Index: 2},
		{TotalScore: 0.9, Index: 3},
		{TotalScore: 0.5, Index: 0},
		{TotalScore: 0.5, Index: 1},
	}
	SortCandidates(c)
	assert.Equal(t, 3, c[0].Index)
	assert.Equal(t, []int{0, 1, 2}, []int{c[1].Index, c[2].Index, c[3].Index})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.37))
	assert.Equal(t, 0.42, Clamp(0.42))
}
