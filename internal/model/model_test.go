package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRecord_Accessors(t *testing.T) {
	c := CustomerRecord{
		FieldCompany:       "  Van Dijk Logistics ",
		FieldSector:        "Transport",
		FieldSalesModel:    "dealer netwerk",
		FieldCoreProcess:   "tender",
		"Unrelated column": "x",
	}
	assert.Equal(t, "Van Dijk Logistics", c.Company())
	assert.Equal(t, "Transport", c.Sector())
	assert.Equal(t, "dealer netwerk", c.SalesModel())
	assert.Equal(t, "tender", c.CoreProcess())
	assert.Equal(t, "", c.DealSize())

	clone := c.Clone()
	clone[FieldSector] = "Bouw"
	assert.Equal(t, "Transport", c.Sector())
}

func TestSearchState_IsImmutable(t *testing.T) {
	s0 := NewSearchState("desc")
	assert.Equal(t, StageBasic, s0.Status().Stage)
	assert.True(t, s0.Status().InProgress)

	cands := []MatchCandidate{{TotalScore: 0.8}, {TotalScore: 0.4}}
	s1 := s0.WithRanking("desc2", InputProfile{Sector: "transport"}, cands, false)
	cands[0].TotalScore = 0.1

	assert.Empty(t, s0.Candidates())
	assert.Equal(t, "desc", s0.Description())
	require.Len(t, s1.Candidates(), 2)
	assert.Equal(t, 0.8, s1.Candidates()[0].TotalScore)

	got := s1.Candidates()
	got[0].TotalScore = 0
	assert.Equal(t, 0.8, s1.Candidates()[0].TotalScore)

	s2 := s1.WithIteration(2).WithStatus(StageAIValidation, "validating", true).WithFallback()
	assert.Equal(t, 0, s1.Iteration())
	assert.False(t, s1.Fallback())
	assert.Equal(t, 2, s2.Iteration())
	assert.True(t, s2.Fallback())
	assert.Equal(t, StageAIValidation, s2.Status().Stage)
}

func TestSearchState_WithAnalysisCopies(t *testing.T) {
	a := &ProfileAnalysis{Sector: "transport"}
	s := NewSearchState("d").WithAnalysis(a)
	a.Sector = "handel"
	assert.Equal(t, "transport", s.Analysis().Sector)
	assert.Nil(t, s.WithAnalysis(nil).Analysis())
}

func TestProfileAnalysis_EffectiveConfidence(t *testing.T) {
	assert.Equal(t, DefaultConfidence, ProfileAnalysis{}.EffectiveConfidence())
	assert.Equal(t, DefaultConfidence, ProfileAnalysis{Confidence: 3}.EffectiveConfidence())
	assert.Equal(t, 0.65, ProfileAnalysis{Confidence: 0.65}.EffectiveConfidence())
}

func TestAnalysisFromProfile(t *testing.T) {
	a := AnalysisFromProfile(InputProfile{
		Sector:       "transport",
		DealerDriven: true,
		Keywords:     []string{"dealer"},
	})
	assert.Equal(t, "transport", a.Sector)
	assert.True(t, a.DealerDriven)
	assert.Equal(t, []string{"dealer"}, a.IndustryKeywords)
}

func TestCandidateJudgment_Strong(t *testing.T) {
	assert.True(t, CandidateJudgment{Strength: "High"}.Strong())
	assert.True(t, CandidateJudgment{Strength: " strong "}.Strong())
	assert.False(t, CandidateJudgment{Strength: "medium"}.Strong())
}

func TestPatternFromRun(t *testing.T) {
	now := time.Now().UTC()
	r := Run{
		ID:         "run-1",
		TopScore:   0.82,
		Iterations: 2,
		CreatedAt:  now,
		Result: &MatchResult{Matches: []MatchCandidate{
			{Customer: CustomerRecord{FieldCompany: "Acme"}, TotalScore: 0.82},
		}},
	}
	p := PatternFromRun(r)
	assert.Equal(t, "iterations:2", p.Pattern)
	assert.Equal(t, "Acme", p.TopMatch)
	assert.Equal(t, 0.82, p.Score)
	assert.Equal(t, now, p.CreatedAt)
}

func TestMatchResult_TopScore(t *testing.T) {
	var nilResult *MatchResult
	assert.Equal(t, 0.0, nilResult.TopScore())
	assert.Equal(t, 0.0, (&MatchResult{}).TopScore())
	assert.Equal(t, 0.6, (&MatchResult{Matches: []MatchCandidate{{TotalScore: 0.6}}}).TopScore())
}
