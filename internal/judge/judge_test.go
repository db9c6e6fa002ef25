package judge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/resilience"
)

var vanDijk = model.CustomerRecord{
	model.FieldCompany:      "Van Dijk Shipping",
	model.FieldSector:       "Transport",
	model.FieldCoreActivity: "maritieme dienstverlening",
	model.FieldSalesModel:   "dealer netwerk",
}

func TestAnalyzeProfile(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, kindIs(KindAnalysis)).Return("```json\n"+
		`{"sector": "Transport", "core_activity": "maritieme logistiek", "dealer_driven": true, "industry_keywords": ["shipping", " "], "confidence": 0.9}`+
		"\n```", nil)

	got := New(b, Options{}).AnalyzeProfile(context.Background(), "Rederij in Rotterdam", time.Second)
	require.NotNil(t, got)
	assert.Equal(t, "Transport", got.Sector)
	assert.True(t, got.DealerDriven)
	assert.Equal(t, []string{"shipping"}, got.IndustryKeywords)
	assert.InDelta(t, 0.9, got.EffectiveConfidence(), 1e-9)
	b.AssertExpectations(t)
}

func TestAnalyzeProfile_Malformed(t *testing.T) {
	for _, body := range []string{"not json", `{"confidence": 0.4}`, ""} {
		b := new(mockBackend)
		b.On("Complete", mock.Anything, mock.Anything).Return(body, nil)
		assert.Nil(t, New(b, Options{}).AnalyzeProfile(context.Background(), "x", time.Second), body)
	}
}

func TestJudgeCandidate(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return p.Kind == KindCandidate &&
			strings.Contains(p.User, "Company: Van Dijk Shipping") &&
			strings.Contains(p.User, `"sector": "Transport"`)
	})).Return(`Here you go: {"relevance": 0.82, "peer_recognition": 1.4, "strength": "high", "talking_points": ["Both ship via Rotterdam"], "sales_angle": " Port logistics peers "}`, nil)

	got := New(b, Options{}).JudgeCandidate(context.Background(),
		model.ProfileAnalysis{Sector: "Transport"}, vanDijk, time.Second)
	require.NotNil(t, got)
	assert.InDelta(t, 0.82, got.Relevance, 1e-9)
	assert.Equal(t, 1.0, got.PeerRecognition)
	assert.True(t, got.Strong())
	assert.Equal(t, []string{"Both ship via Rotterdam"}, got.TalkingPoints)
	assert.Equal(t, "Port logistics peers", got.SalesAngle)
}

func TestJudgeCandidate_InvalidRelevance(t *testing.T) {
	cases := []string{
		`{"strength": "high"}`,
		`{"relevance": 1.5}`,
		`{"relevance": -0.1}`,
		`{"relevance": "high"}`,
	}
	for _, body := range cases {
		b := new(mockBackend)
		b.On("Complete", mock.Anything, mock.Anything).Return(body, nil)
		got := New(b, Options{}).JudgeCandidate(context.Background(), model.ProfileAnalysis{}, vanDijk, time.Second)
		assert.Nil(t, got, body)
	}
}

func TestJudgeCandidate_ZeroRelevanceIsValid(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).Return(`{"relevance": 0}`, nil)
	got := New(b, Options{}).JudgeCandidate(context.Background(), model.ProfileAnalysis{}, vanDijk, time.Second)
	require.NotNil(t, got)
	assert.Equal(t, 0.0, got.Relevance)
}

func TestSuggestTerms(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(p Prompt) bool {
		return p.Kind == KindTerms && strings.Contains(p.User, "- Van Dijk Shipping (Transport)")
	})).Return(`{"alternative_sectors": ["logistiek"], "related_keywords": ["haven"], "expanded_description": "havenlogistiek"}`, nil)

	got := New(b, Options{}).SuggestTerms(context.Background(), "Rederij", []model.CustomerRecord{vanDijk}, time.Second)
	require.NotNil(t, got)
	assert.Equal(t, []string{"logistiek"}, got.AlternativeSectors)
	assert.Empty(t, got.AlternativeActivities)
	assert.Equal(t, "havenlogistiek", got.ExpandedDescription)
}

func TestSuggestTerms_Empty(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).Return(`{"alternative_sectors": [" "]}`, nil)
	assert.Nil(t, New(b, Options{}).SuggestTerms(context.Background(), "x", nil, time.Second))
}

func TestCall_BackendErrorYieldsNil(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("invalid api key"))

	c := New(b, Options{})
	assert.Nil(t, c.AnalyzeProfile(context.Background(), "x", time.Second))
	assert.Nil(t, c.JudgeCandidate(context.Background(), model.ProfileAnalysis{}, vanDijk, time.Second))
	assert.Nil(t, c.SuggestTerms(context.Background(), "x", nil, time.Second))
}

func TestCall_TimeoutYieldsNil(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return("", context.DeadlineExceeded)

	start := time.Now()
	got := New(b, Options{}).AnalyzeProfile(context.Background(), "x", 20*time.Millisecond)
	assert.Nil(t, got)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCall_PanicYieldsNil(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("backend exploded")
	}).Return("", nil)

	var got *model.CandidateJudgment
	assert.NotPanics(t, func() {
		got = New(b, Options{}).JudgeCandidate(context.Background(), model.ProfileAnalysis{}, vanDijk, time.Second)
	})
	assert.Nil(t, got)
}

func TestCall_RetriesTransientFailures(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).
		Return("", resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	b.On("Complete", mock.Anything, mock.Anything).Return(`{"relevance": 0.5}`, nil).Once()

	policy := resilience.NewPolicy(
		resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		resilience.FromCircuitConfig("mock", 5, 30),
	)
	got := New(b, Options{Policy: policy}).JudgeCandidate(context.Background(), model.ProfileAnalysis{}, vanDijk, time.Second)
	require.NotNil(t, got)
	assert.InDelta(t, 0.5, got.Relevance, 1e-9)
	b.AssertNumberOfCalls(t, "Complete", 2)
}

func TestCall_OpenCircuitSkipsBackend(t *testing.T) {
	b := new(mockBackend)
	b.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("bad request"))

	policy := resilience.NewPolicy(
		resilience.RetryConfig{MaxAttempts: 1},
		resilience.FromCircuitConfig("mock", 2, 300),
	)
	c := New(b, Options{Policy: policy})
	for i := 0; i < 4; i++ {
		assert.Nil(t, c.AnalyzeProfile(context.Background(), "x", time.Second))
	}
	b.AssertNumberOfCalls(t, "Complete", 2)
	assert.Equal(t, resilience.CircuitOpen, policy.Breaker.State())
}
