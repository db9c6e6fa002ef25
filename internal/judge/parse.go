package judge

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-match/internal/model"
)

// judgmentWire distinguishes a missing relevance from an explicit zero.
type judgmentWire struct {
	Relevance         *float64 `json:"relevance"`
	PeerRecognition   float64  `json:"peer_recognition"`
	BusinessRelevance float64  `json:"business_relevance"`
	UseCaseRelevance  float64  `json:"use_case_relevance"`
	Strength          string   `json:"strength"`
	TalkingPoints     []string `json:"talking_points"`
	RiskFactors       []string `json:"risk_factors"`
	SalesAngle        string   `json:"sales_angle"`
}

func parseAnalysis(text string) (*model.ProfileAnalysis, error) {
	var a model.ProfileAnalysis
	if err := json.Unmarshal([]byte(cleanJSON(text)), &a); err != nil {
		return nil, eris.Wrap(err, "judge: parse analysis json")
	}
	if strings.TrimSpace(a.Sector) == "" && strings.TrimSpace(a.CoreActivity) == "" {
		return nil, eris.New("judge: analysis has neither sector nor core activity")
	}
	a.KeyStrengths = compact(a.KeyStrengths)
	a.IndustryKeywords = compact(a.IndustryKeywords)
	return &a, nil
}

func parseJudgment(text string) (*model.CandidateJudgment, error) {
	var w judgmentWire
	if err := json.Unmarshal([]byte(cleanJSON(text)), &w); err != nil {
		return nil, eris.Wrap(err, "judge: parse judgment json")
	}
	if w.Relevance == nil {
		return nil, eris.New("judge: judgment missing relevance")
	}
	if r := *w.Relevance; r < 0 || r > 1 {
		return nil, eris.Errorf("judge: relevance %v outside [0,1]", r)
	}
	return &model.CandidateJudgment{
		Relevance:         *w.Relevance,
		PeerRecognition:   unit(w.PeerRecognition),
		BusinessRelevance: unit(w.BusinessRelevance),
		UseCaseRelevance:  unit(w.UseCaseRelevance),
		Strength:          strings.TrimSpace(w.Strength),
		TalkingPoints:     compact(w.TalkingPoints),
		RiskFactors:       compact(w.RiskFactors),
		SalesAngle:        strings.TrimSpace(w.SalesAngle),
	}, nil
}

func parseTerms(text string) (*model.AlternativeTerms, error) {
	var t model.AlternativeTerms
	if err := json.Unmarshal([]byte(cleanJSON(text)), &t); err != nil {
		return nil, eris.Wrap(err, "judge: parse terms json")
	}
	t.AlternativeSectors = compact(t.AlternativeSectors)
	t.AlternativeActivities = compact(t.AlternativeActivities)
	t.RelatedKeywords = compact(t.RelatedKeywords)
	t.ExpandedDescription = strings.TrimSpace(t.ExpandedDescription)
	if len(t.AlternativeSectors)+len(t.AlternativeActivities)+len(t.RelatedKeywords) == 0 && t.ExpandedDescription == "" {
		return nil, eris.New("judge: terms response is empty")
	}
	return &t, nil
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func unit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
