package model

import "strings"

// ProfileAnalysis is the judge's structured reading of a prospect description.
type ProfileAnalysis struct {
	Sector              string   `json:"sector"`
	CoreActivity        string   `json:"core_activity"`
	Products            string   `json:"products"`
	SalesModel          string   `json:"sales_model"`
	ServiceModel        string   `json:"service_model"`
	CustomerProfile     string   `json:"customer_profile"`
	DealerDriven        bool     `json:"dealer_driven"`
	TenderInvolved      bool     `json:"tender_involved"`
	EngineerToOrder     bool     `json:"engineer_to_order"`
	ConfigureToOrder    bool     `json:"configure_to_order"`
	DealSize            string   `json:"deal_size"`
	BusinessComplexity  string   `json:"business_complexity"`
	KeyStrengths        []string `json:"key_strengths"`
	IndustryKeywords    []string `json:"industry_keywords"`
	CompetitivePosition string   `json:"competitive_position"`
	Confidence          float64  `json:"confidence"`
}

// DefaultConfidence is reported when an analysis omits its confidence.
const DefaultConfidence = 0.8

// EffectiveConfidence returns Confidence, or DefaultConfidence when unset.
func (a ProfileAnalysis) EffectiveConfidence() float64 {
	if a.Confidence <= 0 || a.Confidence > 1 {
		return DefaultConfidence
	}
	return a.Confidence
}

// AnalysisFromProfile builds the prospect payload sent with candidate
// judgments when no AI analysis is available.
func AnalysisFromProfile(p InputProfile) ProfileAnalysis {
	return ProfileAnalysis{
		Sector:           p.Sector,
		CoreActivity:     p.CoreActivity,
		Products:         p.Products,
		SalesModel:       p.SalesModel,
		ServiceModel:     p.ServiceModel,
		CustomerProfile:  p.CustomerProfile,
		DealerDriven:     p.DealerDriven,
		TenderInvolved:   p.TenderInvolved,
		EngineerToOrder:  p.EngineerToOrder,
		ConfigureToOrder: p.ConfigureToOrder,
		DealSize:         p.DealSize,
		IndustryKeywords: p.Keywords,
	}
}

// CandidateJudgment is the judge's relevance assessment of one candidate.
type CandidateJudgment struct {
	Relevance         float64  `json:"relevance"`
	PeerRecognition   float64  `json:"peer_recognition"`
	BusinessRelevance float64  `json:"business_relevance"`
	UseCaseRelevance  float64  `json:"use_case_relevance"`
	Strength          string   `json:"strength"`
	TalkingPoints     []string `json:"talking_points"`
	RiskFactors       []string `json:"risk_factors"`
	SalesAngle        string   `json:"sales_angle"`
}

// Strong reports whether the judge labelled the fit strong or high.
func (j CandidateJudgment) Strong() bool {
	s := strings.ToLower(strings.TrimSpace(j.Strength))
	return s == "strong" || s == "high"
}

// AlternativeTerms are broadened search terms suggested by the judge after
// a poor round of matches.
type AlternativeTerms struct {
	AlternativeSectors    []string `json:"alternative_sectors"`
	AlternativeActivities []string `json:"alternative_activities"`
	RelatedKeywords       []string `json:"related_keywords"`
	ExpandedDescription   string   `json:"expanded_description"`
}
