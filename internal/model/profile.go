package model

// InputProfile is the structured view of a prospect description produced by
// the feature extractor. It is never modified after creation.
type InputProfile struct {
	Sector           string   `json:"sector"`
	CoreActivity     string   `json:"core_activity"`
	Products         string   `json:"products"`
	SalesModel       string   `json:"sales_model"`
	ServiceModel     string   `json:"service_model"`
	CustomerProfile  string   `json:"customer_profile"`
	DealSize         string   `json:"deal_size"`
	DealerDriven     bool     `json:"dealer_driven"`
	TenderInvolved   bool     `json:"tender_involved"`
	EngineerToOrder  bool     `json:"engineer_to_order"`
	ConfigureToOrder bool     `json:"configure_to_order"`
	Keywords         []string `json:"keywords"`
}

// FieldScores holds the per-field similarity of one candidate, each in [0,1].
type FieldScores struct {
	Sector          float64 `json:"sector"`
	CoreActivity    float64 `json:"core_activity"`
	Products        float64 `json:"products"`
	SalesModel      float64 `json:"sales_model"`
	ServiceModel    float64 `json:"service_model"`
	CustomerProfile float64 `json:"customer_profile"`
	DealSize        float64 `json:"deal_size"`
}

// Bonus records which bonus rules fired for a candidate.
type Bonus struct {
	Dealer          bool    `json:"dealer,omitempty"`
	Tender          bool    `json:"tender,omitempty"`
	EngineerToOrder bool    `json:"engineer_to_order,omitempty"`
	Total           float64 `json:"total"`
}

// MatchCandidate is one scored customer.
type MatchCandidate struct {
	Customer       CustomerRecord     `json:"customer"`
	Scores         FieldScores        `json:"scores"`
	Bonus          Bonus              `json:"bonus"`
	LocalScore     float64            `json:"local_score"`
	TotalScore     float64            `json:"total_score"`
	AIScore        *float64           `json:"ai_score,omitempty"`
	AIInsight      *CandidateJudgment `json:"ai_insight,omitempty"`
	Explanation    string             `json:"explanation"`
	BelowThreshold bool               `json:"below_threshold,omitempty"`

	// Index is the candidate's position in the input pool, used to break ties.
	Index int `json:"-"`
}

// Judged reports whether the candidate received an AI judgment.
func (m MatchCandidate) Judged() bool {
	return m.AIScore != nil
}
