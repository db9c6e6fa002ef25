// Package explain renders the human-readable reason a customer was matched.
package explain

import (
	"strings"

	"github.com/sells-group/prospect-match/internal/model"
)

// Separator joins explanation clauses.
const Separator = " • "

const (
	mismatchBelow  = 0.3
	alignmentAbove = 0.6
	salesAbove     = 0.8
)

// Explain builds the explanation for one candidate. AI highlights come first,
// then sector, core activity, sales model and bonus clauses. insight may be nil.
func Explain(scores model.FieldScores, customer model.CustomerRecord, profile model.InputProfile, insight *model.CandidateJudgment) string {
	var parts []string

	if insight != nil {
		if insight.Strong() {
			parts = append(parts, "🌟 "+strings.ToUpper(strings.TrimSpace(insight.Strength))+" strategic fit")
		}
		if len(insight.TalkingPoints) > 0 && strings.TrimSpace(insight.TalkingPoints[0]) != "" {
			parts = append(parts, strings.TrimSpace(insight.TalkingPoints[0]))
		}
	}

	switch {
	case scores.Sector < mismatchBelow:
		sector := profile.Sector
		if sector == "" {
			sector = "your industry"
		}
		parts = append(parts, "Sector mismatch - "+sector+" vs "+customer.Sector())
	case scores.Sector > alignmentAbove:
		parts = append(parts, "Strong sector alignment in "+customer.Sector())
	}

	switch {
	case scores.CoreActivity > alignmentAbove:
		parts = append(parts, "Core activity alignment: "+customer.CoreActivity())
	case scores.CoreActivity < mismatchBelow:
		parts = append(parts, "Different core activities")
	}

	if scores.SalesModel > salesAbove {
		parts = append(parts, "Matching sales model: "+customer.SalesModel())
	}

	dealer, tender, eto := BonusRules(profile, customer)
	if dealer {
		parts = append(parts, "🤝 Dealer network match")
	}
	if tender {
		parts = append(parts, "📋 Tender process experience")
	}
	if eto {
		parts = append(parts, "🛠 Engineer-to-order experience")
	}

	if len(parts) == 0 {
		if scores.Sector < mismatchBelow && scores.CoreActivity < mismatchBelow {
			return "Minimal overlap in sector and activities"
		}
		return "Limited business alignment"
	}
	return strings.Join(parts, Separator)
}

// BonusRules reports which bonus conditions hold between a prospect and a
// customer: dealer-driven sales, tender experience and engineer-to-order.
func BonusRules(profile model.InputProfile, customer model.CustomerRecord) (dealer, tender, eto bool) {
	sales := strings.ToLower(customer.SalesModel())
	process := strings.ToLower(customer.CoreProcess())
	dealer = profile.DealerDriven && strings.Contains(sales, "dealer")
	tender = profile.TenderInvolved && strings.Contains(process, "tender")
	eto = profile.EngineerToOrder && strings.Contains(process, "engineer")
	return dealer, tender, eto
}
