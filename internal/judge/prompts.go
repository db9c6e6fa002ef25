package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-match/internal/model"
)

const systemPrompt = "You are a B2B sales analyst helping business development reps find reference customers for a prospect. Respond with a single valid JSON object and nothing else."

const analysisTemplate = `Analyze this company description for reference-customer matching. Extract its key business characteristics.

Description:
%s

Return a valid JSON object:
{"sector": "<primary industry>", "core_activity": "<core business activity>", "products": "<main products/services>", "sales_model": "<sales approach>", "service_model": "<service delivery>", "customer_profile": "<target customers>", "dealer_driven": <true|false>, "tender_involved": <true|false>, "engineer_to_order": <true|false>, "configure_to_order": <true|false>, "deal_size": "<deal size range>", "business_complexity": "<low|medium|high>", "key_strengths": ["<strength>"], "industry_keywords": ["<keyword>"], "competitive_position": "<market position>", "confidence": <0.0-1.0>}`

const candidateTemplate = `Assess how well this existing customer works as a reference for the prospect.

PROSPECT:
%s

CUSTOMER:
Company: %s
Sector: %s
Core activity: %s
Products: %s
Sales model: %s
Service model: %s

Return a valid JSON object:
{"relevance": <0.0-1.0>, "peer_recognition": <0.0-1.0>, "business_relevance": <0.0-1.0>, "use_case_relevance": <0.0-1.0>, "strength": "<high|medium|low>", "talking_points": ["<point>"], "risk_factors": ["<risk>"], "sales_angle": "<one-line angle for the rep>"}`

const termsTemplate = `This company description produced poor reference matches:

%s

Poor matches were:
%s

Suggest alternative search terms that could find better matches: other industry sectors this company resembles, different ways to describe its core activities, related business or service models.

Return a valid JSON object:
{"alternative_sectors": ["<sector>"], "alternative_activities": ["<activity>"], "related_keywords": ["<keyword>"], "expanded_description": "<broader description for matching>"}`

// Output budgets per prompt kind.
const (
	analysisMaxTokens  = 1024
	candidateMaxTokens = 768
	termsMaxTokens     = 768
)

func analysisPrompt(description string) Prompt {
	return Prompt{
		Kind:      KindAnalysis,
		System:    systemPrompt,
		User:      fmt.Sprintf(analysisTemplate, strings.TrimSpace(description)),
		MaxTokens: analysisMaxTokens,
	}
}

func candidatePrompt(prospect model.ProfileAnalysis, c model.CustomerRecord) (Prompt, error) {
	payload, err := json.MarshalIndent(prospect, "", "  ")
	if err != nil {
		return Prompt{}, eris.Wrap(err, "judge: marshal prospect")
	}
	return Prompt{
		Kind:   KindCandidate,
		System: systemPrompt,
		User: fmt.Sprintf(candidateTemplate, payload,
			c.Company(), c.Sector(), c.CoreActivity(), c.Products(), c.SalesModel(), c.ServiceModel()),
		MaxTokens: candidateMaxTokens,
	}, nil
}

func termsPrompt(description string, poor []model.CustomerRecord) Prompt {
	lines := make([]string, 0, len(poor))
	for _, c := range poor {
		lines = append(lines, fmt.Sprintf("- %s (%s)", c.Company(), c.Sector()))
	}
	if len(lines) == 0 {
		lines = append(lines, "- none")
	}
	return Prompt{
		Kind:      KindTerms,
		System:    systemPrompt,
		User:      fmt.Sprintf(termsTemplate, strings.TrimSpace(description), strings.Join(lines, "\n")),
		MaxTokens: termsMaxTokens,
	}
}
