// Package extract turns a free-text prospect description into a structured
// InputProfile.
package extract

import (
	"strings"
	"sync"

	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/vocab"
)

// Extractor reads descriptions using a vocabulary of sector keywords and
// line labels.
type Extractor struct {
	vocab *vocab.Vocabulary
}

// New creates an Extractor over v. A nil vocabulary selects the embedded default.
func New(v *vocab.Vocabulary) *Extractor {
	if v == nil {
		v = vocab.Default()
	}
	return &Extractor{vocab: v}
}

var (
	defaultOnce      sync.Once
	defaultExtractor *Extractor
)

// Extract reads description with the default vocabulary.
func Extract(description string) model.InputProfile {
	defaultOnce.Do(func() { defaultExtractor = New(nil) })
	return defaultExtractor.Extract(description)
}

// Extract builds a fresh InputProfile from description. It is deterministic
// and performs no I/O.
func (e *Extractor) Extract(description string) model.InputProfile {
	var p model.InputProfile
	text := strings.ToLower(description)
	labels := e.vocab.Labels

	for _, s := range e.vocab.Sectors {
		if s.Hit(text) {
			p.Sector = s.Name
			break
		}
	}

	var products []string
	for _, line := range strings.Split(description, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if lower == "" {
			continue
		}
		value := afterColon(line)

		if vocab.ContainsAny(lower, labels.CoreActivity) {
			p.CoreActivity = value
		}
		if p.Sector == "" && vocab.ContainsAny(lower, labels.Sector) {
			p.Sector = value
		}
		if vocab.ContainsAny(lower, labels.Products) && strings.Contains(line, ":") {
			products = append(products, value)
		}
		if vocab.ContainsAny(lower, labels.Sales) {
			p.SalesModel = value
			if vocab.Contains(lower, "b2b") {
				p.SalesModel = "B2B"
			}
			if vocab.Contains(lower, "b2c") {
				p.SalesModel = "B2C"
			}
		}
		if vocab.ContainsAny(lower, labels.ServiceModel) {
			p.ServiceModel = value
		}
		if vocab.ContainsAny(lower, labels.Customers) {
			p.CustomerProfile = value
		}
		if vocab.ContainsAny(lower, labels.DealSize) {
			p.DealSize = value
		}
	}
	p.Products = strings.Join(products, " ")

	if p.CoreActivity == "" {
		p.CoreActivity = e.vocab.DefaultActivity(text)
	}

	flags := e.vocab.Flags
	p.DealerDriven = vocab.ContainsAny(text, flags.Dealer)
	p.TenderInvolved = vocab.ContainsAny(text, flags.Tender)
	p.EngineerToOrder = vocab.ContainsAny(text, flags.EngineerToOrder)
	p.ConfigureToOrder = vocab.ContainsAny(text, flags.ConfigureToOrder)
	p.Keywords = e.vocab.MatchKeywords(text)

	return trimmed(p)
}

// afterColon returns the trimmed text after the first colon, or the whole
// trimmed line when it has none.
func afterColon(line string) string {
	if _, after, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(line)
}

func trimmed(p model.InputProfile) model.InputProfile {
	p.Sector = strings.TrimSpace(p.Sector)
	p.CoreActivity = strings.TrimSpace(p.CoreActivity)
	p.Products = strings.TrimSpace(p.Products)
	p.SalesModel = strings.TrimSpace(p.SalesModel)
	p.ServiceModel = strings.TrimSpace(p.ServiceModel)
	p.CustomerProfile = strings.TrimSpace(p.CustomerProfile)
	p.DealSize = strings.TrimSpace(p.DealSize)
	return p
}
