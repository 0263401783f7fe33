package server

import (
	"fmt"

	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/policydb"
)

// Display placeholders for fields the model or the database left out.
const (
	UnknownText      = "Unknown"
	NoReasonText     = "No specific reason provided"
	NoPremiumText    = "Premium estimate not available"
	NotSpecifiedText = "Not specified"
	NotAvailableText = "Not available"
)

// PolicyHighlights are the database details shown under a recommendation.
type PolicyHighlights struct {
	CoverageRange     string `json:"coverage_range"`
	WaitingPeriod     string `json:"pre_existing_waiting_period"`
	CoPayment         string `json:"co_payment"`
	MaternityCoverage string `json:"maternity_coverage"`
}

// RenderedRecommendation is a recommendation ready for display.
type RenderedRecommendation struct {
	Title             string            `json:"title"`
	Rank              int               `json:"rank"`
	Company           string            `json:"company"`
	Policy            string            `json:"policy"`
	SuitabilityReason string            `json:"suitability_reason"`
	KeyBenefits       []string          `json:"key_benefits"`
	Limitations       []string          `json:"limitations"`
	PremiumEstimate   string            `json:"premium_estimate"`
	Details           *PolicyHighlights `json:"additional_details,omitempty"`
}

func (s *Server) render(recs []model.Recommendation) []RenderedRecommendation {
	return RenderRecommendations(recs, s.deps.DB)
}

// RenderRecommendations fills display placeholders and attaches database
// highlights for policies found by exact company and policy name. A
// missing rank falls back to the list position.
func RenderRecommendations(recs []model.Recommendation, db *policydb.Database) []RenderedRecommendation {
	out := make([]RenderedRecommendation, 0, len(recs))
	for i, rec := range recs {
		r := RenderedRecommendation{
			Rank:              rec.Rank,
			Company:           orDefault(rec.Company, UnknownText),
			Policy:            orDefault(rec.Policy, UnknownText),
			SuitabilityReason: orDefault(rec.SuitabilityReason, NoReasonText),
			KeyBenefits:       nonNil(rec.KeyBenefits),
			Limitations:       nonNil(rec.Limitations),
			PremiumEstimate:   orDefault(rec.PremiumEstimate, NoPremiumText),
		}
		if r.Rank == 0 {
			r.Rank = i + 1
		}
		r.Title = fmt.Sprintf("#%d: %s - %s", r.Rank, r.Company, r.Policy)
		if db != nil {
			if p, ok := db.FindPolicy(rec.Company, rec.Policy); ok {
				r.Details = highlights(p)
			}
		}
		out = append(out, r)
	}
	return out
}

func highlights(p model.Policy) *PolicyHighlights {
	return &PolicyHighlights{
		CoverageRange:     p.GetOr(model.AttrCoverageRange, NotSpecifiedText),
		WaitingPeriod:     p.GetOr(model.AttrWaitingPeriod, NotSpecifiedText),
		CoPayment:         p.GetOr(model.AttrCoPayment, NotSpecifiedText),
		MaternityCoverage: p.GetOr(model.AttrMaternityCoverage, NotSpecifiedText),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
