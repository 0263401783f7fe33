package model

// Recommendation is one ranked policy suggestion returned by the model.
// Fields mirror the JSON contract requested in the recommendation prompt.
type Recommendation struct {
	Rank              int      `json:"rank"`
	Company           string   `json:"company"`
	Policy            string   `json:"policy"`
	SuitabilityReason string   `json:"suitability_reason"`
	KeyBenefits       []string `json:"key_benefits"`
	Limitations       []string `json:"limitations"`
	PremiumEstimate   string   `json:"premium_estimate"`
}
