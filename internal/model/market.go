package model

// MarketDataItem is a single row from the regulator's filings listing.
type MarketDataItem struct {
	Company string `json:"company"`
	Policy  string `json:"policy"`
	Date    string `json:"date"`
	PDFLink string `json:"pdf_link,omitempty"`
}

// ClaimSettlementItem is a single row from the claim settlement aggregator.
type ClaimSettlementItem struct {
	Company              string `json:"company"`
	ClaimSettlementRatio string `json:"claim_settlement_ratio"`
	NetworkHospitals     string `json:"network_hospitals"`
	Premium              string `json:"premium"`
}

// PremiumItem is one plan card scraped from an insurer's website.
type PremiumItem struct {
	Company     string   `json:"company"`
	PolicyName  string   `json:"policy_name"`
	Premium     string   `json:"premium"`
	Coverage    string   `json:"coverage"`
	Features    []string `json:"features"`
	LastUpdated string   `json:"last_updated"`
}
