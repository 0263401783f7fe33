// Package export writes market tables to XLSX workbooks and CSV files.
package export

import (
	"strings"

	"github.com/sells-group/health-advisor/internal/market"
	"github.com/sells-group/health-advisor/internal/model"
)

// Sheet is a named table of string cells with a header row.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Sheet names used by MarketSheets.
const (
	SheetIRDAI    = "IRDAI Updates"
	SheetClaims   = "Claim Settlement"
	SheetPremiums = "Premiums"
)

// IRDAISheet renders regulator listing rows.
func IRDAISheet(items []model.MarketDataItem) Sheet {
	s := Sheet{Name: SheetIRDAI, Header: []string{"Company", "Policy", "Date", "PDF Link"}}
	for _, it := range items {
		s.Rows = append(s.Rows, []string{it.Company, it.Policy, it.Date, it.PDFLink})
	}
	return s
}

// ClaimsSheet renders claim settlement rows.
func ClaimsSheet(items []model.ClaimSettlementItem) Sheet {
	s := Sheet{Name: SheetClaims, Header: []string{"Company", "Claim Settlement Ratio", "Network Hospitals", "Premium"}}
	for _, it := range items {
		s.Rows = append(s.Rows, []string{it.Company, it.ClaimSettlementRatio, it.NetworkHospitals, it.Premium})
	}
	return s
}

// PremiumsSheet renders plan cards. Features are joined with "; ".
func PremiumsSheet(items []model.PremiumItem) Sheet {
	s := Sheet{Name: SheetPremiums, Header: []string{"Company", "Policy", "Premium", "Coverage", "Features", "Last Updated"}}
	for _, it := range items {
		s.Rows = append(s.Rows, []string{
			it.Company, it.PolicyName, it.Premium, it.Coverage,
			strings.Join(it.Features, "; "), it.LastUpdated,
		})
	}
	return s
}

// MarketSheets renders the current market snapshots in sheet order.
func MarketSheets(t *market.Tables) []Sheet {
	return []Sheet{
		IRDAISheet(t.IRDAI.Load().Items),
		ClaimsSheet(t.Claims.Load().Items),
		PremiumsSheet(t.Premiums.Load().Items),
	}
}
