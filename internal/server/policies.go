package server

import (
	"net/http"
	"strings"

	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/policydb"
)

// MinCompareSelection is the fewest policies a comparison accepts.
const MinCompareSelection = 2

type labelledAttribute struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type policyView struct {
	Name       string              `json:"name"`
	Attributes []labelledAttribute `json:"attributes"`
}

type insurerView struct {
	Name                 string       `json:"name"`
	ClaimSettlementRatio string       `json:"claim_settlement_ratio"`
	CashlessHospitals    string       `json:"cashless_hospitals"`
	Policies             []policyView `json:"policies"`
}

type policiesRes struct {
	Insurers []insurerView `json:"insurers"`
	Warning  string        `json:"warning,omitempty"`
}

// handlePolicies lists insurers, optionally narrowed by repeated company
// and coverage query parameters.
func (s *Server) handlePolicies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	insurers := s.deps.DB.Filter(queryList(q["company"]), queryList(q["coverage"]))
	out := make([]insurerView, 0, len(insurers))
	for _, ins := range insurers {
		out = append(out, viewInsurer(ins))
	}
	writeJSON(w, policiesRes{Insurers: out, Warning: s.deps.DBWarning}, nil)
}

func viewInsurer(ins model.Insurer) insurerView {
	v := insurerView{
		Name:                 ins.Name,
		ClaimSettlementRatio: orDefault(ins.ClaimSettlementRatio, NotAvailableText),
		CashlessHospitals:    orDefault(ins.CashlessHospitals, NotAvailableText),
		Policies:             make([]policyView, 0, len(ins.Policies)),
	}
	for _, p := range ins.Policies {
		pv := policyView{Name: p.Name, Attributes: make([]labelledAttribute, 0, len(p.Attributes))}
		for _, a := range p.Attributes {
			pv.Attributes = append(pv.Attributes, labelledAttribute{
				Key:   a.Key,
				Label: policydb.AttributeLabel(a.Key),
				Value: a.Value,
			})
		}
		v.Policies = append(v.Policies, pv)
	}
	return v
}

type optionsRes struct {
	Companies []string `json:"companies"`
	Coverages []string `json:"coverages"`
	Policies  []string `json:"policies"`
}

func (s *Server) handlePolicyOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, optionsRes{
		Companies: s.deps.DB.CompanyNames(),
		Coverages: s.deps.DB.CoverageOptions(),
		Policies:  s.deps.DB.PolicyLabels(),
	}, nil)
}

type compareReq struct {
	Policies []string `json:"policies"`
}

type compareRes struct {
	Comparison string `json:"comparison"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareReq
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, nil, err)
		return
	}
	labels := queryList(req.Policies)
	if len(labels) < MinCompareSelection {
		writeJSON(w, nil, badRequest("Please select at least 2 policies to compare."))
		return
	}
	writeJSON(w, compareRes{Comparison: s.deps.Advisor.Compare(r.Context(), labels)}, nil)
}

type termsRes struct {
	Company string `json:"company"`
	Text    string `json:"text"`
}

func (s *Server) handleTerms(w http.ResponseWriter, r *http.Request) {
	company := strings.TrimSpace(r.URL.Query().Get("company"))
	if company == "" {
		writeJSON(w, nil, badRequest("company is required"))
		return
	}
	if s.deps.Terms == nil {
		writeJSON(w, nil, httpErr{code: http.StatusServiceUnavailable, msg: "terms lookup is not configured"})
		return
	}
	writeJSON(w, termsRes{Company: company, Text: s.deps.Terms.Fetch(r.Context(), company)}, nil)
}

// queryList trims values and drops empty ones.
func queryList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
