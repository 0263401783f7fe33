package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Gender is the self-reported gender on a profile.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Genders returns the accepted gender options.
func Genders() []Gender {
	return []Gender{GenderMale, GenderFemale, GenderOther}
}

// CoverageTiers returns the fixed coverage amount options, smallest first.
func CoverageTiers() []string {
	return []string{
		"₹2 Lakhs",
		"₹3 Lakhs",
		"₹5 Lakhs",
		"₹10 Lakhs",
		"₹20 Lakhs",
		"₹50 Lakhs",
		"₹1 Crore",
	}
}

// ConditionOptions lists the pre-existing condition choices offered by the form.
func ConditionOptions() []string {
	return []string{"None", "Diabetes", "Hypertension", "Heart Disease", "Asthma", "Thyroid", "Cancer", "Other"}
}

// FeatureOptions lists the preferred feature choices offered by the form.
func FeatureOptions() []string {
	return []string{
		"Cashless Hospitalization",
		"No Claim Bonus",
		"Maternity Benefits",
		"Critical Illness Cover",
		"Pre & Post Hospitalization",
		"Day Care Procedures",
		"Domiciliary Treatment",
		"Free Health Check-up",
	}
}

// Profile bounds enforced on submission.
const (
	MinAge        = 1
	MaxAge        = 120
	MinFamilySize = 1
	MaxFamilySize = 10
)

// UserProfile is the applicant description used to personalise
// recommendations. Nil pointers and empty slices mean "not provided".
type UserProfile struct {
	Age                   *int     `json:"age,omitempty"`
	Gender                Gender   `json:"gender,omitempty"`
	PreExistingConditions []string `json:"pre_existing_conditions,omitempty"`
	FamilySize            *int     `json:"family_size,omitempty"`
	Budget                *int     `json:"budget,omitempty"`
	CoverageAmount        string   `json:"coverage_amount,omitempty"`
	PreferredFeatures     []string `json:"preferred_features,omitempty"`
}

// IsSet reports whether the profile has been submitted at least once.
func (p UserProfile) IsSet() bool {
	return p.Age != nil
}

// Validate checks the form-level range and enum constraints.
func (p UserProfile) Validate() error {
	if p.Age != nil && (*p.Age < MinAge || *p.Age > MaxAge) {
		return eris.Errorf("age must be between %d and %d", MinAge, MaxAge)
	}
	if p.FamilySize != nil && (*p.FamilySize < MinFamilySize || *p.FamilySize > MaxFamilySize) {
		return eris.Errorf("family size must be between %d and %d", MinFamilySize, MaxFamilySize)
	}
	if p.Budget != nil && *p.Budget < 0 {
		return eris.New("budget must not be negative")
	}
	if p.Gender != "" && !slices.Contains(Genders(), p.Gender) {
		return eris.Errorf("unknown gender %q", p.Gender)
	}
	if p.CoverageAmount != "" && !slices.Contains(CoverageTiers(), p.CoverageAmount) {
		return eris.Errorf("unknown coverage amount %q", p.CoverageAmount)
	}
	return nil
}

// Lines renders the set fields as "key: value" lines in a stable order,
// skipping unset fields.
func (p UserProfile) Lines() []string {
	var out []string
	if p.Age != nil {
		out = append(out, fmt.Sprintf("age: %d", *p.Age))
	}
	if p.Gender != "" {
		out = append(out, fmt.Sprintf("gender: %s", p.Gender))
	}
	if len(p.PreExistingConditions) > 0 {
		out = append(out, fmt.Sprintf("pre_existing_conditions: %s", strings.Join(p.PreExistingConditions, ", ")))
	}
	if p.FamilySize != nil {
		out = append(out, fmt.Sprintf("family_size: %d", *p.FamilySize))
	}
	if p.Budget != nil {
		out = append(out, fmt.Sprintf("budget: %d", *p.Budget))
	}
	if p.CoverageAmount != "" {
		out = append(out, fmt.Sprintf("coverage_amount: %s", p.CoverageAmount))
	}
	if len(p.PreferredFeatures) > 0 {
		out = append(out, fmt.Sprintf("preferred_features: %s", strings.Join(p.PreferredFeatures, ", ")))
	}
	return out
}
