// Package policydb loads the static insurer/policy database and answers the
// lookups the advisor and the HTTP layer need.
package policydb

import (
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/health-advisor/internal/model"
)

// Database is the in-memory, read-only policy database.
type Database struct {
	insurers []model.Insurer
}

// New wraps an already-decoded insurer list.
func New(insurers []model.Insurer) *Database {
	return &Database{insurers: insurers}
}

// Empty returns a database with no insurers.
func Empty() *Database {
	return &Database{}
}

// Load reads and decodes the YAML document at path.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policydb: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML document holding a list of insurers.
func Parse(data []byte) (*Database, error) {
	var insurers []model.Insurer
	if err := yaml.Unmarshal(data, &insurers); err != nil {
		return nil, eris.Wrap(err, "policydb: decode")
	}
	return New(insurers), nil
}

// LoadOrEmpty loads the database and degrades to an empty one on failure.
// The returned warning is meant for display and is empty on success.
func LoadOrEmpty(path string) (*Database, string) {
	db, err := Load(path)
	if err != nil {
		zap.L().Warn("policydb: falling back to empty database",
			zap.String("path", path),
			zap.Error(err),
		)
		return Empty(), "Error loading insurance database: " + eris.Cause(err).Error()
	}
	zap.L().Info("policydb: loaded",
		zap.String("path", path),
		zap.Int("insurers", len(db.insurers)),
		zap.Int("policies", db.PolicyCount()),
	)
	return db, ""
}

// Insurers returns the insurer list in document order.
func (d *Database) Insurers() []model.Insurer {
	return d.insurers
}

// IsEmpty reports whether the database holds no insurers.
func (d *Database) IsEmpty() bool {
	return len(d.insurers) == 0
}

// PolicyCount returns the number of policies across all insurers.
func (d *Database) PolicyCount() int {
	n := 0
	for _, ins := range d.insurers {
		n += len(ins.Policies)
	}
	return n
}

// CompanyNames returns insurer names in document order.
func (d *Database) CompanyNames() []string {
	out := make([]string, 0, len(d.insurers))
	for _, ins := range d.insurers {
		out = append(out, ins.Name)
	}
	return out
}

// CoverageOptions returns the distinct coverage ranges, sorted.
func (d *Database) CoverageOptions() []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, ins := range d.insurers {
		for _, p := range ins.Policies {
			v, ok := p.Get(model.AttrCoverageRange)
			if !ok || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// PolicyLabels returns "Company - Policy" labels for every policy.
func (d *Database) PolicyLabels() []string {
	out := []string{}
	for _, ins := range d.insurers {
		for _, p := range ins.Policies {
			out = append(out, model.PolicyLabel(ins.Name, p.Name))
		}
	}
	return out
}

// Insurer looks up an insurer by exact name.
func (d *Database) Insurer(name string) (model.Insurer, bool) {
	for _, ins := range d.insurers {
		if ins.Name == name {
			return ins, true
		}
	}
	return model.Insurer{}, false
}

// FindPolicy looks up a policy by exact company and policy name.
func (d *Database) FindPolicy(company, policy string) (model.Policy, bool) {
	ins, ok := d.Insurer(company)
	if !ok {
		return model.Policy{}, false
	}
	for _, p := range ins.Policies {
		if p.Name == policy {
			return p, true
		}
	}
	return model.Policy{}, false
}

// FindByName returns every policy named policy, across all insurers.
func (d *Database) FindByName(policy string) []model.PolicyDetail {
	var out []model.PolicyDetail
	for _, ins := range d.insurers {
		for _, p := range ins.Policies {
			if p.Name == policy {
				out = append(out, model.PolicyDetail{Company: ins.Name, Policy: p.Name, Details: p})
			}
		}
	}
	return out
}

// Resolve maps selection labels to policy details. A label with a company
// matches only that insurer; a bare policy name matches every insurer
// carrying it. Unknown labels are skipped.
func (d *Database) Resolve(labels []string) []model.PolicyDetail {
	var out []model.PolicyDetail
	for _, label := range labels {
		company, policy := model.ParsePolicyLabel(label)
		if company == "" {
			out = append(out, d.FindByName(policy)...)
			continue
		}
		if p, ok := d.FindPolicy(company, policy); ok {
			out = append(out, model.PolicyDetail{Company: company, Policy: p.Name, Details: p})
		}
	}
	return out
}

// Filter narrows insurers by name and their policies by coverage range.
// An empty filter list matches everything. Insurers are kept even when
// the coverage filter removes all of their policies.
func (d *Database) Filter(companies, coverages []string) []model.Insurer {
	out := []model.Insurer{}
	for _, ins := range d.insurers {
		if len(companies) > 0 && !slices.Contains(companies, ins.Name) {
			continue
		}
		if len(coverages) == 0 {
			out = append(out, ins)
			continue
		}
		filtered := ins
		filtered.Policies = nil
		for _, p := range ins.Policies {
			v, _ := p.Get(model.AttrCoverageRange)
			if slices.Contains(coverages, v) {
				filtered.Policies = append(filtered.Policies, p)
			}
		}
		out = append(out, filtered)
	}
	return out
}

// YAML serialises the full database for inclusion in prompts.
func (d *Database) YAML() (string, error) {
	if d.IsEmpty() {
		return "[]\n", nil
	}
	out, err := yaml.Marshal(d.insurers)
	if err != nil {
		return "", eris.Wrap(err, "policydb: encode")
	}
	return string(out), nil
}

// AttributeLabel turns a snake_case attribute key into a display label,
// e.g. "pre_existing_waiting_period" → "Pre Existing Waiting Period".
func AttributeLabel(key string) string {
	// Casers carry state; one per call.
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}
