package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Well-known policy attribute keys rendered in recommendation details.
const (
	AttrCoverageRange     = "coverage_range"
	AttrWaitingPeriod     = "pre_existing_waiting_period"
	AttrCoPayment         = "co_payment"
	AttrMaternityCoverage = "maternity_coverage"
)

// Insurer is one company entry in the static policy database.
type Insurer struct {
	Name                 string   `yaml:"name" json:"name"`
	ClaimSettlementRatio string   `yaml:"claim_settlement_ratio,omitempty" json:"claim_settlement_ratio,omitempty"`
	CashlessHospitals    string   `yaml:"cashless_hospitals,omitempty" json:"cashless_hospitals,omitempty"`
	Policies             []Policy `yaml:"policies" json:"policies"`
}

// Attribute is a single key/value pair of a policy, kept in document order.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Policy is a named policy with an open, ordered attribute set.
type Policy struct {
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes"`
}

// Get returns the value of the named attribute.
func (p Policy) Get(key string) (string, bool) {
	for _, a := range p.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// GetOr returns the named attribute or def when absent.
func (p Policy) GetOr(key, def string) string {
	if v, ok := p.Get(key); ok && v != "" {
		return v
	}
	return def
}

// UnmarshalYAML decodes a policy mapping, keeping attribute order.
// Sequence values are joined with ", "; nested mappings are kept as
// flow-style YAML text.
func (p *Policy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return eris.Errorf("policy: expected mapping at line %d", node.Line)
	}
	p.Name = ""
	p.Attributes = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val, err := nodeText(node.Content[i+1])
		if err != nil {
			return eris.Wrapf(err, "policy: attribute %q", key)
		}
		if key == "name" {
			p.Name = val
			continue
		}
		p.Attributes = append(p.Attributes, Attribute{Key: key, Value: val})
	}
	if p.Name == "" {
		return eris.Errorf("policy: missing name at line %d", node.Line)
	}
	return nil
}

// MarshalYAML encodes the policy as a mapping with name first.
func (p Policy) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	add := func(k, v string) {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
		)
	}
	add("name", p.Name)
	for _, a := range p.Attributes {
		add(a.Key, a.Value)
	}
	return n, nil
}

func nodeText(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			s, err := nodeText(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	case yaml.AliasNode:
		return nodeText(n.Alias)
	default:
		c := *n
		c.Style = yaml.FlowStyle
		out, err := yaml.Marshal(&c)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}
}

// PolicyDetail pairs a policy with its insurer, as sent to comparisons.
type PolicyDetail struct {
	Company string `yaml:"company" json:"company"`
	Policy  string `yaml:"policy" json:"policy"`
	Details Policy `yaml:"details" json:"details"`
}

// PolicyLabel formats the "Company - Policy" selection label.
func PolicyLabel(company, policy string) string {
	return company + " - " + policy
}

// ParsePolicyLabel splits a "Company - Policy" label. A bare policy name
// yields an empty company.
func ParsePolicyLabel(label string) (company, policy string) {
	c, p, ok := strings.Cut(label, " - ")
	if !ok {
		return "", strings.TrimSpace(label)
	}
	return strings.TrimSpace(c), strings.TrimSpace(p)
}
