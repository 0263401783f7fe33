package advisor

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/health-advisor/internal/model"
)

// jsonObjectPattern is greedy: it spans from the first '{' to the last '}'.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseError reports model output whose embedded JSON object could not be
// decoded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return "advisor: parse recommendations: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

type recommendationEnvelope struct {
	Recommendations json.RawMessage `json:"recommendations"`
}

// ExtractRecommendations pulls the recommendation list out of free-form
// model text. Text without a brace-delimited object yields an empty list and
// no error. A malformed object yields a *ParseError. Field types are not
// enforced: a string rank, a numeric premium, or a single benefit string
// are accepted, and records that are not objects are skipped.
func ExtractRecommendations(text string) ([]model.Recommendation, error) {
	raw := jsonObjectPattern.FindString(text)
	if raw == "" {
		return []model.Recommendation{}, nil
	}

	var env recommendationEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, &ParseError{Raw: raw, Err: eris.Wrap(err, "decode json object")}
	}

	var records []json.RawMessage
	if len(env.Recommendations) == 0 || json.Unmarshal(env.Recommendations, &records) != nil {
		return []model.Recommendation{}, nil
	}

	recs := make([]model.Recommendation, 0, len(records))
	for _, r := range records {
		var fields map[string]any
		if err := json.Unmarshal(r, &fields); err != nil || fields == nil {
			continue
		}
		recs = append(recs, model.Recommendation{
			Rank:              looseInt(fields["rank"]),
			Company:           looseString(fields["company"]),
			Policy:            looseString(fields["policy"]),
			SuitabilityReason: looseString(fields["suitability_reason"]),
			KeyBenefits:       looseStrings(fields["key_benefits"]),
			Limitations:       looseStrings(fields["limitations"]),
			PremiumEstimate:   looseString(fields["premium_estimate"]),
		})
	}
	return recs, nil
}

func looseString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// looseInt returns 0 for values that are not a whole number.
func looseInt(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func looseStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := looseString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := looseString(t); s != "" {
			return []string{s}
		}
		return nil
	}
}
