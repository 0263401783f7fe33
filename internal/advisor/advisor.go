package advisor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/health-advisor/internal/metrics"
	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/policydb"
)

// User-visible texts for degraded call sites.
const (
	NoComparisonDetailsMessage = "No policy details found for comparison."
	AnswerUnavailableMessage   = "Sorry, I'm unable to answer your question at the moment."
	AnswerErrorMessage         = "I'm sorry, I encountered an error while answering your question. Please try again."
	compareErrorPrefix         = "Error comparing policies: "
)

// Call site labels.
const (
	callRecommend = "recommend"
	callCompare   = "compare"
	callAnswer    = "answer"
)

// Advisor builds the three model-backed operations on top of a Gateway and
// the static policy database.
type Advisor struct {
	gw *Gateway
	db *policydb.Database
}

// New returns an Advisor. A nil db is treated as empty.
func New(gw *Gateway, db *policydb.Database) *Advisor {
	if db == nil {
		db = policydb.Empty()
	}
	return &Advisor{gw: gw, db: db}
}

// Database returns the policy database the advisor reads from.
func (a *Advisor) Database() *policydb.Database {
	return a.db
}

// Available reports whether a language model is configured.
func (a *Advisor) Available() bool {
	return a != nil && a.gw.Available()
}

// Recommend asks the model for the top three policies for profile.
// An unavailable model or unparseable output yields an empty list and no
// error. Other model errors are returned with an empty list.
func (a *Advisor) Recommend(ctx context.Context, profile model.UserProfile) ([]model.Recommendation, error) {
	log := zap.L().With(zap.String("call_site", callRecommend))
	if !a.gw.Available() {
		metrics.ModelCalls.WithLabelValues(callRecommend, metrics.OutcomeUnavailable).Inc()
		log.Warn("model unavailable, returning no recommendations")
		return []model.Recommendation{}, nil
	}

	dbYAML, err := a.db.YAML()
	if err != nil {
		metrics.ModelCalls.WithLabelValues(callRecommend, metrics.OutcomeFailed).Inc()
		return []model.Recommendation{}, err
	}

	text, err := a.gw.Generate(ctx, BuildRecommendationPrompt(profile, dbYAML))
	if err != nil {
		metrics.ModelCalls.WithLabelValues(callRecommend, metrics.OutcomeFailed).Inc()
		log.Error("recommendation call failed", zap.Error(err))
		return []model.Recommendation{}, err
	}

	recs, err := ExtractRecommendations(text)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			metrics.ModelCalls.WithLabelValues(callRecommend, metrics.OutcomeParseError).Inc()
			log.Warn("model returned malformed recommendations json", zap.Error(err))
			return []model.Recommendation{}, nil
		}
		return []model.Recommendation{}, err
	}

	metrics.ModelCalls.WithLabelValues(callRecommend, a.outcome(text)).Inc()
	log.Info("recommendations generated", zap.Int("count", len(recs)))
	return recs, nil
}

// Compare asks the model for a prose comparison of the selected policies,
// given as "Company - Policy" labels or bare policy names. Failures are
// reported in the returned text.
func (a *Advisor) Compare(ctx context.Context, labels []string) string {
	log := zap.L().With(zap.String("call_site", callCompare))
	if !a.gw.Available() {
		metrics.ModelCalls.WithLabelValues(callCompare, metrics.OutcomeUnavailable).Inc()
		log.Warn("model unavailable, skipping comparison")
		return ""
	}

	details := a.db.Resolve(labels)
	if len(details) == 0 {
		return NoComparisonDetailsMessage
	}

	out, err := yaml.Marshal(details)
	if err != nil {
		metrics.ModelCalls.WithLabelValues(callCompare, metrics.OutcomeFailed).Inc()
		return compareErrorPrefix + err.Error()
	}

	text, err := a.gw.Generate(ctx, BuildComparisonPrompt(string(out)))
	if err != nil {
		metrics.ModelCalls.WithLabelValues(callCompare, metrics.OutcomeFailed).Inc()
		log.Error("comparison call failed", zap.Error(err), zap.Strings("policies", labels))
		return compareErrorPrefix + err.Error()
	}

	metrics.ModelCalls.WithLabelValues(callCompare, a.outcome(text)).Inc()
	return text
}

// Answer asks the model a free-form insurance question. Failures are
// replaced by a fixed apology.
func (a *Advisor) Answer(ctx context.Context, question string) string {
	log := zap.L().With(zap.String("call_site", callAnswer))
	if !a.gw.Available() {
		metrics.ModelCalls.WithLabelValues(callAnswer, metrics.OutcomeUnavailable).Inc()
		return AnswerUnavailableMessage
	}

	text, err := a.gw.Generate(ctx, BuildQuestionPrompt(question))
	if err != nil {
		metrics.ModelCalls.WithLabelValues(callAnswer, metrics.OutcomeFailed).Inc()
		log.Error("question call failed", zap.Error(err))
		return AnswerErrorMessage
	}

	metrics.ModelCalls.WithLabelValues(callAnswer, a.outcome(text)).Inc()
	return text
}

func (a *Advisor) outcome(text string) string {
	if text == a.gw.cfg.Fallback {
		return metrics.OutcomeFallback
	}
	return metrics.OutcomeOK
}
