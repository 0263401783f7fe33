// Package monitoring sends webhook alerts when background jobs keep failing.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/health-advisor/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertJobFailures  AlertType = "job_failures"
	AlertJobRecovered AlertType = "job_recovered"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Job       string         `json:"job"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter counts consecutive failures per job and posts an alert to the
// configured webhook when a job reaches the threshold, and again when it
// recovers. It is safe for concurrent use.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	now    func() time.Time

	mu       sync.Mutex
	failures map[string]int
	alerted  map[string]bool
}

// NewAlerter creates a new Alerter with the given monitoring config. A
// non-positive threshold alerts on the first failure.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	return &Alerter{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
		failures: make(map[string]int),
		alerted:  make(map[string]bool),
	}
}

// Enabled reports whether a webhook is configured.
func (a *Alerter) Enabled() bool {
	return a != nil && a.cfg.WebhookURL != ""
}

// Evaluate records the outcome of one job run and returns the alerts it
// triggers. A job alerts once per failure streak.
func (a *Alerter) Evaluate(job string, err error) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now().UTC()

	if err == nil {
		streak := a.failures[job]
		wasAlerted := a.alerted[job]
		delete(a.failures, job)
		delete(a.alerted, job)
		if !wasAlerted {
			return nil
		}
		return []Alert{{
			Type:      AlertJobRecovered,
			Severity:  "info",
			Job:       job,
			Message:   fmt.Sprintf("%s recovered after %d consecutive failure(s)", job, streak),
			Details:   map[string]any{"consecutive_failures": streak},
			Timestamp: now,
		}}
	}

	a.failures[job]++
	streak := a.failures[job]
	if streak < a.cfg.FailureThreshold || a.alerted[job] {
		return nil
	}
	a.alerted[job] = true
	return []Alert{{
		Type:     AlertJobFailures,
		Severity: "high",
		Job:      job,
		Message: fmt.Sprintf(
			"%s failed %d time(s) in a row: %v",
			job, streak, err,
		),
		Details: map[string]any{
			"consecutive_failures": streak,
			"threshold":            a.cfg.FailureThreshold,
			"error":                err.Error(),
		},
		Timestamp: now,
	}}
}

// Observe evaluates a job outcome and sends any resulting alerts. It
// returns the number of alerts sent.
func (a *Alerter) Observe(ctx context.Context, job string, err error) int {
	if a == nil {
		return 0
	}
	return a.SendAlerts(ctx, a.Evaluate(job, err))
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if !a.Enabled() || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.String("job", alert.Job),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("job", alert.Job),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
