package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate  AlertType = "run_failure_rate"
	AlertScrapeFailed AlertType = "scrape_failed"
	AlertSourceDrop   AlertType = "source_drop"
)

// minFinished is the number of finished runs below which the failure rate is
// too noisy to alert on.
const minFinished = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Thresholds configures when alerts fire and where they go.
type Thresholds struct {
	FailureRate float64 // alert when failed/finished exceeds this
	Drop        float64 // alert when a source loses more than this fraction of its stores
	WebhookURL  string
}

// Alerter evaluates a Snapshot against thresholds and delivers alerts to a
// webhook when one is configured.
type Alerter struct {
	cfg    Thresholds
	client *resty.Client
}

// NewAlerter creates a new Alerter.
func NewAlerter(cfg Thresholds) *Alerter {
	return &Alerter{
		cfg: cfg,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.Complete + snap.Failed
	if finished >= minFinished && snap.FailRate > a.cfg.FailureRate {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRate*100, snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRate,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.LastScrapeFailed {
		alerts = append(alerts, Alert{
			Type:     AlertScrapeFailed,
			Severity: "high",
			Message:  fmt.Sprintf("Latest scrape %s failed: %s", snap.LastScrapeID, snap.LastScrapeError),
			Details: map[string]any{
				"run_id": snap.LastScrapeID,
				"error":  snap.LastScrapeError,
			},
			Timestamp: now,
		})
	}

	for _, h := range snap.Sources {
		if h.Scrapes < 2 || -h.Change() <= a.cfg.Drop {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertSourceDrop,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%s stored %d stores, down from %d (%.1f%%); the site layout may have changed",
				h.Chain, h.Latest, h.Previous, h.Change()*100,
			),
			Details: map[string]any{
				"chain":    string(h.Chain),
				"latest":   h.Latest,
				"previous": h.Previous,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(alert).
		Post(a.cfg.WebhookURL)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	if resp.IsError() {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode())
	}
	return nil
}
