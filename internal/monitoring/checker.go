package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// defaultInterval applies when the configured interval is not positive.
const defaultInterval = time.Hour

// Checker collects, evaluates and delivers alerts.
type Checker struct {
	collector     *Collector
	alerter       *Alerter
	lookbackHours int
	interval      time.Duration
}

// NewChecker creates an alert checker.
func NewChecker(collector *Collector, alerter *Alerter, lookbackHours int, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Checker{
		collector:     collector,
		alerter:       alerter,
		lookbackHours: lookbackHours,
		interval:      interval,
	}
}

// Check runs a single collection and returns the snapshot and triggered alerts.
func (c *Checker) Check(ctx context.Context) (*Snapshot, []Alert, error) {
	snap, err := c.collector.Collect(ctx, c.lookbackHours)
	if err != nil {
		return nil, nil, err
	}

	alerts := c.alerter.Evaluate(snap)
	sent := c.alerter.SendAlerts(ctx, alerts)
	zap.L().Debug("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return snap, alerts, nil
}

// Run repeats Check every interval. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookbackHours),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			if _, alerts, err := c.Check(ctx); err != nil {
				log.Error("monitoring: failed to collect run health", zap.Error(err))
			} else if len(alerts) > 0 {
				log.Warn("monitoring: alerts triggered", zap.Int("count", len(alerts)))
			}
		}
	}
}
