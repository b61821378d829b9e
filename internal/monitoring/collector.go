// Package monitoring watches recorded runs for failures and shrinking sources.
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/store"
)

// scanLimit caps how many runs one collection reads.
const scanLimit = 1000

// Snapshot holds a point-in-time view of run health.
type Snapshot struct {
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	FailRate float64 `json:"fail_rate"` // failed / finished

	// Latest scrape run in the window.
	LastScrapeID     string    `json:"last_scrape_id,omitempty"`
	LastScrapeAt     time.Time `json:"last_scrape_at,omitempty"`
	LastScrapeFailed bool      `json:"last_scrape_failed"`
	LastScrapeError  string    `json:"last_scrape_error,omitempty"`

	Sources []SourceHealth `json:"sources,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// SourceHealth compares a chain's two most recent successful scrapes.
type SourceHealth struct {
	Chain    model.Chain `json:"chain"`
	Latest   int         `json:"latest"`
	Previous int         `json:"previous"`
	Scrapes  int         `json:"scrapes"`
	PassRate float64     `json:"pass_rate"`
}

// Change is the relative change between the previous and latest store count.
// It is zero when there is no previous scrape to compare with.
func (h SourceHealth) Change() float64 {
	if h.Previous == 0 {
		return 0
	}
	return float64(h.Latest-h.Previous) / float64(h.Previous)
}

// RunLister is the part of the store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run health from the store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new health collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot of runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// Runs come back newest first.
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: scanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	health := make(map[model.Chain]*SourceHealth)
	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.Total++
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusRunning:
			snap.Running++
		}

		if r.Kind != model.RunKindScrape || r.Status == model.RunStatusRunning {
			continue
		}
		if snap.LastScrapeID == "" {
			snap.LastScrapeID = r.ID
			snap.LastScrapeAt = r.CreatedAt
			snap.LastScrapeFailed = r.Status == model.RunStatusFailed
			if r.Result != nil {
				snap.LastScrapeError = r.Result.Error
			}
		}
		if r.Status != model.RunStatusComplete || r.Result == nil {
			continue
		}
		for _, s := range r.Result.Sources {
			h, ok := health[s.Chain]
			if !ok {
				h = &SourceHealth{Chain: s.Chain, Latest: s.Stored, PassRate: s.PassRate()}
				health[s.Chain] = h
			} else if h.Scrapes == 1 {
				h.Previous = s.Stored
			}
			h.Scrapes++
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}

	for _, h := range health {
		snap.Sources = append(snap.Sources, *h)
	}
	sort.Slice(snap.Sources, func(i, j int) bool {
		return snap.Sources[i].Chain.Priority() < snap.Sources[j].Chain.Priority()
	})

	return snap, nil
}
