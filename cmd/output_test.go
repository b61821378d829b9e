package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/monitoring"
)

func TestFormatSourceSummaries(t *testing.T) {
	summaries := []model.SourceSummary{
		{
			Chain: model.ChainTam, Extracted: 3, Skipped: 1, Dropped: 1, Stored: 2,
			Reasons: map[string]int{"out_of_bounds": 1}, Output: "data/tam.csv",
		},
		{Chain: model.ChainOBA, Extracted: 4, Stored: 4, Output: "data/oba.csv"},
	}

	var buf bytes.Buffer
	formatSourceSummaries(&buf, summaries)

	output := buf.String()
	assert.Contains(t, output, "TAM")
	assert.Contains(t, output, "66.7%")
	assert.Contains(t, output, "out_of_bounds=1")
	assert.Contains(t, output, "data/oba.csv")
	assert.Contains(t, output, "100.0%")
	// 6 of 7 across both sources
	assert.Contains(t, output, "85.7%")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "", formatCounts(nil))
	assert.Equal(t, "malformed=2, missing=1", formatCounts(map[string]int{"missing": 1, "malformed": 2}))
}

func TestFormatSections(t *testing.T) {
	var buf bytes.Buffer
	formatSections(&buf, []model.SectionResult{
		{Name: "market_share", Status: model.SectionComplete, Insight: "OBA leads", Artifact: "charts/market_share.png"},
		{Name: "bravo_formats", Status: model.SectionFailed, Error: "no data"},
	})

	output := buf.String()
	assert.Contains(t, output, "market_share")
	assert.Contains(t, output, "OBA leads")
	assert.Contains(t, output, "no data")
	assert.Contains(t, output, "1/2 ok")
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Kind:      model.RunKindScrape,
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Rows: 2284},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Kind:      model.RunKindMerge,
			Status:    model.RunStatusFailed,
			Result:    &model.RunResult{Error: "no scraped table for TAM in data; run `chainscan scrape tam` first"},
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "scrape")
	assert.Contains(t, output, "2284")
	assert.Contains(t, output, "2026-03-02 10:30")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "no scraped table for TAM")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatHealth(t *testing.T) {
	snap := &monitoring.Snapshot{
		Total: 4, Complete: 3, Failed: 1, FailRate: 0.25, LookbackHours: 24,
		Sources: []monitoring.SourceHealth{
			{Chain: model.ChainOBA, Latest: 12, Previous: 40, Scrapes: 2, PassRate: 95},
			{Chain: model.ChainTam, Latest: 3, Scrapes: 1, PassRate: 100},
		},
	}
	alerts := []monitoring.Alert{{Type: monitoring.AlertSourceDrop, Severity: "medium", Message: "OBA stored 12 stores"}}

	var buf bytes.Buffer
	formatHealth(&buf, snap, alerts)

	output := buf.String()
	assert.Contains(t, output, "Runs in the last 24h")
	assert.Contains(t, output, "25.0%")
	assert.Contains(t, output, "-70.0%")
	assert.Contains(t, output, "OBA stored 12 stores")

	buf.Reset()
	formatHealth(&buf, &monitoring.Snapshot{LookbackHours: 24}, nil)
	assert.Contains(t, buf.String(), "No alerts.")
}
