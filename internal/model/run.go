package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind names the stage a run executed.
type RunKind string

const (
	RunKindScrape  RunKind = "scrape"
	RunKindMerge   RunKind = "merge"
	RunKindAnalyze RunKind = "analyze"
)

// Run is one recorded execution of a pipeline stage.
type Run struct {
	ID        string     `json:"id"`
	Kind      RunKind    `json:"kind"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Sources  []SourceSummary `json:"sources,omitempty"`
	Rows     int             `json:"rows,omitempty"`
	Sections []SectionResult `json:"sections,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// SourceSummary counts what happened to one source's records during a run.
type SourceSummary struct {
	Chain     Chain          `json:"chain"`
	Extracted int            `json:"extracted"`
	Skipped   int            `json:"skipped"` // extraction-level failures
	Dropped   int            `json:"dropped"` // coordinate conversion failures
	Stored    int            `json:"stored"`
	Formats   map[string]int `json:"formats,omitempty"`
	Reasons   map[string]int `json:"reasons,omitempty"`
	Output    string         `json:"output,omitempty"`
	Duration  int64          `json:"duration_ms"`
}

// PassRate is the share of extracted records whose coordinates validated, in percent.
func (s SourceSummary) PassRate() float64 {
	if s.Extracted == 0 {
		return 0
	}
	return float64(s.Stored) / float64(s.Extracted) * 100
}

// SectionStatus is the outcome of one report section.
type SectionStatus string

const (
	SectionComplete SectionStatus = "complete"
	SectionFailed   SectionStatus = "failed"
)

// SectionResult holds the outcome of one analysis section.
type SectionResult struct {
	Name     string        `json:"name"`
	Status   SectionStatus `json:"status"`
	Insight  string        `json:"insight,omitempty"`
	Artifact string        `json:"artifact,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration int64         `json:"duration_ms"`
}
