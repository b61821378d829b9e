package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/monitoring"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

// formatSourceSummaries prints processed and dropped counts per source and
// the coordinate pass rate.
func formatSourceSummaries(out io.Writer, summaries []model.SourceSummary) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Source", "Extracted", "Skipped", "Dropped", "Stored", "Pass rate", "Drop reasons", "Output"})

	var total model.SourceSummary
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.Chain, s.Extracted, s.Skipped, s.Dropped, s.Stored,
			fmt.Sprintf("%.1f%%", s.PassRate()), formatCounts(s.Reasons), s.Output,
		})
		total.Extracted += s.Extracted
		total.Skipped += s.Skipped
		total.Dropped += s.Dropped
		total.Stored += s.Stored
	}
	t.AppendFooter(table.Row{
		"Total", total.Extracted, total.Skipped, total.Dropped, total.Stored,
		fmt.Sprintf("%.1f%%", total.PassRate()), "", "",
	})
	t.Render()
}

// formatCounts renders a reason histogram as "a=1, b=2" sorted by key.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func formatMergeCounts(out io.Writer, counts map[model.Chain]int, order []model.Chain, path string) {
	t := newTable(out)
	t.SetTitle("Merged into " + path)
	t.AppendHeader(table.Row{"Source", "Rows"})
	total := 0
	for _, c := range order {
		t.AppendRow(table.Row{c, counts[c]})
		total += counts[c]
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()
}

func formatSections(out io.Writer, results []model.SectionResult) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Section", "Status", "Result", "Artifact"})
	failed := 0
	for _, r := range results {
		detail := r.Insight
		status := text.FgGreen.Sprint(r.Status)
		if r.Status == model.SectionFailed {
			detail = r.Error
			status = text.FgRed.Sprint(r.Status)
			failed++
		}
		t.AppendRow(table.Row{r.Name, status, detail, r.Artifact})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d ok", len(results)-failed, len(results)), "", ""})
	t.Render()
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Kind", "Status", "Rows", "Created", "Duration", "Error"})
	for _, r := range runs {
		rows, errMsg := "", ""
		if r.Result != nil {
			if r.Result.Rows > 0 {
				rows = fmt.Sprintf("%d", r.Result.Rows)
			}
			errMsg = r.Result.Error
		}
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		t.AppendRow(table.Row{
			truncateID(r.ID),
			r.Kind,
			r.Status,
			rows,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String(),
			errMsg,
		})
	}
	t.Render()
}

// formatHealth prints run counts, per-source store trends and any alerts.
func formatHealth(out io.Writer, snap *monitoring.Snapshot, alerts []monitoring.Alert) {
	t := newTable(out)
	t.SetTitle(fmt.Sprintf("Runs in the last %dh", snap.LookbackHours))
	t.AppendHeader(table.Row{"Total", "Complete", "Failed", "Running", "Failure rate"})
	t.AppendRow(table.Row{snap.Total, snap.Complete, snap.Failed, snap.Running, fmt.Sprintf("%.1f%%", snap.FailRate*100)})
	t.Render()

	if len(snap.Sources) > 0 {
		t = newTable(out)
		t.AppendHeader(table.Row{"Source", "Latest", "Previous", "Change", "Pass rate", "Scrapes"})
		for _, h := range snap.Sources {
			change := "-"
			if h.Scrapes > 1 && h.Previous > 0 {
				change = fmt.Sprintf("%+.1f%%", h.Change()*100)
			}
			t.AppendRow(table.Row{h.Chain, h.Latest, h.Previous, change, fmt.Sprintf("%.1f%%", h.PassRate), h.Scrapes})
		}
		t.Render()
	}

	if len(alerts) == 0 {
		fmt.Fprintln(out, text.FgGreen.Sprint("No alerts."))
		return
	}
	for _, a := range alerts {
		fmt.Fprintf(out, "%s [%s] %s\n", text.FgRed.Sprint("ALERT"), a.Severity, a.Message)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
