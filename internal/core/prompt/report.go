package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/nestling/nestling/internal/core/domain"
)

// =============================================================================
// Report Rendering
// =============================================================================

// RenderLogs renders raw activity log entries into the text block embedded in
// the context prompt. Entries render as one bullet each; timestamps that do
// not parse are skipped rather than failing the whole render.
func RenderLogs(entries []domain.LogEntry) string {
	if len(entries) == 0 {
		return ""
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Here is the baby's recent activity:")
	for i := range entries {
		line := renderItem(entries[i].Type, entries[i].DecodeData())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// RenderReport renders an aggregated report row, grouping items under a
// per-category heading the way the end-of-day summary is presented.
func RenderReport(report *domain.Report) string {
	if report == nil {
		return ""
	}

	lines := []string{"Here is the baby's report:"}
	if report.ReportType != "" {
		lines = append(lines, fmt.Sprintf("- Report type: %s", report.ReportType))
	}
	for category, items := range report.Data {
		if len(items) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("\n## %s Summary ##", category))
		for i := range items {
			line := renderItem(items[i].Type, items[i].DecodeData())
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// renderItem renders one activity as "- Type: X | Start: HH:MM | End: HH:MM |
// Duration: N minutes | Notes: ...", omitting fields that are absent.
func renderItem(itemType string, data domain.LogData) string {
	var details []string

	if itemType != "" {
		details = append(details, fmt.Sprintf("Type: %s", itemType))
	}

	if data.StartTime != "" && data.EndTime != "" {
		start, errStart := parseTimestamp(data.StartTime)
		end, errEnd := parseTimestamp(data.EndTime)
		if errStart == nil && errEnd == nil {
			minutes := int(end.Sub(start).Round(time.Minute) / time.Minute)
			details = append(details,
				fmt.Sprintf("Start: %s", start.Format("15:04")),
				fmt.Sprintf("End: %s", end.Format("15:04")),
				fmt.Sprintf("Duration: %d minutes", minutes),
			)
		}
	}

	if data.Notes != "" {
		details = append(details, fmt.Sprintf("Notes: %s", data.Notes))
	}

	if len(details) == 0 {
		return ""
	}
	return "- " + strings.Join(details, " | ")
}

// parseTimestamp accepts RFC3339 with either a Z or numeric offset, the two
// shapes the mobile app has historically written.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
