package domain

import (
	"encoding/json"
	"time"
)

// =============================================================================
// Baby
// =============================================================================

// Baby is the minimal projection of a baby profile the chat service needs.
// Profiles are owned and managed by the mobile app; only the id is consumed
// here to scope log lookups.
type Baby struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// =============================================================================
// Activity Logs
// =============================================================================

// LogEntry is a raw activity log row recorded by the mobile app
// (sleep, feeding, diaper change and the like).
type LogEntry struct {
	ID        string          `json:"id"`
	BabyID    string          `json:"baby_id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// LogData is the decoded payload of a LogEntry.
type LogData struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// DecodeData decodes the entry payload. A missing or malformed payload
// yields the zero value rather than an error; log rows are best-effort input.
func (e *LogEntry) DecodeData() LogData {
	var d LogData
	if len(e.Data) == 0 {
		return d
	}
	_ = json.Unmarshal(e.Data, &d)
	return d
}

// =============================================================================
// Reports
// =============================================================================

// ReportItem is one aggregated activity inside a report category.
type ReportItem struct {
	Type string          `json:"type,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeData decodes the item payload, best-effort like LogEntry.DecodeData.
func (i *ReportItem) DecodeData() LogData {
	var d LogData
	if len(i.Data) == 0 {
		return d
	}
	_ = json.Unmarshal(i.Data, &d)
	return d
}

// Report is an aggregated summary row for a baby, keyed by report type
// (for example "end_of_day_summary"). Data maps category name to items.
type Report struct {
	ID         string                  `json:"id"`
	BabyID     string                  `json:"baby_id"`
	ReportType string                  `json:"report_type"`
	Data       map[string][]ReportItem `json:"data"`
	CreatedAt  time.Time               `json:"created_at"`
}
