package model

import (
	"fmt"
	"time"
)

// Newsletter is one consolidated weekly digest. WeekOf is the Monday of the
// ISO week it covers and is the natural key: regenerating a week replaces
// the content, and publish identifiers from a prior run are not reused.
type Newsletter struct {
	ID          string    `json:"id,omitempty"`
	WeekOf      string    `json:"week_of"`
	Title       string    `json:"title"`
	Markdown    string    `json:"markdown_content"`
	MeetingIDs  []string  `json:"meeting_ids"`
	GhostPostID string    `json:"ghost_post_id,omitempty"`
	GhostURL    string    `json:"ghost_post_url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// WeekOf returns the Monday of t's ISO week formatted as YYYY-MM-DD.
func WeekOf(t time.Time) string {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return t.AddDate(0, 0, 1-wd).Format("2006-01-02")
}

// HistoricalSummary is the derived trailing-window view handed to the
// consolidation prompt. It is computed fresh each run and never persisted.
type HistoricalSummary struct {
	WindowDays int                    `json:"window_days"`
	ByVendor   map[string]VendorStat  `json:"by_vendor"`
	ByProject  map[string]ProjectStat `json:"by_project"`
	Dissent    map[string]DissentStat `json:"dissent"`
}

// VendorStat accumulates spending for one vendor over the window.
type VendorStat struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// ProjectStat accumulates spending for one named project or budget line.
type ProjectStat struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// DissentStat counts votes an official cast against the majority result.
type DissentStat struct {
	NoCount      int      `json:"no_count"`
	AbstainCount int      `json:"abstain_count"`
	Topics       []string `json:"topics"`
}

// Empty reports whether the summary carries no historical signal. The
// pipeline degrades to an empty summary when the store is unreachable.
func (h *HistoricalSummary) Empty() bool {
	if h == nil {
		return true
	}
	return len(h.ByVendor) == 0 && len(h.ByProject) == 0 && len(h.Dissent) == 0
}

// EmptyHistoricalSummary is the documented default used when aggregation
// degrades.
func EmptyHistoricalSummary(windowDays int) *HistoricalSummary {
	return &HistoricalSummary{
		WindowDays: windowDays,
		ByVendor:   map[string]VendorStat{},
		ByProject:  map[string]ProjectStat{},
		Dissent:    map[string]DissentStat{},
	}
}

// Dollars formats an amount the way the prompts and store expect: two
// decimals, comma-grouped thousands.
func Dollars(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := len(s) - 3
	out := s[dot:]
	for i := dot; i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		chunk := s[start:i]
		if start > 0 {
			chunk = "," + chunk
		}
		out = chunk + out
	}
	return "$" + out
}
