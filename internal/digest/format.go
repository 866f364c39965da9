package digest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// formatVotes summarizes the week's votes for the consolidation prompt.
// Split votes and abstentions get full detail; unanimous votes are listed
// one line each so routine approvals don't crowd the prompt.
func formatVotes(votes []model.Vote) string {
	if len(votes) == 0 {
		return ""
	}

	var noteworthy, unanimous []model.Vote
	for _, v := range votes {
		if v.Noteworthy() {
			noteworthy = append(noteworthy, v)
		} else {
			unanimous = append(unanimous, v)
		}
	}

	var b strings.Builder
	b.WriteString("## Structured Vote Log\n")

	if len(noteworthy) > 0 {
		b.WriteString("### Non-Unanimous / Noteworthy Votes\n")
		for _, v := range noteworthy {
			fmt.Fprintf(&b, "- **%s** — %s\n", orUnknown(v.Meeting), v.Motion)
			fmt.Fprintf(&b, "  Result: %s\n", v.Result)
			if len(v.No) > 0 {
				fmt.Fprintf(&b, "  Opposed: %s\n", strings.Join(v.No, ", "))
			}
			if len(v.Abstain) > 0 {
				fmt.Fprintf(&b, "  Abstained: %s\n", strings.Join(v.Abstain, ", "))
			}
			if v.Context != "" {
				fmt.Fprintf(&b, "  Context: %s\n", v.Context)
			}
			b.WriteString("\n")
		}
	}

	if len(unanimous) > 0 {
		fmt.Fprintf(&b, "### Unanimous Votes (%d total)\n", len(unanimous))
		for _, v := range unanimous {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", orUnknown(v.Meeting), v.Motion, v.Result)
		}
	}

	return b.String()
}

// formatSpending lists the week's spending items largest first so the model
// sees the big numbers before the prompt gets long.
func formatSpending(items []model.SpendingItem) string {
	if len(items) == 0 {
		return ""
	}

	sorted := make([]model.SpendingItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})

	var b strings.Builder
	b.WriteString("## Structured Spending Log\n\n")
	for _, s := range sorted {
		fmt.Fprintf(&b, "- **%s** — %s", model.Dollars(s.Amount), s.Description)
		if s.Vendor != "" && s.Vendor != "N/A" {
			fmt.Fprintf(&b, " (Vendor: %s)", s.Vendor)
		}
		if s.Project != "" {
			fmt.Fprintf(&b, " [Project: %s]", s.Project)
		}
		if s.Category != "" {
			fmt.Fprintf(&b, " [%s]", s.Category)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatHistory renders the trailing-window summary as a prompt section.
// Returns "" for an empty or nil summary so a degraded run produces a
// prompt with no historical section at all.
func formatHistory(h *model.HistoricalSummary) string {
	if h.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Historical Context (from database)\n\n")
	hasContent := false

	type vendorRow struct {
		name string
		stat model.VendorStat
	}
	var repeat []vendorRow
	for name, stat := range h.ByVendor {
		if stat.Count >= 2 && name != "N/A" && name != "Unknown" {
			repeat = append(repeat, vendorRow{name, stat})
		}
	}
	if len(repeat) > 0 {
		hasContent = true
		sort.Slice(repeat, func(i, j int) bool {
			if repeat[i].stat.Total != repeat[j].stat.Total {
				return repeat[i].stat.Total > repeat[j].stat.Total
			}
			return repeat[i].name < repeat[j].name
		})
		b.WriteString("### Repeat Vendors (2+ payments this year)\n")
		for _, row := range repeat {
			fmt.Fprintf(&b, "- **%s**: %d payments totaling %s\n",
				row.name, row.stat.Count, model.Dollars(row.stat.Total))
		}
		b.WriteString("\n")
	}

	type projectRow struct {
		name string
		stat model.ProjectStat
	}
	var projects []projectRow
	for name, stat := range h.ByProject {
		projects = append(projects, projectRow{name, stat})
	}
	if len(projects) > 0 {
		hasContent = true
		sort.Slice(projects, func(i, j int) bool {
			if projects[i].stat.Total != projects[j].stat.Total {
				return projects[i].stat.Total > projects[j].stat.Total
			}
			return projects[i].name < projects[j].name
		})
		b.WriteString("### Project Spending Totals\n")
		for _, row := range projects {
			fmt.Fprintf(&b, "- **%s**: %s across %d line items\n",
				row.name, model.Dollars(row.stat.Total), row.stat.Count)
		}
		b.WriteString("\n")
	}

	type dissentRow struct {
		name string
		stat model.DissentStat
	}
	var dissenters []dissentRow
	for name, stat := range h.Dissent {
		dissenters = append(dissenters, dissentRow{name, stat})
	}
	if len(dissenters) > 0 {
		hasContent = true
		sort.Slice(dissenters, func(i, j int) bool {
			if dissenters[i].stat.NoCount != dissenters[j].stat.NoCount {
				return dissenters[i].stat.NoCount > dissenters[j].stat.NoCount
			}
			return dissenters[i].name < dissenters[j].name
		})
		b.WriteString("### Dissent Patterns (non-unanimous votes)\n")
		for _, row := range dissenters {
			topics := row.stat.Topics
			if len(topics) > 3 {
				topics = topics[:3]
			}
			var clauses []string
			if row.stat.NoCount > 0 {
				clauses = append(clauses, fmt.Sprintf("voted No on %d item(s)", row.stat.NoCount))
			}
			if row.stat.AbstainCount > 0 {
				clauses = append(clauses, fmt.Sprintf("abstained on %d item(s)", row.stat.AbstainCount))
			}
			fmt.Fprintf(&b, "- **%s**: %s (e.g., %s)\n",
				row.name, strings.Join(clauses, ", "), strings.Join(topics, "; "))
		}
		b.WriteString("\n")
	}

	if !hasContent {
		return ""
	}
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
