package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
	"github.com/connorhurley12/lebo-board-watcher/internal/store"
)

// Aggregator computes the trailing-window historical summary fed into the
// consolidation prompt: repeat-vendor totals, project-to-date totals, and
// per-official dissent counts.
type Aggregator struct {
	view store.HistoryView
	log  *zap.Logger
}

// New creates an Aggregator over a read-only store view.
func New(view store.HistoryView, log *zap.Logger) *Aggregator {
	return &Aggregator{view: view, log: log}
}

// Summarize builds the summary as of asOf over the trailing window. A
// store failure returns ErrContextUnavailable; the caller degrades to an
// empty summary rather than aborting the run.
func (a *Aggregator) Summarize(ctx context.Context, asOf time.Time, windowDays int) (*model.HistoricalSummary, error) {
	since := asOf.AddDate(0, 0, -windowDays)
	summary := model.EmptyHistoricalSummary(windowDays)

	items, err := a.view.RecentSpending(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrContextUnavailable, err)
	}
	for _, item := range items {
		vendor := item.Vendor
		if vendor == "" {
			vendor = "Unknown"
		}
		vs := summary.ByVendor[vendor]
		vs.Total += item.Amount
		vs.Count++
		summary.ByVendor[vendor] = vs

		if item.Project != "" {
			ps := summary.ByProject[item.Project]
			ps.Total += item.Amount
			ps.Count++
			summary.ByProject[item.Project] = ps
		}
	}

	// The store only hands back votes whose stored unanimity flag is
	// false. That flag is authoritative: a unanimous=true vote with a
	// non-empty no list is counted as unanimous, never reinterpreted,
	// because it may have been written by a different extractor version.
	votes, err := a.view.DissentVotes(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrContextUnavailable, err)
	}
	for _, v := range votes {
		for _, name := range v.No {
			ds := summary.Dissent[name]
			ds.NoCount++
			ds.Topics = append(ds.Topics, v.Motion)
			summary.Dissent[name] = ds
		}
		for _, name := range v.Abstain {
			ds := summary.Dissent[name]
			ds.AbstainCount++
			ds.Topics = append(ds.Topics, v.Motion)
			summary.Dissent[name] = ds
		}
	}

	a.log.Info("built historical context",
		zap.Int("window_days", windowDays),
		zap.Int("vendors", len(summary.ByVendor)),
		zap.Int("projects", len(summary.ByProject)),
		zap.Int("dissenting_officials", len(summary.Dissent)))

	return summary, nil
}
