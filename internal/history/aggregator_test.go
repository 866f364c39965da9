package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

type fakeView struct {
	spending []model.SpendingItem
	votes    []model.Vote

	spendingErr error
	votesErr    error

	since time.Time
}

func (f *fakeView) RecentSpending(_ context.Context, since time.Time) ([]model.SpendingItem, error) {
	f.since = since
	return f.spending, f.spendingErr
}

func (f *fakeView) DissentVotes(_ context.Context, _ time.Time) ([]model.Vote, error) {
	return f.votes, f.votesErr
}

func TestSummarizeVendorAndProjectTotals(t *testing.T) {
	view := &fakeView{
		spending: []model.SpendingItem{
			{Vendor: "Gateway Engineers", Amount: 221000, Project: "McNeilly Road"},
			{Vendor: "Gateway Engineers", Amount: 54000, Project: "McNeilly Road"},
			{Vendor: "Insight Pipe Contracting", Amount: 1124196.00},
			{Amount: 500, Description: "misc supplies"},
		},
	}
	agg := New(view, zap.NewNop())

	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	sum, err := agg.Summarize(context.Background(), asOf, 180)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if got := view.since; !got.Equal(asOf.AddDate(0, 0, -180)) {
		t.Errorf("window start = %s, want 180 days before asOf", got)
	}
	gw := sum.ByVendor["Gateway Engineers"]
	if gw.Total != 275000 || gw.Count != 2 {
		t.Errorf("Gateway Engineers = %+v, want total 275000 count 2", gw)
	}
	if sum.ByVendor["Insight Pipe Contracting"].Total != 1124196.00 {
		t.Errorf("Insight Pipe total = %v", sum.ByVendor["Insight Pipe Contracting"].Total)
	}
	if sum.ByVendor["Unknown"].Count != 1 {
		t.Errorf("items without a vendor should accumulate under Unknown, got %+v", sum.ByVendor)
	}
	mc := sum.ByProject["McNeilly Road"]
	if mc.Total != 275000 || mc.Count != 2 {
		t.Errorf("McNeilly Road = %+v, want total 275000 count 2", mc)
	}
	if len(sum.ByProject) != 1 {
		t.Errorf("items without a project must not create project entries: %+v", sum.ByProject)
	}
}

func TestSummarizeDissentCounts(t *testing.T) {
	view := &fakeView{
		votes: []model.Vote{
			{Motion: "Approve rezoning", Result: "passed", No: []string{"Craig Grella"}},
			{Motion: "Award towing contract", Result: "passed", No: []string{"Craig Grella"}, Abstain: []string{"Jeff Siegler"}},
		},
	}
	agg := New(view, zap.NewNop())

	sum, err := agg.Summarize(context.Background(), time.Now(), 180)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	grella := sum.Dissent["Craig Grella"]
	if grella.NoCount != 2 || grella.AbstainCount != 0 {
		t.Errorf("Grella = %+v, want 2 no votes", grella)
	}
	if len(grella.Topics) != 2 || grella.Topics[0] != "Approve rezoning" {
		t.Errorf("Grella topics = %v", grella.Topics)
	}
	siegler := sum.Dissent["Jeff Siegler"]
	if siegler.AbstainCount != 1 || siegler.NoCount != 0 {
		t.Errorf("Siegler = %+v, want 1 abstention", siegler)
	}
}

func TestSummarizeStoreFailure(t *testing.T) {
	boom := errors.New("database is locked")

	for name, view := range map[string]*fakeView{
		"spending": {spendingErr: boom},
		"votes":    {votesErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			agg := New(view, zap.NewNop())
			_, err := agg.Summarize(context.Background(), time.Now(), 180)
			if !errors.Is(err, model.ErrContextUnavailable) {
				t.Fatalf("err = %v, want ErrContextUnavailable", err)
			}
		})
	}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	agg := New(&fakeView{}, zap.NewNop())

	sum, err := agg.Summarize(context.Background(), time.Now(), 90)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !sum.Empty() {
		t.Errorf("summary over empty window should be empty: %+v", sum)
	}
	if sum.WindowDays != 90 {
		t.Errorf("WindowDays = %d, want 90", sum.WindowDays)
	}
}
