package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/cache"
	"github.com/connorhurley12/lebo-board-watcher/internal/digest"
	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

type fakeExtractor struct {
	cached map[string]*model.Extraction
	fail   map[string]error
	votes  map[string][]model.Vote

	extractCalls []string
}

func (f *fakeExtractor) Cached(doc model.Document) (*model.Extraction, bool) {
	rec, ok := f.cached[doc.Filename]
	return rec, ok
}

func (f *fakeExtractor) Extract(_ context.Context, doc model.Document, _, _ []model.Document) (*model.Extraction, error) {
	f.extractCalls = append(f.extractCalls, doc.Filename)
	if err, ok := f.fail[doc.Filename]; ok {
		return nil, err
	}
	return &model.Extraction{Source: doc.Filename, Notes: "notes for " + doc.Filename, Votes: f.votes[doc.Filename]}, nil
}

type fakeConsolidator struct {
	calls int
	last  digest.Input
	err   error
}

func (f *fakeConsolidator) Consolidate(_ context.Context, in digest.Input) (*model.Newsletter, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &model.Newsletter{
		WeekOf:   in.WeekOf,
		Title:    "Lebo Board Watch",
		Markdown: "# 🚨 The Headlines\n\n# 🏛️ The Deep Dive\n",
	}, nil
}

type fakeSummarizer struct {
	err error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ time.Time, windowDays int) (*model.HistoricalSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := model.EmptyHistoricalSummary(windowDays)
	h.ByVendor["Gateway Engineers"] = model.VendorStat{Total: 221000, Count: 3}
	return h, nil
}

func testSources() *Sources {
	return &Sources{
		Transcripts: []model.Document{
			{Filename: "2026-08-24_Municipality_Commission_Meeting.txt", Content: "transcript a"},
			{Filename: "2026-08-25_SchoolBoard_Regular_Meeting.txt", Content: "transcript b"},
			{Filename: "2026-08-26_Municipality_Planning_Board.txt", Content: "transcript c"},
		},
	}
}

func newTestDriver(t *testing.T, ex Extractor, con Consolidator, opts DriverOptions) *Driver {
	t.Helper()
	if opts.DraftsDir == "" {
		opts.DraftsDir = t.TempDir()
	}
	if opts.VotesDir == "" {
		opts.VotesDir = t.TempDir()
	}
	return NewDriver(ex, con, cache.NewMemoryCache(), zap.NewNop(), opts)
}

func TestRunPartialFailure(t *testing.T) {
	ex := &fakeExtractor{
		fail: map[string]error{
			"2026-08-25_SchoolBoard_Regular_Meeting.txt": &model.ExtractionError{
				Source: "2026-08-25_SchoolBoard_Regular_Meeting.txt",
				Reason: model.ReasonMalformedResponse,
			},
		},
	}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), testSources(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.State != StateDone {
		t.Errorf("state = %s, want done", res.State)
	}
	if len(res.Extractions) != 2 {
		t.Errorf("extractions = %d, want 2", len(res.Extractions))
	}
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(res.Failures))
	}
	if res.Failures[0].Reason != model.ReasonMalformedResponse {
		t.Errorf("failure reason = %s", res.Failures[0].Reason)
	}
	if res.Newsletter == nil {
		t.Fatal("partial failure must still produce a newsletter")
	}
	if con.calls != 1 {
		t.Errorf("consolidation calls = %d, want 1", con.calls)
	}
}

func TestRunFailFast(t *testing.T) {
	ex := &fakeExtractor{
		fail: map[string]error{
			"2026-08-24_Municipality_Commission_Meeting.txt": &model.ExtractionError{
				Source: "2026-08-24_Municipality_Commission_Meeting.txt",
				Reason: model.ReasonModelUnavailable,
			},
		},
	}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), testSources(), Options{FailFast: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.State != StateFailed {
		t.Errorf("state = %s, want failed", res.State)
	}
	if len(ex.extractCalls) != 1 {
		t.Errorf("extract calls = %d, want 1 (abort on first failure)", len(ex.extractCalls))
	}
	if con.calls != 0 {
		t.Errorf("consolidation ran after fail-fast abort")
	}
}

func TestRunAllFailed(t *testing.T) {
	ex := &fakeExtractor{
		fail: map[string]error{
			"2026-08-24_Municipality_Commission_Meeting.txt": &model.ExtractionError{Source: "a", Reason: model.ReasonEmptyInput},
			"2026-08-25_SchoolBoard_Regular_Meeting.txt":     &model.ExtractionError{Source: "b", Reason: model.ReasonEmptyInput},
			"2026-08-26_Municipality_Planning_Board.txt":     &model.ExtractionError{Source: "c", Reason: model.ReasonEmptyInput},
		},
	}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), testSources(), Options{})
	if err == nil {
		t.Fatal("expected error when every document fails")
	}
	if res.State != StateFailed {
		t.Errorf("state = %s, want failed", res.State)
	}
	if con.calls != 0 {
		t.Errorf("consolidation must not run without extractions")
	}
}

func TestRunDigestOnly(t *testing.T) {
	sources := testSources()
	ex := &fakeExtractor{
		cached: map[string]*model.Extraction{
			sources.Transcripts[0].Filename: {Source: sources.Transcripts[0].Filename, Notes: "cached a"},
			sources.Transcripts[1].Filename: {Source: sources.Transcripts[1].Filename, Notes: "cached b"},
		},
	}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), sources, Options{DigestOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ex.extractCalls) != 0 {
		t.Errorf("digest-only made %d extraction calls, want 0", len(ex.extractCalls))
	}
	if con.calls != 1 {
		t.Errorf("consolidation calls = %d, want exactly 1", con.calls)
	}
	if len(con.last.Extractions) != 2 {
		t.Errorf("consolidated %d extracts, want both cached entries", len(con.last.Extractions))
	}
	if res.Newsletter == nil {
		t.Fatal("no newsletter produced")
	}
}

func TestRunDigestOnlyEmptyCache(t *testing.T) {
	ex := &fakeExtractor{}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), testSources(), Options{DigestOnly: true})
	if err == nil {
		t.Fatal("expected error with empty cache")
	}
	if res.State != StateFailed {
		t.Errorf("state = %s, want failed", res.State)
	}
}

func TestRunCacheHitsSkipExtraction(t *testing.T) {
	sources := testSources()
	ex := &fakeExtractor{
		cached: map[string]*model.Extraction{
			sources.Transcripts[0].Filename: {Source: sources.Transcripts[0].Filename, Notes: "cached a"},
		},
	}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), sources, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.CacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", res.CacheHits)
	}
	if len(ex.extractCalls) != 2 {
		t.Errorf("extract calls = %v, cached document must be skipped", ex.extractCalls)
	}
	if len(res.Extractions) != 3 {
		t.Errorf("extractions = %d, want all 3", len(res.Extractions))
	}
}

func TestRunDegradedAggregation(t *testing.T) {
	ex := &fakeExtractor{}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{
		History: &fakeSummarizer{err: model.ErrContextUnavailable},
	})

	res, err := d.Run(context.Background(), testSources(), Options{})
	if err != nil {
		t.Fatalf("unreachable store must not abort the run: %v", err)
	}
	if res.Newsletter == nil {
		t.Fatal("no newsletter produced")
	}
	if !con.last.History.Empty() {
		t.Errorf("degraded run should consolidate with an empty summary")
	}
}

func TestRunConsolidationFailureIsFatal(t *testing.T) {
	ex := &fakeExtractor{}
	con := &fakeConsolidator{err: &model.ConsolidationError{Reason: model.ReasonMalformedResponse}}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), testSources(), Options{})

	var cerr *model.ConsolidationError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want ConsolidationError", err)
	}
	if res.State != StateFailed {
		t.Errorf("state = %s, want failed", res.State)
	}
	if res.Newsletter != nil {
		t.Error("failed consolidation must not produce a newsletter")
	}
	if res.DraftPath != "" {
		t.Error("no draft should be written on fatal failure")
	}
}

func TestRunWritesDraft(t *testing.T) {
	dir := t.TempDir()
	ex := &fakeExtractor{}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{DraftsDir: dir})

	res, err := d.Run(context.Background(), testSources(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	content, err := os.ReadFile(res.DraftPath)
	if err != nil {
		t.Fatalf("draft not written: %v", err)
	}
	if !strings.Contains(string(content), "# 🚨 The Headlines") {
		t.Errorf("draft missing newsletter content:\n%s", content)
	}
	if !strings.HasPrefix(string(content), "<!-- Generated:") {
		t.Errorf("draft missing generation header")
	}
}

func TestRunWritesVoteLog(t *testing.T) {
	sources := testSources()
	ex := &fakeExtractor{
		votes: map[string][]model.Vote{
			sources.Transcripts[0].Filename: {
				{Motion: "Award towing contract", Result: "Passed 4-1", No: []string{"Craig Grella"}},
			},
			sources.Transcripts[1].Filename: {
				{Motion: "Approve minutes", Result: "Passed", Unanimous: true},
			},
		},
	}
	con := &fakeConsolidator{}
	// No store configured; the vote log must survive on disk regardless.
	d := newTestDriver(t, ex, con, DriverOptions{VotesDir: t.TempDir()})

	res, err := d.Run(context.Background(), sources, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.VotesPath == "" {
		t.Fatal("no vote log written")
	}
	if !strings.HasPrefix(filepath.Base(res.VotesPath), "votes_") {
		t.Errorf("vote log name = %q", filepath.Base(res.VotesPath))
	}

	data, err := os.ReadFile(res.VotesPath)
	if err != nil {
		t.Fatalf("vote log not written: %v", err)
	}
	var votes []model.Vote
	if err := json.Unmarshal(data, &votes); err != nil {
		t.Fatalf("vote log is not valid JSON: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("vote log holds %d record(s), want 2", len(votes))
	}
	if votes[0].Motion != "Award towing contract" || len(votes[0].No) != 1 {
		t.Errorf("vote record lost detail: %+v", votes[0])
	}
}

func TestRunNoVotesNoArtifact(t *testing.T) {
	ex := &fakeExtractor{}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	res, err := d.Run(context.Background(), testSources(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.VotesPath != "" {
		t.Errorf("vote log written for a week with no votes: %s", res.VotesPath)
	}
}

func TestDiscoverMinutesFallback(t *testing.T) {
	sources := &Sources{
		Transcripts: []model.Document{
			{Filename: "2026-08-24_Municipality_Commission_Meeting.txt", Content: "t"},
		},
		Minutes: []model.Document{
			// Same date as the transcript above; skipped.
			{Filename: "2026-08-24_mtleb_minutes_CM.txt", Content: "m"},
			// No transcript for this date; processed as a standalone source.
			{Filename: "2026-08-20_mtleb_minutes_Hospital_Authority.txt", Content: "m"},
		},
	}
	ex := &fakeExtractor{}
	con := &fakeConsolidator{}
	d := newTestDriver(t, ex, con, DriverOptions{})

	if _, err := d.Run(context.Background(), sources, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ex.extractCalls) != 2 {
		t.Fatalf("extract calls = %v, want transcript plus uncovered minutes", ex.extractCalls)
	}
	for _, call := range ex.extractCalls {
		if call == "2026-08-24_mtleb_minutes_CM.txt" {
			t.Error("minutes with a same-date transcript must be skipped")
		}
	}
}

func TestBodyFromFilename(t *testing.T) {
	cases := map[string]string{
		"2026-01-28_Municipality_Commission_Meeting_-_01272026.txt": "Commission Meeting",
		"2026-01-27_SchoolBoard_Regular_Meeting_-_01272026.txt":     "Regular Meeting",
		"2026-01-27_mtleb_minutes_CM.txt":                           "CM",
		"2026-01-27_mtleb_minutes.txt":                              "Unknown Meeting",
	}
	for in, want := range cases {
		if got := BodyFromFilename(in); got != want {
			t.Errorf("BodyFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMediaURLFromContent(t *testing.T) {
	content := "Title: Commission Meeting\nURL: https://www.youtube.com/watch?v=abc123\n\nbody text"
	if got := MediaURLFromContent(content); got != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("MediaURLFromContent = %q", got)
	}
	if got := MediaURLFromContent("no header here"); got != "" {
		t.Errorf("MediaURLFromContent = %q, want empty", got)
	}
}

func TestLoadDocumentsLookback(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"2026-08-24_Municipality_Commission_Meeting.txt": "recent",
		"2026-01-05_Municipality_Commission_Meeting.txt": "old",
		"undated_notes.txt": "no prefix",
		"ignored.json":      "not a txt",
	}
	for name, content := range files {
		if err := os.WriteFile(dir+"/"+name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	docs, err := LoadDocuments(dir, 14, now)
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}

	got := make([]string, 0, len(docs))
	for _, d := range docs {
		got = append(got, d.Filename)
	}
	want := []string{"2026-08-24_Municipality_Commission_Meeting.txt", "undated_notes.txt"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("docs = %v, want %v", got, want)
	}
}

func TestLoadDocumentsMissingDir(t *testing.T) {
	docs, err := LoadDocuments("/nonexistent/path", 0, time.Now())
	if err != nil || docs != nil {
		t.Errorf("missing dir: docs=%v err=%v, want nil/nil", docs, err)
	}
}

func TestMatchByDate(t *testing.T) {
	agendas := []model.Document{
		{Filename: "2026-08-24_Municipality_Agenda.txt"},
		{Filename: "2026-08-25_SchoolBoard_Agenda.txt"},
	}
	matched := MatchByDate("2026-08-24_Municipality_Commission_Meeting.txt", agendas)
	if len(matched) != 1 || matched[0].Filename != "2026-08-24_Municipality_Agenda.txt" {
		t.Errorf("matched = %v", matched)
	}
}
