package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/cache"
	"github.com/connorhurley12/lebo-board-watcher/internal/digest"
	"github.com/connorhurley12/lebo-board-watcher/internal/model"
	"github.com/connorhurley12/lebo-board-watcher/internal/store"
)

// State is the driver's position in a run.
type State string

const (
	StateIdle          State = "idle"
	StateDiscovering   State = "discovering"
	StateExtracting    State = "extracting"
	StateAggregating   State = "aggregating"
	StateConsolidating State = "consolidating"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Extractor is the Phase 1 collaborator.
type Extractor interface {
	Cached(doc model.Document) (*model.Extraction, bool)
	Extract(ctx context.Context, doc model.Document, agendas, minutes []model.Document) (*model.Extraction, error)
}

// Consolidator is the Phase 2 collaborator.
type Consolidator interface {
	Consolidate(ctx context.Context, in digest.Input) (*model.Newsletter, error)
}

// Summarizer builds the historical context. Nil is allowed; runs then go
// out with an empty summary.
type Summarizer interface {
	Summarize(ctx context.Context, asOf time.Time, windowDays int) (*model.HistoricalSummary, error)
}

// Driver walks one run through discovery, extraction, aggregation, and
// consolidation. It owns sequencing and failure policy; the stages own
// their own model calls and caching.
type Driver struct {
	extractor    Extractor
	consolidator Consolidator
	history      Summarizer
	store        store.Store
	cache        cache.Cache
	log          *zap.Logger

	draftsDir  string
	votesDir   string
	windowDays int
	now        func() time.Time

	state State
}

// DriverOptions configures a Driver.
type DriverOptions struct {
	// History may be nil; the run then proceeds with empty context.
	History Summarizer

	// Store may be nil, selecting file-only mode.
	Store store.Store

	// DraftsDir receives the rendered newsletter file.
	DraftsDir string

	// VotesDir receives the week's vote records as a JSON artifact. The
	// vote log is written here even when no store is configured.
	VotesDir string

	// HistoryWindowDays bounds the trailing aggregation window.
	HistoryWindowDays int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Options selects the per-run behavior.
type Options struct {
	// DigestOnly skips extraction and consolidates from cache entries
	// alone. Zero extraction model calls are made.
	DigestOnly bool

	// RetryFailed is accepted for operator familiarity. Cache-miss-only
	// processing is the default in every mode, since failed extractions
	// are never cached.
	RetryFailed bool

	// FailFast aborts on the first extraction failure instead of
	// collecting it.
	FailFast bool

	// ClearCache wipes the extraction cache before the run.
	ClearCache bool
}

// Result is the outcome of one run.
type Result struct {
	State       State
	Newsletter  *model.Newsletter
	DraftPath   string
	Extractions []*model.Extraction

	// Failures holds the per-document extraction errors. The run still
	// consolidates whatever succeeded.
	Failures []*model.ExtractionError

	// VotesPath is the written vote-log artifact, empty when the week had
	// no votes.
	VotesPath string

	MeetingIDs []string
	CacheHits  int
	ModelCalls int
}

// NewDriver creates a Driver.
func NewDriver(extractor Extractor, consolidator Consolidator, c cache.Cache, log *zap.Logger, opts DriverOptions) *Driver {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	windowDays := opts.HistoryWindowDays
	if windowDays <= 0 {
		windowDays = 365
	}

	return &Driver{
		extractor:    extractor,
		consolidator: consolidator,
		history:      opts.History,
		store:        opts.Store,
		cache:        c,
		log:          log,
		draftsDir:    opts.DraftsDir,
		votesDir:     opts.VotesDir,
		windowDays:   windowDays,
		now:          now,
		state:        StateIdle,
	}
}

// State returns the driver's current state.
func (d *Driver) State() State {
	return d.state
}

// Run executes one full pipeline pass over the discovered sources.
func (d *Driver) Run(ctx context.Context, sources *Sources, opts Options) (*Result, error) {
	res := &Result{}

	d.transition(StateDiscovering)

	if opts.ClearCache {
		if err := d.cache.Clear(); err != nil {
			return d.fail(res, fmt.Errorf("clear cache: %w", err))
		}
		d.log.Info("cleared extraction cache")
	}

	docs := d.discover(sources)
	if len(docs) == 0 {
		return d.fail(res, errors.New("no transcripts or minutes found in the lookback window"))
	}
	d.log.Info("discovered documents",
		zap.Int("count", len(docs)),
		zap.Int("agendas", len(sources.Agendas)),
		zap.Int("budget_docs", len(sources.Budget)))

	if opts.DigestOnly {
		if err := d.loadCachedOnly(docs, res); err != nil {
			return d.fail(res, err)
		}
	} else {
		d.transition(StateExtracting)
		if err := d.extractAll(ctx, docs, sources, opts, res); err != nil {
			return d.fail(res, err)
		}
	}

	if len(res.Extractions) == 0 {
		return d.fail(res, fmt.Errorf("no extractions available: %d document(s) failed", len(res.Failures)))
	}

	votesPath, err := d.saveVotes(res.Extractions)
	if err != nil {
		return d.fail(res, err)
	}
	res.VotesPath = votesPath

	d.transition(StateAggregating)
	history := d.aggregate(ctx)

	d.transition(StateConsolidating)
	newsletter, err := d.consolidator.Consolidate(ctx, digest.Input{
		WeekOf:      model.WeekOf(d.now()),
		Extractions: res.Extractions,
		BudgetDocs:  sources.Budget,
		History:     history,
	})
	if err != nil {
		return d.fail(res, err)
	}
	res.ModelCalls++
	newsletter.MeetingIDs = res.MeetingIDs
	res.Newsletter = newsletter

	if d.store != nil {
		if _, err := d.store.SaveNewsletter(ctx, newsletter); err != nil {
			d.log.Warn("saving newsletter to store failed", zap.Error(err))
		}
	}

	draftPath, err := d.saveDraft(newsletter)
	if err != nil {
		return d.fail(res, err)
	}
	res.DraftPath = draftPath

	d.transition(StateDone)
	res.State = StateDone

	if len(res.Failures) > 0 {
		d.log.Warn("run completed with extraction failures",
			zap.Int("failed", len(res.Failures)),
			zap.Int("succeeded", len(res.Extractions)))
	}
	return res, nil
}

// discover selects the documents to extract: every transcript, plus any
// minutes file whose date has no transcript. Minutes are the fallback
// record for bodies that do not publish recordings.
func (d *Driver) discover(sources *Sources) []sourceDoc {
	var docs []sourceDoc
	for _, t := range sources.Transcripts {
		docs = append(docs, sourceDoc{doc: t, kind: model.SourceTranscript})
	}

	for _, m := range sources.Minutes {
		if len(m.Filename) < 10 {
			continue
		}
		prefix := m.Filename[:10]
		covered := false
		for _, t := range sources.Transcripts {
			if strings.HasPrefix(t.Filename, prefix) {
				covered = true
				break
			}
		}
		if covered {
			d.log.Debug("skipping minutes, transcript exists for same date",
				zap.String("file", m.Filename))
			continue
		}
		docs = append(docs, sourceDoc{doc: m, kind: model.SourceMinutes})
	}
	return docs
}

type sourceDoc struct {
	doc  model.Document
	kind model.SourceKind
}

func (d *Driver) extractAll(ctx context.Context, docs []sourceDoc, sources *Sources, opts Options, res *Result) error {
	for _, sd := range docs {
		if rec, ok := d.extractor.Cached(sd.doc); ok {
			d.log.Info("using cached extract",
				zap.String("source", sd.doc.Filename),
				zap.Int("votes", len(rec.Votes)),
				zap.Int("spending_items", len(rec.Spending)))
			res.CacheHits++
			res.Extractions = append(res.Extractions, rec)
			d.persist(ctx, sd, rec, res)
			continue
		}

		agendas := MatchByDate(sd.doc.Filename, sources.Agendas)
		var minutes []model.Document
		if sd.kind == model.SourceTranscript {
			minutes = MatchByDate(sd.doc.Filename, sources.Minutes)
		}

		rec, err := d.extractor.Extract(ctx, sd.doc, agendas, minutes)
		if err != nil {
			var exErr *model.ExtractionError
			if !errors.As(err, &exErr) {
				exErr = &model.ExtractionError{Source: sd.doc.Filename, Err: err}
			}
			if opts.FailFast {
				return exErr
			}
			if ctx.Err() != nil {
				// The run deadline fired; remaining documents would
				// all fail the same way.
				return ctx.Err()
			}
			d.log.Error("extraction failed",
				zap.String("source", exErr.Source),
				zap.String("reason", string(exErr.Reason)),
				zap.Error(exErr.Err))
			res.Failures = append(res.Failures, exErr)
			continue
		}

		res.ModelCalls++
		res.Extractions = append(res.Extractions, rec)
		d.persist(ctx, sd, rec, res)
	}
	return nil
}

// loadCachedOnly fills the result from cache entries alone.
func (d *Driver) loadCachedOnly(docs []sourceDoc, res *Result) error {
	for _, sd := range docs {
		rec, ok := d.extractor.Cached(sd.doc)
		if !ok {
			d.log.Warn("no cache entry for document in digest-only mode",
				zap.String("source", sd.doc.Filename))
			continue
		}
		res.CacheHits++
		res.Extractions = append(res.Extractions, rec)
	}
	if len(res.Extractions) == 0 {
		return errors.New("digest-only: no cached extracts found, run a full analysis first")
	}
	d.log.Info("digest-only: loaded cached extracts", zap.Int("count", len(res.Extractions)))
	return nil
}

// persist writes one meeting's facts through the store. Persistence
// failures degrade to file-only behavior for that document; the newsletter
// does not depend on the store.
func (d *Driver) persist(ctx context.Context, sd sourceDoc, rec *model.Extraction, res *Result) {
	if d.store == nil {
		return
	}

	date := sd.doc.Date()
	body := BodyFromFilename(sd.doc.Filename)
	meeting := &model.Meeting{
		Date:           date,
		Body:           body,
		SourceFilename: sd.doc.Filename,
		SourceKind:     sd.kind,
		MediaURL:       MediaURLFromContent(sd.doc.Content),
	}

	id, err := d.store.UpsertMeeting(ctx, meeting, rec.Notes)
	if err != nil {
		d.log.Warn("persisting meeting failed",
			zap.String("source", sd.doc.Filename),
			zap.Error(err))
		return
	}
	res.MeetingIDs = append(res.MeetingIDs, id)

	if err := d.store.ReplaceVotes(ctx, id, rec.Votes); err != nil {
		d.log.Warn("persisting votes failed", zap.String("meeting_id", id), zap.Error(err))
	}
	if err := d.store.ReplaceSpending(ctx, id, rec.Spending, date.Year()); err != nil {
		d.log.Warn("persisting spending failed", zap.String("meeting_id", id), zap.Error(err))
	}
	roster, err := d.store.SyncOfficials(ctx, body, rec.Votes)
	if err != nil {
		d.log.Warn("syncing officials failed", zap.String("body", body), zap.Error(err))
	} else if len(roster) > 0 {
		d.log.Debug("officials roster", zap.String("body", body), zap.Int("count", len(roster)))
	}
}

// aggregate builds the historical summary, degrading to an empty one when
// the store is missing or unreachable.
func (d *Driver) aggregate(ctx context.Context) *model.HistoricalSummary {
	if d.history == nil {
		return model.EmptyHistoricalSummary(d.windowDays)
	}

	summary, err := d.history.Summarize(ctx, d.now(), d.windowDays)
	if err != nil {
		if errors.Is(err, model.ErrContextUnavailable) {
			d.log.Warn("historical context unavailable, continuing without it", zap.Error(err))
			return model.EmptyHistoricalSummary(d.windowDays)
		}
		d.log.Warn("aggregation failed, continuing without historical context", zap.Error(err))
		return model.EmptyHistoricalSummary(d.windowDays)
	}
	return summary
}

// saveVotes writes the week's structured vote records to the votes
// directory as a standalone JSON artifact. The store persists the same
// records when configured; this file keeps the vote log around in
// file-only mode.
func (d *Driver) saveVotes(extracts []*model.Extraction) (string, error) {
	var votes []model.Vote
	for _, ex := range extracts {
		votes = append(votes, ex.Votes...)
	}
	if len(votes) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(d.votesDir, 0o755); err != nil {
		return "", fmt.Errorf("create votes dir: %w", err)
	}

	name := fmt.Sprintf("votes_%s.json", d.now().Format("2006-01-02_150405"))
	path := filepath.Join(d.votesDir, name)

	data, err := json.MarshalIndent(votes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode votes: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write votes: %w", err)
	}

	d.log.Info("saved vote log", zap.Int("votes", len(votes)), zap.String("path", path))
	return path, nil
}

func (d *Driver) saveDraft(nl *model.Newsletter) (string, error) {
	if err := os.MkdirAll(d.draftsDir, 0o755); err != nil {
		return "", fmt.Errorf("create drafts dir: %w", err)
	}

	name := fmt.Sprintf("analysis_%s_weekly_digest.md", d.now().Format("2006-01-02_150405"))
	path := filepath.Join(d.draftsDir, name)

	content := fmt.Sprintf("<!-- Generated: %s -->\n\n%s", d.now().Format(time.RFC3339), nl.Markdown)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}

	d.log.Info("saved draft", zap.String("path", path))
	return path, nil
}

func (d *Driver) transition(s State) {
	d.log.Debug("state transition", zap.String("from", string(d.state)), zap.String("to", string(s)))
	d.state = s
}

func (d *Driver) fail(res *Result, err error) (*Result, error) {
	d.transition(StateFailed)
	res.State = StateFailed
	return res, err
}
