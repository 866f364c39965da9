package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/cache"
	"github.com/connorhurley12/lebo-board-watcher/internal/llm"
	"github.com/connorhurley12/lebo-board-watcher/internal/model"
	"github.com/connorhurley12/lebo-board-watcher/internal/worker"
)

// Extractor is the Phase 1 stage: one document in, one validated
// Extraction out, cached under the document's fingerprint.
type Extractor struct {
	provider llm.Provider
	cache    cache.Cache
	governor *worker.Governor
	validate *validator.Validate
	log      *zap.Logger

	system  string
	model   string
	version string
}

// Options configures an Extractor.
type Options struct {
	// Context is the shared project background prepended to the phase
	// instructions (project_context.md).
	Context string

	// Model overrides the provider's default model.
	Model string
}

// New creates an Extractor. The version string ties cache entries to the
// prompt revision and the exact provider/model pair, so switching either
// invalidates prior extractions.
func New(provider llm.Provider, c cache.Cache, governor *worker.Governor, log *zap.Logger, opts Options) *Extractor {
	system := ExtractPrompt
	if opts.Context != "" {
		system = opts.Context + "\n\n" + ExtractPrompt
	}

	return &Extractor{
		provider: provider,
		cache:    c,
		governor: governor,
		validate: validator.New(),
		log:      log,
		system:   system,
		model:    opts.Model,
		version:  fmt.Sprintf("%s:%s:%s", promptVersion, provider.Name(), opts.Model),
	}
}

// Version returns the extractor's identifying version string.
func (e *Extractor) Version() string {
	return e.version
}

// Fingerprint computes the cache key for a document under this extractor.
func (e *Extractor) Fingerprint(doc model.Document) string {
	return cache.Fingerprint([]byte(doc.Content), e.version)
}

// Cached returns the cache entry for a document, if a valid one exists.
// A corrupt entry is treated as a miss and removed.
func (e *Extractor) Cached(doc model.Document) (*model.Extraction, bool) {
	key := e.Fingerprint(doc)
	data, found := e.cache.Get(key)
	if !found {
		return nil, false
	}

	var rec model.Extraction
	if err := json.Unmarshal(data, &rec); err != nil {
		e.log.Warn("discarding corrupt cache entry",
			zap.String("source", doc.Filename),
			zap.Error(err))
		_ = e.cache.Delete(key)
		return nil, false
	}
	return &rec, true
}

// Extract sends one document to the model and parses the structured
// response. On success the record is written to the cache before it is
// returned: exactly one write, and failed extractions are never cached, so
// the next run retries them.
func (e *Extractor) Extract(ctx context.Context, doc model.Document, agendas, minutes []model.Document) (*model.Extraction, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, &model.ExtractionError{Source: doc.Filename, Reason: model.ReasonEmptyInput}
	}

	if err := e.governor.Acquire(ctx); err != nil {
		return nil, &model.ExtractionError{Source: doc.Filename, Reason: model.ReasonModelUnavailable, Err: err}
	}

	e.log.Info("extracting",
		zap.String("source", doc.Filename),
		zap.String("provider", e.provider.Name()),
		zap.String("model", e.model))

	resp, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System: e.system,
		Prompt: BuildPrompt(doc, agendas, minutes),
		Model:  e.model,
	})
	if err != nil {
		return nil, &model.ExtractionError{Source: doc.Filename, Reason: model.ReasonModelUnavailable, Err: err}
	}

	votes, err := ParseVotes(resp.Text, doc.Filename, e.validate)
	if err != nil {
		return nil, &model.ExtractionError{Source: doc.Filename, Reason: model.ReasonMalformedResponse, Err: err}
	}
	spending, err := ParseSpending(resp.Text, doc.Filename, e.validate)
	if err != nil {
		return nil, &model.ExtractionError{Source: doc.Filename, Reason: model.ReasonMalformedResponse, Err: err}
	}

	rec := &model.Extraction{
		Source:           doc.Filename,
		Notes:            resp.Text,
		Votes:            votes,
		Spending:         spending,
		ExtractorVersion: e.version,
		CachedAt:         time.Now().UTC(),
	}

	key := e.Fingerprint(doc)
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, &model.CacheError{Op: "marshal", Key: key, Err: err}
	}
	if err := e.cache.Set(key, data); err != nil {
		return nil, &model.CacheError{Op: "write", Key: key, Err: err}
	}

	e.log.Info("extracted",
		zap.String("source", doc.Filename),
		zap.Int("notes_chars", len(resp.Text)),
		zap.Int("votes", len(votes)),
		zap.Int("spending_items", len(spending)),
		zap.Int("tokens", resp.TokensUsed))

	return rec, nil
}
