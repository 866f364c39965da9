package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/llm"
	"github.com/connorhurley12/lebo-board-watcher/internal/model"
	"github.com/connorhurley12/lebo-board-watcher/internal/worker"
)

// Consolidator is the Phase 2 stage: all of the week's extraction records
// in, exactly one newsletter out, via a single model call.
type Consolidator struct {
	provider llm.Provider
	governor *worker.Governor
	log      *zap.Logger

	system    string
	model     string
	delay     time.Duration
	maxTokens int
}

// The consolidation prompt pulls together a full week of meetings, so the
// response gets twice the extraction budget to keep an eventful week's
// newsletter from being cut off mid-section.
const consolidateMaxTokens = 8000

// Options configures a Consolidator.
type Options struct {
	// Context is the shared project background prepended to the phase
	// instructions.
	Context string

	// Model overrides the provider's default model.
	Model string

	// Delay is an extra pause taken after acquiring the rate token,
	// letting the provider's token bucket recover from the extraction
	// burst before the oversized consolidation prompt goes out.
	Delay time.Duration

	// MaxTokens caps the response length. Zero means consolidateMaxTokens.
	MaxTokens int
}

// Input is everything consolidation sees: the surviving extraction records,
// any budget documents for financial background, and the historical
// summary (possibly empty when aggregation degraded).
type Input struct {
	WeekOf      string
	Extractions []*model.Extraction
	BudgetDocs  []model.Document
	History     *model.HistoricalSummary
}

// New creates a Consolidator.
func New(provider llm.Provider, governor *worker.Governor, log *zap.Logger, opts Options) *Consolidator {
	system := NewsletterPrompt
	if opts.Context != "" {
		system = opts.Context + "\n\n" + NewsletterPrompt
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = consolidateMaxTokens
	}

	return &Consolidator{
		provider:  provider,
		governor:  governor,
		log:       log,
		system:    system,
		model:     opts.Model,
		delay:     opts.Delay,
		maxTokens: maxTokens,
	}
}

// Consolidate makes the week's single newsletter call. Any failure here is
// fatal to the run; there is no partial newsletter.
func (c *Consolidator) Consolidate(ctx context.Context, in Input) (*model.Newsletter, error) {
	extracts := withNotes(in.Extractions)
	if len(extracts) == 0 {
		return nil, &model.ConsolidationError{Reason: model.ReasonEmptyInput}
	}

	// Source filenames carry a YYYY-MM-DD prefix, so lexicographic order
	// is chronological order.
	sort.Slice(extracts, func(i, j int) bool {
		return extracts[i].Source < extracts[j].Source
	})

	var votes []model.Vote
	var spending []model.SpendingItem
	for _, ex := range extracts {
		votes = append(votes, ex.Votes...)
		spending = append(spending, ex.Spending...)
	}

	prompt := c.buildPrompt(extracts, in.BudgetDocs, votes, spending, in.History)

	if err := c.governor.AcquireWithDelay(ctx, c.delay); err != nil {
		return nil, &model.ConsolidationError{Reason: model.ReasonModelUnavailable, Err: err}
	}

	c.log.Info("consolidating",
		zap.String("week_of", in.WeekOf),
		zap.Int("meetings", len(extracts)),
		zap.Int("votes", len(votes)),
		zap.Int("spending_items", len(spending)),
		zap.Bool("history", !in.History.Empty()))

	resp, err := c.provider.Generate(ctx, llm.GenerateRequest{
		System:    c.system,
		Prompt:    prompt,
		Model:     c.model,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, &model.ConsolidationError{Reason: model.ReasonModelUnavailable, Err: err}
	}

	if err := checkStructure(resp.Text); err != nil {
		return nil, &model.ConsolidationError{Reason: model.ReasonMalformedResponse, Err: err}
	}

	return &model.Newsletter{
		WeekOf:      in.WeekOf,
		Title:       newsletterTitle(in.WeekOf),
		Markdown:    resp.Text,
		MeetingIDs:  nil, // filled in once meetings are persisted
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (c *Consolidator) buildPrompt(
	extracts []*model.Extraction,
	budgetDocs []model.Document,
	votes []model.Vote,
	spending []model.SpendingItem,
	history *model.HistoricalSummary,
) string {
	var b strings.Builder

	if len(budgetDocs) > 0 {
		b.WriteString("## Municipal Budget Context\n")
		b.WriteString("(Use this as background when discussing spending, contracts, or financial items.)\n\n")
		for _, doc := range budgetDocs {
			fmt.Fprintf(&b, "### %s\n", doc.Filename)
			content := doc.Content
			if len(content) > budgetTruncateLimit {
				content = content[:budgetTruncateLimit] + "\n\n[Budget document truncated]"
			}
			b.WriteString(content)
			b.WriteString("\n\n")
		}
		b.WriteString("---\n\n")
	}

	if section := formatHistory(history); section != "" {
		b.WriteString(section)
		b.WriteString("\n---\n\n")
	}

	if section := formatVotes(votes); section != "" {
		b.WriteString(section)
		b.WriteString("\n---\n\n")
	}

	if section := formatSpending(spending); section != "" {
		b.WriteString(section)
		b.WriteString("\n---\n\n")
	}

	b.WriteString("## This Week's Meeting Notes\n\n")
	for _, ex := range extracts {
		fmt.Fprintf(&b, "### %s\n", ex.Source)
		b.WriteString(ex.Notes)
		b.WriteString("\n\n---\n\n")
	}

	b.WriteString("Generate the newsletter now based on the meeting notes above.")
	return b.String()
}

// checkStructure verifies the response carries the two mandatory sections.
// A response missing either is discarded; nothing is published from it.
func checkStructure(markdown string) error {
	for _, marker := range []string{headlinesMarker, deepDiveMarker} {
		if !strings.Contains(markdown, marker) {
			return fmt.Errorf("response missing required section %q", marker)
		}
	}
	return nil
}

func newsletterTitle(weekOf string) string {
	if t, err := time.Parse("2006-01-02", weekOf); err == nil {
		return "Lebo Board Watch — Week of " + t.Format("January 2, 2006")
	}
	return "Lebo Board Watch — Week of " + weekOf
}

func withNotes(extracts []*model.Extraction) []*model.Extraction {
	var out []*model.Extraction
	for _, ex := range extracts {
		if ex != nil && strings.TrimSpace(ex.Notes) != "" {
			out = append(out, ex)
		}
	}
	return out
}
