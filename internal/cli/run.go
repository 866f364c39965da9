package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/cache"
	"github.com/connorhurley12/lebo-board-watcher/internal/digest"
	"github.com/connorhurley12/lebo-board-watcher/internal/extract"
	"github.com/connorhurley12/lebo-board-watcher/internal/history"
	"github.com/connorhurley12/lebo-board-watcher/internal/llm"
	"github.com/connorhurley12/lebo-board-watcher/internal/model"
	"github.com/connorhurley12/lebo-board-watcher/internal/pipeline"
	"github.com/connorhurley12/lebo-board-watcher/internal/store"
	"github.com/connorhurley12/lebo-board-watcher/internal/worker"
)

var (
	runProvider     string
	runModel        string
	runFile         string
	runRetryFailed  bool
	runDigestOnly   bool
	runLookbackDays int
	runClearCache   bool
	runFailFast     bool
	runDataDir      string
	runDBPath       string
	runDeadline     time.Duration
	runNoStore      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze this week's meetings and generate the newsletter",
	Long: `Run executes the full two-phase pipeline:

Phase 1 extracts votes, spending items, and research notes from each
transcript (or standalone minutes file) within the lookback window.
Successful extractions are cached and persisted.

Phase 2 combines all extracts with budget context and historical
spending/voting patterns into one consolidated weekly newsletter, saved
as a draft under the data directory.

Example:
  boardwatch run
  boardwatch run --provider openai --lookback-days 7
  boardwatch run --digest-only
  boardwatch run --file data/transcripts/2026-08-24_Municipality_Commission_Meeting.txt`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runProvider, "provider", "anthropic", "LLM provider (openai, anthropic, ollama)")
	runCmd.Flags().StringVar(&runModel, "model", "", "override the default model for the chosen provider")
	runCmd.Flags().StringVar(&runFile, "file", "", "analyze a specific transcript file instead of all")
	runCmd.Flags().BoolVar(&runRetryFailed, "retry-failed", false, "only process documents without a cached extraction (default behavior; kept for compatibility)")
	runCmd.Flags().BoolVar(&runDigestOnly, "digest-only", false, "skip extraction entirely and regenerate the newsletter from cache")
	runCmd.Flags().IntVar(&runLookbackDays, "lookback-days", 14, "only process transcripts/minutes from the last N days")
	runCmd.Flags().BoolVar(&runClearCache, "clear-cache", false, "clear the extraction cache before running")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "abort on the first extraction failure")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "data", "input/output data directory")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "SQLite database path (default: <data-dir>/boardwatch.db)")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "disable persistence, run file-only")
	runCmd.Flags().DurationVar(&runDeadline, "deadline", 2*time.Hour, "overall run deadline")
}

func runRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), runDeadline)
	defer cancel()

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = runProvider
	cfg.Data.Dir = runDataDir
	cfg.Cache.Dir = filepath.Join(runDataDir, "extracts")

	modelName := runModel
	if modelName == "" {
		modelName = model.DefaultModelFor(runProvider)
	}

	provider, err := buildProvider(cfg, modelName)
	if err != nil {
		return err
	}

	// One governor serializes every model call in the run. Consolidation
	// takes an additional delay on top so the provider's token bucket can
	// refill after the extraction burst.
	governor := worker.NewGovernor(cfg.Rate.ExtractIntervalFor(runProvider))
	consolidateDelay := cfg.Rate.ConsolidateIntervalFor(runProvider)
	log.Info("model call pacing",
		zap.String("provider", runProvider),
		zap.Duration("min_interval", governor.Interval()),
		zap.Duration("consolidate_delay", consolidateDelay))

	extractCache := cache.NewLayeredCache(cfg.Cache.Dir)
	projectContext := pipeline.LoadContext(cfg.Data.ContextFile)
	if projectContext == "" {
		log.Warn("project context file not found, proceeding without it",
			zap.String("path", cfg.Data.ContextFile))
	}

	extractor := extract.New(provider, extractCache, governor, log, extract.Options{
		Context: projectContext,
		Model:   modelName,
	})
	consolidator := digest.New(provider, governor, log, digest.Options{
		Context: projectContext,
		Model:   modelName,
		Delay:   consolidateDelay,
	})

	var st store.Store
	var summarizer pipeline.Summarizer
	if !runNoStore {
		dbPath := runDBPath
		if dbPath == "" {
			dbPath = filepath.Join(runDataDir, "boardwatch.db")
		}
		sqlStore, err := store.Open(dbPath)
		if err != nil {
			log.Warn("opening store failed, continuing file-only", zap.Error(err))
		} else {
			defer func() { _ = sqlStore.Close() }()
			st = sqlStore
			summarizer = history.New(sqlStore, log)
		}
	}

	sources, err := loadRunSources(cfg.Data.Dir)
	if err != nil {
		return err
	}

	driver := pipeline.NewDriver(extractor, consolidator, extractCache, log, pipeline.DriverOptions{
		History:           summarizer,
		Store:             st,
		DraftsDir:         filepath.Join(cfg.Data.Dir, "drafts"),
		VotesDir:          filepath.Join(cfg.Data.Dir, "votes"),
		HistoryWindowDays: 365,
	})

	res, err := driver.Run(ctx, sources, pipeline.Options{
		DigestOnly:  runDigestOnly,
		RetryFailed: runRetryFailed,
		FailFast:    runFailFast,
		ClearCache:  runClearCache,
	})
	if err != nil {
		reportFailures(res)
		return fmt.Errorf("run failed: %w", err)
	}

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("  Lebo Board Watch — Weekly Digest")
	fmt.Println("================================================================================")
	fmt.Println(res.Newsletter.Markdown)
	fmt.Printf("\nDraft saved to: %s\n", res.DraftPath)

	reportFailures(res)
	return nil
}

func loadRunSources(dataDir string) (*pipeline.Sources, error) {
	sources, err := pipeline.LoadSources(dataDir, runLookbackDays, time.Now())
	if err != nil {
		return nil, err
	}

	if runFile != "" {
		doc, err := pipeline.LoadDocument(runFile)
		if err != nil {
			return nil, err
		}
		sources.Transcripts = []model.Document{doc}
		sources.Minutes = nil
	}

	if len(sources.Transcripts) == 0 && len(sources.Minutes) == 0 {
		return nil, fmt.Errorf("no transcripts or minutes found under %s, run ingest first", dataDir)
	}
	return sources, nil
}

func buildProvider(cfg *model.Config, modelName string) (llm.Provider, error) {
	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = cfg.LLM.Provider
	llmCfg.Model = modelName
	if cfg.LLM.Timeout > 0 {
		llmCfg.Timeout = cfg.LLM.Timeout
	}
	if cfg.LLM.MaxTokens > 0 {
		llmCfg.MaxTokens = cfg.LLM.MaxTokens
	}

	switch cfg.LLM.Provider {
	case "openai":
		llmCfg.APIKey = os.Getenv("OPENAI_API_KEY")
		if llmCfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		llmCfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if llmCfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			llmCfg.BaseURL = baseURL
		}
	}

	return llm.NewProvider(llmCfg)
}

func reportFailures(res *pipeline.Result) {
	if res == nil || len(res.Failures) == 0 {
		return
	}

	fmt.Fprintf(os.Stderr, "\n%d document(s) failed extraction:\n", len(res.Failures))
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "  - %s: %s\n", f.Source, f.Reason)
	}
	fmt.Fprintln(os.Stderr, "Re-run with --retry-failed to process only the failed documents.")
}
