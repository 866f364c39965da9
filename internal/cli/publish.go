package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
	"github.com/connorhurley12/lebo-board-watcher/internal/publish"
	"github.com/connorhurley12/lebo-board-watcher/internal/store"
)

// Appended after the rendered newsletter on Ghost.
const monetizationFooter = `<hr><p>Keep Lebo Watch running: ` +
	`<a href="https://buymeacoffee.com/lebowatch">Buy Me a Coffee</a>.</p>`

var (
	publishFile     string
	publishDataDir  string
	publishDBPath   string
	publishWeekOf   string
	publishNoFooter bool
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload a newsletter draft to Ghost for review",
	Long: `Publish creates a *draft* post on the configured Ghost site so the
newsletter can be reviewed before going live.

Requires GHOST_API_URL and GHOST_ADMIN_KEY environment variables (or the
corresponding entries in the config file).

Example:
  boardwatch publish
  boardwatch publish --file data/drafts/analysis_2026-08-31_090000_weekly_digest.md`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishFile, "file", "", "markdown draft to publish (default: most recent in <data-dir>/drafts)")
	publishCmd.Flags().StringVar(&publishDataDir, "data-dir", "data", "data directory")
	publishCmd.Flags().StringVar(&publishDBPath, "db", "", "SQLite database path for recording the post id (default: <data-dir>/boardwatch.db)")
	publishCmd.Flags().StringVar(&publishWeekOf, "week", "", "week the draft covers, YYYY-MM-DD Monday (default: current week)")
	publishCmd.Flags().BoolVar(&publishNoFooter, "no-footer", false, "omit the support footer")
}

func runPublish(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ghostURL := os.Getenv("GHOST_API_URL")
	adminKey := os.Getenv("GHOST_ADMIN_KEY")
	if ghostURL == "" || adminKey == "" {
		return fmt.Errorf("set GHOST_API_URL and GHOST_ADMIN_KEY environment variables")
	}

	draftPath := publishFile
	if draftPath == "" {
		draftPath, err = latestDraft(filepath.Join(publishDataDir, "drafts"))
		if err != nil {
			return err
		}
	}
	content, err := os.ReadFile(draftPath)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}
	log.Info("publishing draft", zap.String("file", filepath.Base(draftPath)))

	weekOf := publishWeekOf
	if weekOf == "" {
		weekOf = model.WeekOf(time.Now())
	}

	footer := monetizationFooter
	if publishNoFooter {
		footer = ""
	}

	publisher, err := publish.New(publish.Config{
		APIURL:   ghostURL,
		AdminKey: adminKey,
		Footer:   footer,
	}, log)
	if err != nil {
		return err
	}

	nl := &model.Newsletter{
		WeekOf:   weekOf,
		Title:    "Lebo Board Watch — Week of " + time.Now().Format("January 2, 2006"),
		Markdown: stripDraftHeader(string(content)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	post, err := publisher.CreateDraft(ctx, nl)
	if err != nil {
		return err
	}

	recordPublish(ctx, log, weekOf, post)

	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("Draft created successfully!")
	fmt.Printf("  Title:   %s\n", post.Title)
	fmt.Printf("  Status:  %s\n", post.Status)
	fmt.Printf("  URL:     %s\n", post.URL)
	fmt.Printf("  Preview: %s\n", post.PreviewURL)
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Open the preview link above to review before publishing.")
	return nil
}

// recordPublish stores the Ghost identifiers against the week's newsletter
// row, when a store is available and the row exists.
func recordPublish(ctx context.Context, log *zap.Logger, weekOf string, post *publish.Post) {
	dbPath := publishDBPath
	if dbPath == "" {
		dbPath = filepath.Join(publishDataDir, "boardwatch.db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return
	}

	st, err := store.Open(dbPath)
	if err != nil {
		log.Warn("opening store failed, post id not recorded", zap.Error(err))
		return
	}
	defer func() { _ = st.Close() }()

	nl, err := st.GetNewsletter(ctx, weekOf)
	if err != nil || nl == nil {
		log.Warn("no newsletter row for week, post id not recorded",
			zap.String("week_of", weekOf), zap.Error(err))
		return
	}
	if err := st.SetNewsletterPublish(ctx, weekOf, post.ID, post.URL); err != nil {
		log.Warn("recording post id failed", zap.Error(err))
	}
}

// latestDraft returns the most recently modified .md file in the drafts
// directory.
func latestDraft(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("no drafts found, run 'boardwatch run' first: %w", err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var drafts []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		drafts = append(drafts, candidate{filepath.Join(dir, entry.Name()), info.ModTime()})
	}
	if len(drafts) == 0 {
		return "", fmt.Errorf("no drafts found in %s, run 'boardwatch run' first", dir)
	}

	sort.Slice(drafts, func(i, j int) bool { return drafts[i].modTime.After(drafts[j].modTime) })
	return drafts[0].path, nil
}

// stripDraftHeader drops the generation comment the driver writes at the
// top of each draft file.
func stripDraftHeader(content string) string {
	if strings.HasPrefix(content, "<!--") {
		if i := strings.Index(content, "-->"); i >= 0 {
			return strings.TrimLeft(content[i+3:], "\n")
		}
	}
	return content
}
