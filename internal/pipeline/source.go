package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// Sources holds the discovered input documents for a run, already filtered
// to the lookback window.
type Sources struct {
	Transcripts []model.Document
	Agendas     []model.Document
	Minutes     []model.Document
	Budget      []model.Document
}

// LoadSources discovers input documents under the data directory. Budget
// documents are background material, so the lookback window does not apply
// to them.
func LoadSources(dataDir string, lookbackDays int, now time.Time) (*Sources, error) {
	transcripts, err := LoadDocuments(filepath.Join(dataDir, "transcripts"), lookbackDays, now)
	if err != nil {
		return nil, err
	}
	agendas, err := LoadDocuments(filepath.Join(dataDir, "agendas"), lookbackDays, now)
	if err != nil {
		return nil, err
	}
	minutes, err := LoadDocuments(filepath.Join(dataDir, "minutes"), lookbackDays, now)
	if err != nil {
		return nil, err
	}
	budget, err := LoadDocuments(filepath.Join(dataDir, "budget"), 0, now)
	if err != nil {
		return nil, err
	}

	return &Sources{
		Transcripts: transcripts,
		Agendas:     agendas,
		Minutes:     minutes,
		Budget:      budget,
	}, nil
}

// LoadDocuments reads the .txt files in a directory, sorted by filename. A
// missing directory is not an error; acquisition may simply not have run
// for that source yet. When lookbackDays is positive, files whose
// YYYY-MM-DD prefix falls before the cutoff are skipped; files without a
// parseable prefix are always included.
func LoadDocuments(dir string, lookbackDays int, now time.Time) ([]model.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var cutoff time.Time
	if lookbackDays > 0 {
		cutoff = now.AddDate(0, 0, -lookbackDays)
	}

	var docs []model.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		doc := model.Document{Filename: entry.Name()}
		if !cutoff.IsZero() {
			if date := doc.Date(); !date.IsZero() && date.Before(cutoff) {
				continue
			}
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		doc.Content = string(content)
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

// LoadDocument reads a single file as a document, for single-file runs.
func LoadDocument(path string) (model.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return model.Document{Filename: filepath.Base(path), Content: string(content)}, nil
}

// LoadContext reads the shared project background file. A missing file is
// fine; the prompts just go out without local context.
func LoadContext(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(content)
}

// MatchByDate returns the documents sharing the source filename's
// YYYY-MM-DD prefix. Companion agendas and minutes are paired with a
// transcript this way.
func MatchByDate(sourceFilename string, docs []model.Document) []model.Document {
	if len(sourceFilename) < 10 {
		return nil
	}
	prefix := sourceFilename[:10]

	var matched []model.Document
	for _, d := range docs {
		if strings.HasPrefix(d.Filename, prefix) {
			matched = append(matched, d)
		}
	}
	return matched
}

// Source identifiers the acquisition side prepends to filenames; they name
// where a file came from, not which body met.
var knownSourceTokens = map[string]bool{
	"Municipality":             true,
	"SchoolBoard":              true,
	"SchoolBoardPresentations": true,
	"mtleb":                    true,
	"minutes":                  true,
}

// BodyFromFilename recovers the governing body name from a source filename,
// e.g. "2026-01-28_Municipality_Commission_Meeting_-_01272026.txt" becomes
// "Commission Meeting".
func BodyFromFilename(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if len(name) > 11 {
		name = name[11:] // strip "YYYY-MM-DD_"
	}

	parts := strings.Split(name, "_")
	for len(parts) > 0 && knownSourceTokens[parts[0]] {
		parts = parts[1:]
	}
	for len(parts) > 0 && isDateLike(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	for len(parts) > 0 && parts[len(parts)-1] == "-" {
		parts = parts[:len(parts)-1]
	}

	if len(parts) == 0 {
		return "Unknown Meeting"
	}
	return strings.Join(parts, " ")
}

func isDateLike(s string) bool {
	s = strings.ReplaceAll(s, "-", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MediaURLFromContent finds the recording URL in the header lines the
// acquisition side writes at the top of each transcript.
func MediaURLFromContent(content string) string {
	lines := strings.SplitN(content, "\n", 11)
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "URL:") {
			return strings.TrimSpace(line[4:])
		}
	}
	return ""
}
