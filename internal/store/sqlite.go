package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// SQLiteStore persists meetings, votes, spending, officials, and
// newsletters in a single SQLite file.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at dbPath and migrates its schema.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// UpsertMeeting inserts or updates a meeting keyed by (date, body).
// Identity fields are set once; only enrichment fields are refreshed on
// conflict.
func (s *SQLiteStore) UpsertMeeting(ctx context.Context, m *model.Meeting, extractText string) (string, error) {
	id := uuid.NewString()
	date := m.Date.Format("2006-01-02")

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO meetings (id, meeting_date, body, source_filename, source_type, media_url, extract_text)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		ON CONFLICT(meeting_date, body) DO UPDATE SET
			source_filename = excluded.source_filename,
			media_url = COALESCE(excluded.media_url, meetings.media_url),
			extract_text = COALESCE(excluded.extract_text, meetings.extract_text)`,
		id, date, m.Body, m.SourceFilename, string(m.SourceKind), m.MediaURL, extractText,
	)
	if err != nil {
		return "", fmt.Errorf("upsert meeting %s/%s: %w", date, m.Body, err)
	}

	row := s.conn.QueryRowContext(ctx,
		"SELECT id FROM meetings WHERE meeting_date = ? AND body = ?", date, m.Body)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("read meeting id %s/%s: %w", date, m.Body, err)
	}
	return id, nil
}

// ReplaceVotes replaces all votes for a meeting.
func (s *SQLiteStore) ReplaceVotes(ctx context.Context, meetingID string, votes []model.Vote) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM votes WHERE meeting_id = ?", meetingID); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}

	for _, v := range votes {
		yes, no, abstain := marshalNames(v.Yes), marshalNames(v.No), marshalNames(v.Abstain)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO votes (meeting_id, motion, result, unanimous, yes_names, no_names, abstain_names, context)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			meetingID, v.Motion, v.Result, boolToInt(v.Unanimous), yes, no, abstain, v.Context,
		); err != nil {
			return fmt.Errorf("insert vote %q: %w", v.Motion, err)
		}
	}

	return tx.Commit()
}

// ReplaceSpending replaces all spending items for a meeting.
func (s *SQLiteStore) ReplaceSpending(ctx context.Context, meetingID string, items []model.SpendingItem, fiscalYear int) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM spending_items WHERE meeting_id = ?", meetingID); err != nil {
		return fmt.Errorf("clear spending: %w", err)
	}

	for _, item := range items {
		vendor := item.Vendor
		if vendor == "" {
			vendor = "Unknown"
		}
		fy := item.FiscalYear
		if fy == 0 {
			fy = fiscalYear
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO spending_items (meeting_id, vendor, amount, description, category, project, budget_line, fiscal_year, contract_term)
			VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, NULLIF(?, ''))`,
			meetingID, vendor, item.Amount, item.Description, item.Category,
			item.Project, item.BudgetLine, fy, item.ContractTerm,
		); err != nil {
			return fmt.Errorf("insert spending %q: %w", item.Description, err)
		}
	}

	return tx.Commit()
}

// SyncOfficials ensures every name cast in the votes exists for the body
// and returns the body's roster, first_seen included.
func (s *SQLiteStore) SyncOfficials(ctx context.Context, body string, votes []model.Vote) ([]model.Official, error) {
	names := make(map[string]struct{})
	for _, v := range votes {
		for _, list := range [][]string{v.Yes, v.No, v.Abstain} {
			for _, name := range list {
				name = strings.TrimSpace(name)
				if name != "" {
					names[name] = struct{}{}
				}
			}
		}
	}

	for name := range names {
		if _, err := s.conn.ExecContext(ctx, `
			INSERT INTO officials (id, name, body) VALUES (?, ?, ?)
			ON CONFLICT(name, body) DO NOTHING`,
			uuid.NewString(), name, body,
		); err != nil {
			return nil, fmt.Errorf("upsert official %s/%s: %w", name, body, err)
		}
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, body, COALESCE(role, ''), first_seen
		FROM officials WHERE body = ? ORDER BY name`, body)
	if err != nil {
		return nil, fmt.Errorf("list officials for %s: %w", body, err)
	}
	defer rows.Close()

	var roster []model.Official
	for rows.Next() {
		var o model.Official
		var firstSeen string
		if err := rows.Scan(&o.ID, &o.Name, &o.Body, &o.Role, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan official: %w", err)
		}
		o.FirstSeen, _ = time.Parse("2006-01-02 15:04:05", firstSeen)
		roster = append(roster, o)
	}
	return roster, rows.Err()
}

// SaveNewsletter inserts or replaces the newsletter for its week. Publish
// identifiers from a prior run are dropped: regenerated content needs a
// fresh draft.
func (s *SQLiteStore) SaveNewsletter(ctx context.Context, n *model.Newsletter) (string, error) {
	id := uuid.NewString()
	meetingIDs, err := json.Marshal(n.MeetingIDs)
	if err != nil {
		return "", fmt.Errorf("marshal meeting ids: %w", err)
	}

	if _, err := s.conn.ExecContext(ctx, `
		INSERT INTO newsletters (id, week_of, title, markdown_content, meeting_ids)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(week_of) DO UPDATE SET
			title = excluded.title,
			markdown_content = excluded.markdown_content,
			meeting_ids = excluded.meeting_ids,
			ghost_post_id = NULL,
			ghost_post_url = NULL,
			generated_at = datetime('now')`,
		id, n.WeekOf, n.Title, n.Markdown, string(meetingIDs),
	); err != nil {
		return "", fmt.Errorf("upsert newsletter %s: %w", n.WeekOf, err)
	}

	row := s.conn.QueryRowContext(ctx, "SELECT id FROM newsletters WHERE week_of = ?", n.WeekOf)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("read newsletter id %s: %w", n.WeekOf, err)
	}
	return id, nil
}

// SetNewsletterPublish records the Ghost post id and url for a week.
func (s *SQLiteStore) SetNewsletterPublish(ctx context.Context, weekOf, postID, postURL string) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE newsletters SET ghost_post_id = ?, ghost_post_url = ? WHERE week_of = ?",
		postID, postURL, weekOf)
	if err != nil {
		return fmt.Errorf("set publish ids for %s: %w", weekOf, err)
	}
	return nil
}

// GetNewsletter returns the newsletter for a week, or nil if none exists.
func (s *SQLiteStore) GetNewsletter(ctx context.Context, weekOf string) (*model.Newsletter, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, week_of, title, markdown_content, meeting_ids,
			COALESCE(ghost_post_id, ''), COALESCE(ghost_post_url, ''), generated_at
		FROM newsletters WHERE week_of = ?`, weekOf)

	var n model.Newsletter
	var meetingIDs, generatedAt string
	if err := row.Scan(&n.ID, &n.WeekOf, &n.Title, &n.Markdown, &meetingIDs,
		&n.GhostPostID, &n.GhostURL, &generatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read newsletter %s: %w", weekOf, err)
	}
	if err := json.Unmarshal([]byte(meetingIDs), &n.MeetingIDs); err != nil {
		return nil, fmt.Errorf("decode meeting ids for %s: %w", weekOf, err)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", generatedAt); err == nil {
		n.GeneratedAt = t
	}
	return &n, nil
}

// RecentSpending returns spending items from meetings on or after since.
func (s *SQLiteStore) RecentSpending(ctx context.Context, since time.Time) ([]model.SpendingItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT si.vendor, si.amount, si.description, si.category,
			COALESCE(si.project, ''), COALESCE(si.budget_line, ''),
			COALESCE(si.fiscal_year, 0), COALESCE(si.contract_term, ''),
			m.source_filename
		FROM spending_items si
		JOIN meetings m ON m.id = si.meeting_id
		WHERE m.meeting_date >= ?
		ORDER BY si.amount DESC`,
		since.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query recent spending: %w", err)
	}
	defer rows.Close()

	var items []model.SpendingItem
	for rows.Next() {
		var item model.SpendingItem
		if err := rows.Scan(&item.Vendor, &item.Amount, &item.Description, &item.Category,
			&item.Project, &item.BudgetLine, &item.FiscalYear, &item.ContractTerm,
			&item.SourceFile); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DissentVotes returns stored non-unanimous votes from meetings on or
// after since, most recent first.
func (s *SQLiteStore) DissentVotes(ctx context.Context, since time.Time) ([]model.Vote, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT v.motion, v.result, v.unanimous, v.yes_names, v.no_names, v.abstain_names,
			v.context, m.body, m.source_filename
		FROM votes v
		JOIN meetings m ON m.id = v.meeting_id
		WHERE v.unanimous = 0 AND m.meeting_date >= ?
		ORDER BY m.meeting_date DESC
		LIMIT 100`,
		since.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query dissent votes: %w", err)
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var v model.Vote
		var unanimous int
		var yes, no, abstain string
		if err := rows.Scan(&v.Motion, &v.Result, &unanimous, &yes, &no, &abstain,
			&v.Context, &v.Meeting, &v.SourceFile); err != nil {
			return nil, err
		}
		v.Unanimous = unanimous != 0
		v.Yes = unmarshalNames(yes)
		v.No = unmarshalNames(no)
		v.Abstain = unmarshalNames(abstain)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func marshalNames(names []string) string {
	if names == nil {
		names = []string{}
	}
	data, _ := json.Marshal(names)
	return string(data)
}

func unmarshalNames(data string) []string {
	var names []string
	_ = json.Unmarshal([]byte(data), &names)
	return names
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
