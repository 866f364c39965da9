package store

import (
	"context"
	"time"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// HistoryView is the read-only slice of the store the historical context
// aggregator depends on.
type HistoryView interface {
	// RecentSpending returns spending items from meetings on or after since.
	RecentSpending(ctx context.Context, since time.Time) ([]model.SpendingItem, error)

	// DissentVotes returns votes stored as non-unanimous from meetings on
	// or after since. The stored unanimity flag is authoritative; callers
	// must not re-derive it from the name lists.
	DissentVotes(ctx context.Context, since time.Time) ([]model.Vote, error)
}

// Store is the persistence collaborator. The pipeline writes through it and
// never mutates persisted rows directly. A nil Store selects file-only
// mode, which is fully supported.
type Store interface {
	HistoryView

	// UpsertMeeting inserts or updates a meeting keyed by (date, body) and
	// returns its id.
	UpsertMeeting(ctx context.Context, m *model.Meeting, extractText string) (string, error)

	// ReplaceVotes replaces all votes for a meeting. Delete-then-insert
	// keeps re-extraction idempotent.
	ReplaceVotes(ctx context.Context, meetingID string, votes []model.Vote) error

	// ReplaceSpending replaces all spending items for a meeting.
	ReplaceSpending(ctx context.Context, meetingID string, items []model.SpendingItem, fiscalYear int) error

	// SyncOfficials ensures every name appearing in the votes exists in the
	// officials table for the body, stamping first_seen on first insert, and
	// returns the body's full roster.
	SyncOfficials(ctx context.Context, body string, votes []model.Vote) ([]model.Official, error)

	// SaveNewsletter inserts or replaces the newsletter for its week and
	// returns its id. Re-saving a week clears any prior publish identifiers.
	SaveNewsletter(ctx context.Context, n *model.Newsletter) (string, error)

	// SetNewsletterPublish records the external publish identifiers after a
	// successful draft upload.
	SetNewsletterPublish(ctx context.Context, weekOf, postID, postURL string) error

	// GetNewsletter returns the newsletter for a week, or nil if none.
	GetNewsletter(ctx context.Context, weekOf string) (*model.Newsletter, error)

	Close() error
}
