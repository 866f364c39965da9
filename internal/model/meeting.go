package model

import "time"

// SourceKind identifies what kind of document a meeting record was built from.
type SourceKind string

const (
	SourceTranscript SourceKind = "transcript"
	SourceMinutes    SourceKind = "minutes"
)

// Meeting is one processed source document. The (Date, Body) pair is the
// natural key: a governing body meets at most once per day.
type Meeting struct {
	ID             string     `json:"id,omitempty"`
	Date           time.Time  `json:"date"`
	Body           string     `json:"body"`
	SourceFilename string     `json:"source_filename"`
	SourceKind     SourceKind `json:"source_kind"`
	MediaURL       string     `json:"media_url,omitempty"`
}

// Official is a named person who casts votes for a governing body.
// (Name, Body) is the natural key; FirstSeen is set on first insert.
type Official struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	Role      string    `json:"role,omitempty"`
	FirstSeen time.Time `json:"first_seen,omitempty"`
}

// Document is a raw input file as handed over by the acquisition side:
// a filename with a YYYY-MM-DD prefix and its extracted text.
type Document struct {
	Filename string
	Content  string
}

// Date parses the document's filename date prefix. The zero time is
// returned for files without a date prefix.
func (d Document) Date() time.Time {
	if len(d.Filename) < 10 {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", d.Filename[:10])
	if err != nil {
		return time.Time{}
	}
	return t
}
