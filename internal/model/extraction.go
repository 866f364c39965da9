package model

import "time"

// Vote is one formal vote taken during a meeting, as reported by the
// extraction model in the vote-log block.
type Vote struct {
	Motion    string   `json:"motion" validate:"required"`
	Result    string   `json:"result" validate:"required"`
	Unanimous bool     `json:"unanimous"`
	Yes       []string `json:"yes"`
	No        []string `json:"no"`
	Abstain   []string `json:"abstain"`
	Context   string   `json:"context"`

	// Meeting is the body name the model attributed the vote to
	// (e.g. "Commission Meeting"), not a foreign key.
	Meeting    string `json:"meeting"`
	SourceFile string `json:"source_file,omitempty"`
}

// Noteworthy reports whether the vote deserves individual attention in the
// consolidated digest: any split vote or one with abstentions.
func (v Vote) Noteworthy() bool {
	return !v.Unanimous
}

// SpendingItem is one appropriation, contract award, or expenditure from the
// spending-log block. Amount is dollars with two-decimal precision and must
// never be negative.
type SpendingItem struct {
	Vendor       string  `json:"vendor"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	Description  string  `json:"description" validate:"required"`
	Category     string  `json:"category" validate:"omitempty,oneof=contract change_order consultant capital routine"`
	Project      string  `json:"project,omitempty"`
	BudgetLine   string  `json:"budget_line,omitempty"`
	FiscalYear   int     `json:"fiscal_year,omitempty"`
	ContractTerm string  `json:"contract_term,omitempty"`
	SourceFile   string  `json:"source_file,omitempty"`
}

// Extraction is the cached Phase 1 output for one meeting document: the
// model's free-form research notes plus the structured vote and spending
// records parsed out of them. ExtractorVersion records which prompt/parser
// produced the entry so stale cache slots can be detected.
type Extraction struct {
	Source           string         `json:"source"`
	Notes            string         `json:"notes"`
	Votes            []Vote         `json:"votes"`
	Spending         []SpendingItem `json:"spending"`
	ExtractorVersion string         `json:"extractor_version"`
	CachedAt         time.Time      `json:"cached_at"`
}
