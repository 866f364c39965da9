package extract

import (
	"strings"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

// promptVersion is bumped whenever ExtractPrompt or the parser changes
// shape. It feeds the extractor version string, which invalidates every
// cached entry produced by the old prompt.
const promptVersion = "v2"

// Per-section truncation limits keep a single extraction call inside the
// model's context window.
const (
	companionTruncateLimit  = 15_000
	transcriptTruncateLimit = 50_000
)

// ExtractPrompt is the fixed Phase 1 instruction set. It lives in the
// system prompt so the per-document user message carries only the documents
// themselves.
const ExtractPrompt = `You are a researcher preparing notes for a newsletter about Mt. Lebanon, PA local government.

Extract ALL noteworthy items from this meeting transcript. For each item, include:
- The meeting name/body (e.g., "Commission Meeting," "School Board Meeting")
- The topic and what happened (decisions, debates, votes, dollar amounts)
- Exact vote tallies if any (e.g., "5-0" or "4-1, Smith opposed")
- Any dollar amounts mentioned (from consent agenda, bill list, contracts)
- Any mentions of sports/parks facilities (turf, fields, ice rink, pool, coaching appointments)
- Any notable quotes (include speaker name and role)
- Any upcoming dates mentioned (hearings, deadlines, events)
- Any signs of controversy (split votes, defensive responses, heated public comment)
- **Citizen Comment Tally:** For each topic raised during public/citizen comment, count how many speakers spoke FOR vs. AGAINST. Note the topic and the sentiment breakdown (e.g., "Leaf blowers: 8 against the ban, 1 for the ban").

Use the term "Commissioners" for the Muni meeting and "Directors" for the School Board.

Be thorough and factual. Do not editorialize. Output as a structured list.

## Vote Log

After your structured list, output a VOTE LOG section. For EVERY formal vote taken during the meeting (motions, ordinances, resolutions, appointments, consent agendas), output one JSON object per line inside a fenced code block tagged ` + "`vote-log`" + `. Include unanimous and split votes alike.

Format:
` + "```vote-log" + `
{"meeting": "Commission Meeting", "motion": "Approve minutes of Jan 13 meeting", "result": "Passed 5-0", "unanimous": true, "yes": [], "no": [], "abstain": [], "context": ""}
{"meeting": "Commission Meeting", "motion": "Ordinance 715 - Leaf blower restrictions", "result": "Passed 4-1", "unanimous": false, "yes": ["Jones", "Lee", "Garcia", "Patel"], "no": ["Smith"], "abstain": [], "context": "Smith cited enforcement cost concerns"}
` + "```" + `

Rules for the vote log:
- For unanimous votes, leave "yes"/"no"/"abstain" as empty lists (individual names are not needed).
- For split votes, you MUST list every name in the correct column.
- For abstentions or recusals, put the name in "abstain" and note the reason in "context".
- "context" should be a brief explanation only for split votes or abstentions (empty string otherwise).
- If no formal votes occurred, output an empty code block tagged vote-log.

## Spending Log

After your vote log, output a SPENDING LOG section. For EVERY appropriation, contract award, purchase, change order, bill list approval, or significant expenditure mentioned in the meeting, output one JSON object per line inside a fenced code block tagged ` + "`spending-log`" + `.

Format:
` + "```spending-log" + `
{"vendor": "Insight Pipe Contracting LLC", "amount": 1124196.00, "description": "2026 sanitary and storm sewer lining project", "category": "contract", "project": "2026 Sewer Lining", "budget_line": "Sanitary and Storm Sewer Funds", "contract_term": "base_year"}
{"vendor": "N/A", "amount": 7160832.12, "description": "November expenditure list approval", "category": "routine", "project": null, "budget_line": null, "contract_term": null}
` + "```" + `

Rules for the spending log:
- "amount" must be a number (no dollar signs, no commas). Use 0.00 if amount is unclear.
- "category" must be one of: "contract", "change_order", "consultant", "capital", "routine".
  - "contract" = new contract award or contract renewal.
  - "change_order" = modification to an existing contract increasing scope or cost.
  - "consultant" = payment to a consulting, design, or strategy firm for a study/report.
  - "capital" = equipment purchase, vehicle purchase, or infrastructure investment.
  - "routine" = expenditure list approval, bill list, or recurring operational payment.
- "project" = the named project if one exists. Use null if no project name.
- "budget_line" = the fund or budget line mentioned. Use null if not stated.
- "contract_term" = "base_year", "renewal_1", "renewal_2", "renewal_3" if this is a multi-year contract. Use null otherwise.
- If no spending items are mentioned, output an empty code block tagged spending-log.
`

// BuildPrompt assembles the per-document user prompt: companion agendas and
// minutes from the same date first, then the primary document. Sections are
// truncated independently so one oversized agenda cannot crowd out the
// transcript.
func BuildPrompt(doc model.Document, agendas, minutes []model.Document) string {
	var b strings.Builder

	if len(agendas) > 0 {
		b.WriteString("## Relevant Agendas\n")
		for _, a := range agendas {
			b.WriteString("### " + a.Filename + "\n")
			b.WriteString(truncate(a.Content, companionTruncateLimit, "[Agenda truncated]"))
			b.WriteString("\n\n")
		}
	}

	if len(minutes) > 0 {
		b.WriteString("## Relevant Minutes\n")
		for _, m := range minutes {
			b.WriteString("### " + m.Filename + "\n")
			b.WriteString(truncate(m.Content, companionTruncateLimit, "[Minutes truncated]"))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Meeting Transcript\n")
	b.WriteString("### " + doc.Filename + "\n")
	b.WriteString(truncate(doc.Content, transcriptTruncateLimit, "[Transcript truncated for length]"))
	b.WriteString("\n\n")

	return b.String()
}

func truncate(s string, limit int, marker string) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n\n" + marker
}
