package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/connorhurley12/lebo-board-watcher/internal/model"
)

var (
	voteLogRe     = regexp.MustCompile("(?s)```vote-log\\s*\\n(.*?)```")
	spendingLogRe = regexp.MustCompile("(?s)```spending-log\\s*\\n(.*?)```")
)

// ParseVotes extracts structured vote records from the vote-log fenced
// block. The block must be present (empty is fine); a missing block or a
// record failing validation means the model ignored the output contract.
func ParseVotes(output, source string, validate *validator.Validate) ([]model.Vote, error) {
	block, err := fencedBlock(voteLogRe, output, "vote-log")
	if err != nil {
		return nil, err
	}

	var votes []model.Vote
	for _, line := range nonEmptyLines(block) {
		var v model.Vote
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			return nil, fmt.Errorf("vote-log line %q: %w", clip(line), err)
		}
		if err := validate.Struct(v); err != nil {
			return nil, fmt.Errorf("vote-log line %q: %w", clip(line), err)
		}
		v.SourceFile = source
		votes = append(votes, v)
	}
	return votes, nil
}

// ParseSpending extracts structured spending records from the spending-log
// fenced block. Negative or non-numeric amounts fail the whole document.
func ParseSpending(output, source string, validate *validator.Validate) ([]model.SpendingItem, error) {
	block, err := fencedBlock(spendingLogRe, output, "spending-log")
	if err != nil {
		return nil, err
	}

	var items []model.SpendingItem
	for _, line := range nonEmptyLines(block) {
		var s model.SpendingItem
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("spending-log line %q: %w", clip(line), err)
		}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("spending-log line %q: %w", clip(line), err)
		}
		s.SourceFile = source
		items = append(items, s)
	}
	return items, nil
}

func fencedBlock(re *regexp.Regexp, output, tag string) (string, error) {
	m := re.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("missing %s block", tag)
	}
	return strings.TrimSpace(m[1]), nil
}

func nonEmptyLines(block string) []string {
	if block == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func clip(line string) string {
	if len(line) > 80 {
		return line[:80]
	}
	return line
}
