// Package sheet turns spreadsheet records into knowledge base rows.
//
// The first non-blank record is the header. It must name a question, an
// answer and a language column; header names are matched case-insensitively
// and "language" is accepted for "lang". Other columns are ignored, as are
// fully blank records.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barekit/givingfaq/pkg/knowledge"
)

var ErrMissingColumn = errors.New("missing column")

var headerAliases = map[string]string{
	"question": "question",
	"answer":   "answer",
	"lang":     "lang",
	"language": "lang",
}

// ParseRows maps records to rows. Values are not validated here; knowledge.Build does that.
func ParseRows(records [][]string) ([]knowledge.Row, error) {
	start := 0
	for start < len(records) && blank(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, nil
	}

	columns := map[string]int{}
	for i, name := range records[start] {
		if key, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := columns[key]; !dup {
				columns[key] = i
			}
		}
	}
	for _, key := range []string{"question", "answer", "lang"} {
		if _, ok := columns[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, key)
		}
	}

	var rows []knowledge.Row
	for _, rec := range records[start+1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, knowledge.Row{
			Question: cell(rec, columns["question"]),
			Answer:   cell(rec, columns["answer"]),
			Language: cell(rec, columns["lang"]),
		})
	}
	return rows, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
