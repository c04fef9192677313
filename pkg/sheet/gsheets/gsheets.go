package gsheets

import (
	"context"
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/sheet"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange reads every column of the first sheet.
const DefaultRange = "A:Z"

// Source reads rows from a Google Sheets spreadsheet with a service account.
type Source struct {
	spreadsheetID string
	readRange     string
	opts          []option.ClientOption
}

// New creates a Source. credentialsJSON is a service account key.
func New(spreadsheetID, readRange string, credentialsJSON []byte) *Source {
	if readRange == "" {
		readRange = DefaultRange
	}
	return &Source{
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		opts: []option.ClientOption{
			option.WithCredentialsJSON(credentialsJSON),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope),
		},
	}
}

// Rows implements knowledge.RowSource.
func (s *Source) Rows(ctx context.Context) ([]knowledge.Row, error) {
	srv, err := sheets.NewService(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	resp, err := srv.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", s.spreadsheetID, err)
	}

	return sheet.ParseRows(toRecords(resp.Values))
}

func toRecords(values [][]interface{}) [][]string {
	records := make([][]string, len(values))
	for i, row := range values {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = fmt.Sprint(v)
		}
		records[i] = rec
	}
	return records
}
