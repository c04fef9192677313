package xlsx

import (
	"context"
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/sheet"
	"github.com/xuri/excelize/v2"
)

// Source reads rows from a sheet of an .xlsx workbook.
type Source struct {
	path  string
	sheet string
}

// New creates a Source. An empty sheet name selects the first sheet.
func New(path, sheetName string) *Source {
	return &Source{path: path, sheet: sheetName}
}

// Rows implements knowledge.RowSource.
func (s *Source) Rows(ctx context.Context) ([]knowledge.Row, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name := s.sheet
	if name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", s.path)
		}
		name = sheets[0]
	}

	records, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return sheet.ParseRows(records)
}
