package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("SetSheetRow failed: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "faq.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func TestSource_Rows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"question", "answer", "lang"},
		{"How do I give?", "Use Church Center.", "en"},
		{"如何奉献？", "使用 Church Center。", "zh"},
	})

	rows, err := New(path, "").Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Question != "如何奉献？" || rows[1].Language != "zh" {
		t.Errorf("unexpected row: %+v", rows[1])
	}
}

func TestSource_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{{"question", "answer", "lang"}})

	if _, err := New(path, "Nope").Rows(context.Background()); err == nil {
		t.Error("expected error for missing sheet")
	}
}

func TestSource_MissingFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.xlsx"), "").Rows(context.Background()); err == nil {
		t.Error("expected error for missing workbook")
	}
}
