package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadSheetCSV(t *testing.T) {
	data := "\xEF\xBB\xBF학생,점수,1,2\nKim,90,O,X\n,,,\nLee,70,X\n"
	sheet, err := ReadSheet("class.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(sheet.Headers) != 4 || sheet.Headers[0] != "학생" {
		t.Fatalf("headers = %v", sheet.Headers)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("expected 2 rows (blank row skipped), got %d", len(sheet.Rows))
	}
	if sheet.Rows[0]["1"] != "O" || sheet.Rows[0]["2"] != "X" {
		t.Errorf("row 0 = %v", sheet.Rows[0])
	}
	if v, ok := sheet.Rows[1]["2"]; !ok || v != "" {
		t.Errorf("short row should be padded with empty cells, got %q (present=%v)", v, ok)
	}
}

func TestReadSheetXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"student", "score", "1", "2"},
		{"Kim", 90, "O", "X"},
		{"Lee", 70, "X", "X"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	got, err := ReadSheet("class.xlsx", bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.Rows))
	}
	if got.Rows[0]["score"] != "90" || got.Rows[1]["student"] != "Lee" {
		t.Errorf("unexpected rows: %v", got.Rows)
	}
}

func TestReadSheetErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"unsupported", "notes.txt", "a,b"},
		{"empty csv", "empty.csv", "\n\n"},
		{"corrupt xlsx", "broken.xlsx", "not a zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSheet(tt.file, strings.NewReader(tt.data))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if pe.File != tt.file {
				t.Errorf("ParseError.File = %q, want %q", pe.File, tt.file)
			}
		})
	}
}

func TestSanitizePDF(t *testing.T) {
	clean := []byte("%PDF-1.4\nbody\n%%EOF\n")
	if got := sanitizePDF(clean); !bytes.Equal(got, clean) {
		t.Errorf("clean PDF changed: %q", got)
	}
	dirty := append(append([]byte{}, clean...), []byte("<html>junk</html>")...)
	if got := sanitizePDF(dirty); !bytes.Equal(got, clean) {
		t.Errorf("sanitizePDF() = %q, want %q", got, clean)
	}
	notPDF := []byte("hello %%EOF trailing")
	if got := sanitizePDF(notPDF); !bytes.Equal(got, notPDF) {
		t.Error("non-PDF content should be returned unchanged")
	}
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "definitely not a pdf"} {
		_, err := ExtractPDFText("exam.pdf", strings.NewReader(data))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("ExtractPDFText(%q) error = %v, want *ParseError", data, err)
		}
	}
}
