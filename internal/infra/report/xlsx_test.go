//go:build !integration

package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestCSVToXLSX(t *testing.T) {
	in := "email,result\na@x.io,deliverable\nb@x.io,undeliverable\n"

	var out bytes.Buffer
	if err := CSVToXLSX(strings.NewReader(in), &out); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	f, err := excelize.OpenReader(&out)
	if err != nil {
		t.Fatalf("expected a readable workbook, got %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "email" || rows[2][1] != "undeliverable" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestCSVToXLSX_Empty(t *testing.T) {
	var out bytes.Buffer
	if err := CSVToXLSX(strings.NewReader(""), &out); err != nil {
		t.Fatalf("expected empty report to convert, got %v", err)
	}
	if out.Len() == 0 {
		t.Error("expected a workbook even for an empty report")
	}
}
