package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

func TestWriteProducesHeaderAndRows(t *testing.T) {
	grants := []domain.Grant{
		{
			ID:           "g-1",
			Name:         "Dairy Equipment",
			Description:  "Supports dairy farmers.",
			Tags:         []string{"dairy", "equipment"},
			WebsiteURLs:  []string{"https://a.example", "https://b.example"},
			DocumentURLs: []string{},
			CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{ID: "g-2", Name: "Untagged", Description: "No tags yet."},
	}

	var buf bytes.Buffer
	if err := NewExporter().Write(&buf, grants); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if diff := cmp.Diff(header, rows[0]); diff != "" {
		t.Fatalf("unexpected header (-want +got):\n%s", diff)
	}
	want := []string{"g-1", "Dairy Equipment", "Supports dairy farmers.", "dairy, equipment", "https://a.example\nhttps://b.example", "", "2026-01-02 03:04:05"}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Fatalf("unexpected first row (-want +got):\n%s", diff)
	}
	if rows[2][1] != "Untagged" {
		t.Fatalf("unexpected second row: %v", rows[2])
	}
}

func TestWriteEmptyCatalogue(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter().Write(&buf, nil); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
