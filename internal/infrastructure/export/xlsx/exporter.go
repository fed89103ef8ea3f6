// Package xlsx renders the stored grant catalogue as a spreadsheet.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/grant-tagger/internal/core/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName   = "Grants"
	listSep     = "\n"
)

var header = []string{"ID", "Grant Name", "Grant Description", "Tags", "Website URLs", "Document URLs", "Created At"}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Write renders one row per grant under a bold header row.
func (e *Exporter) Write(w io.Writer, grants []domain.Grant) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, title := range header {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for idx, grant := range grants {
		row := idx + 2
		createdAt := ""
		if !grant.CreatedAt.IsZero() {
			createdAt = grant.CreatedAt.UTC().Format("2006-01-02 15:04:05")
		}
		values := []string{
			grant.ID,
			grant.Name,
			grant.Description,
			strings.Join(grant.Tags, ", "),
			strings.Join(grant.WebsiteURLs, listSep),
			strings.Join(grant.DocumentURLs, listSep),
			createdAt,
		}
		for col, value := range values {
			if err := setCell(f, col+1, row, value); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "B", "C", 48); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name (%d,%d): %w", col, row, err)
	}
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}
