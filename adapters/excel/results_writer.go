// Package excel exports finder results as an Excel workbook.
package excel

import (
	"fmt"
	"io"

	"trialdesk/domain/trial"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the exported trials
const SheetName = "Trials"

// Headers are the column titles of the export, in column order
var Headers = []string{"NCT ID", "Title", "Phase", "Randomized", "Sites", "Match score", "Link", "Rationale"}

// WriteResults writes one row per record, in result order, to w
func WriteResults(w io.Writer, records []trial.TrialRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, record := range records {
		rowIdx := r + 2
		for c, v := range rowValues(record) {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(SheetName, "B", "B", 60); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "H", "H", 80); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func rowValues(record trial.TrialRecord) []interface{} {
	randomized := ""
	if record.Randomized != nil {
		randomized = "Single-arm"
		if *record.Randomized {
			randomized = "Randomized"
		}
	}

	var score interface{} = ""
	if record.Score != nil {
		score = *record.Score
	}

	link := record.Link
	if link == "" && record.NCTID != "" {
		link = trial.RegistryLink(record.NCTID)
	}

	return []interface{}{
		record.NCTID,
		record.Title,
		record.Phase,
		randomized,
		record.Sites,
		score,
		link,
		record.Rationale,
	}
}
