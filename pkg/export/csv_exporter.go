// Package export renders class score sheets into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ScoreRow is one student line on a class score sheet. Values arrive
// pre-formatted; rendering never reformats points.
type ScoreRow struct {
	StudentCode   string
	StudentName   string
	TotalPoints   string
	ActivityCount string
}

// ScoreSheet is the tabular result of a class score report job.
type ScoreSheet struct {
	Title string
	Rows  []ScoreRow
}

func scoreSheetColumns() []string {
	return []string{"Student Code", "Student Name", "Total Points", "Activities"}
}

func (r ScoreRow) record() []string {
	return []string{r.StudentCode, r.StudentName, r.TotalPoints, r.ActivityCount}
}

// CSVExporter renders score sheets as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces the CSV encoding of the sheet, header row first.
func (e *CSVExporter) Render(sheet ScoreSheet) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(scoreSheetColumns()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range sheet.Rows {
		if err := w.Write(row.record()); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
