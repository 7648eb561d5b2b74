// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selection

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pdiddy/digest-engine/pkg/types"
)

// ReportFile lists the selected papers with their downloaded filenames.
// The summarize and cleanup stages read it.
const ReportFile = "papers_to_summarize.csv"

var reportHeader = []string{
	"ID", "Title", "ArXiv URL", "PDF URL", "Published Date",
	"Abstract", "Score", "Query", "Filename",
}

// WriteReport writes papers_to_summarize.csv, one row per downloaded paper.
func WriteReport(path string, papers []types.SelectedPaper) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, p := range papers {
		row := []string{
			p.ID, p.Title, p.ArxivURL, p.PDFURL, p.PublishedAt.Format(dateFmt),
			p.Abstract, strconv.FormatFloat(p.Score, 'f', 6, 64), p.Query, p.Filename,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadReport loads a papers_to_summarize.csv written by WriteReport.
func ReadReport(path string) ([]types.SelectedPaper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("report %s is empty", path)
	}

	var papers []types.SelectedPaper
	for i, rec := range records[1:] {
		if len(rec) != len(reportHeader) {
			return nil, fmt.Errorf("report row %d has %d fields, want %d", i+2, len(rec), len(reportHeader))
		}
		score, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("report row %d has invalid score %q: %w", i+2, rec[6], err)
		}
		p := types.SelectedPaper{
			Paper: types.Paper{
				ID:       rec[0],
				Title:    rec[1],
				ArxivURL: rec[2],
				PDFURL:   rec[3],
				Abstract: rec[5],
			},
			Score:    score,
			Query:    rec[7],
			Filename: rec[8],
		}
		if d, err := time.Parse(dateFmt, rec[4]); err == nil {
			p.PublishedAt = d
		}
		papers = append(papers, p)
	}
	return papers, nil
}
