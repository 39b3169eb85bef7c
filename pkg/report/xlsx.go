package report

import (
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultsHeader = []any{"URL", "HTTP Code", "Redirects To", "Referer", "Discovered From"}

func writeXLSX(path string, rep *models.CrawlReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if err := fillResultsSheet(f, rep.Results); err != nil {
		return fmt.Errorf("xlsx: results sheet: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("xlsx: add summary sheet: %w", err)
	}
	if err := fillSummarySheet(f, rep); err != nil {
		return fmt.Errorf("xlsx: summary sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: write XLSX report '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

func fillResultsSheet(f *excelize.File, results []models.CrawlResult) error {
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(resultsSheet, "A1", "E1", bold); err != nil {
		return err
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.URL, r.HTTPCode, r.RedirectsTo, r.Referer, r.DiscoveredFrom}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(resultsSheet, "A", "A", 70); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "C", "E", 50); err != nil {
		return err
	}
	if len(results) > 0 {
		lastRow := fmt.Sprintf("A1:E%d", len(results)+1)
		if err := f.AutoFilter(resultsSheet, lastRow, nil); err != nil {
			return err
		}
	}
	return nil
}

func fillSummarySheet(f *excelize.File, rep *models.CrawlReport) error {
	rows := [][]any{
		{"Run ID", rep.RunID},
		{"Base URL", rep.BaseURL},
		{"Domain Suffix", rep.DomainSuffix},
		{"Started At", rep.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished At", rep.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Total Results", rep.Summary.TotalResults},
		{"Redirects", rep.Summary.Redirects},
		{"Internal Redirects", rep.Summary.InternalRedirects},
		{"Broken Links", rep.Summary.BrokenLinks},
	}
	for _, class := range sortedClasses(rep.Summary.ByStatusClass) {
		rows = append(rows, []any{"Status " + class, rep.Summary.ByStatusClass[class]})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 22)
}

func sortedClasses(byClass map[string]int) []string {
	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	slices.Sort(classes)
	return classes
}
