package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/Sriram-PR/link-auditor/pkg/models"
)

// PrintTable renders results as a console table, one row per result in crawl order
func PrintTable(w io.Writer, results []models.CrawlResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "URL", "HTTP Code", "Redirects To", "Referer")

	rows := make([][]string, 0, len(results))
	for i, r := range results {
		rows = append(rows, []string{
			strconv.Itoa(i),
			r.URL,
			strconv.Itoa(r.HTTPCode),
			r.RedirectsTo,
			r.Referer,
		})
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("table rows: %w", err)
	}
	return table.Render()
}

// PrintSummary writes a short plain-text summary block
func PrintSummary(w io.Writer, summary models.CrawlSummary) {
	fmt.Fprintf(w, "Results:            %d\n", summary.TotalResults)
	for _, class := range sortedClasses(summary.ByStatusClass) {
		fmt.Fprintf(w, "  %-5s             %d\n", class, summary.ByStatusClass[class])
	}
	fmt.Fprintf(w, "Redirects:          %d (internal: %d)\n", summary.Redirects, summary.InternalRedirects)
	fmt.Fprintf(w, "Broken links:       %d\n", summary.BrokenLinks)
}
