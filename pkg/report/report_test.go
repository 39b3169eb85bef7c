package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

func sampleResults() []models.CrawlResult {
	return []models.CrawlResult{
		{URL: "https://x.hse.ie/", HTTPCode: 200, Referer: "https://x.hse.ie/"},
		{URL: "https://x.hse.ie/old", HTTPCode: 301, RedirectsTo: "https://x.hse.ie/new", Referer: "https://x.hse.ie/old", DiscoveredFrom: "https://x.hse.ie/"},
		{URL: "https://x.hse.ie/out", HTTPCode: 302, RedirectsTo: "https://evil.com/", Referer: "https://x.hse.ie/out", DiscoveredFrom: "https://x.hse.ie/"},
		{URL: "https://x.hse.ie/missing?a=1&b=2", HTTPCode: 404, Referer: "https://x.hse.ie/missing?a=1&b=2", DiscoveredFrom: "https://x.hse.ie/"},
		{URL: "https://x.hse.ie/boom", HTTPCode: 503, Referer: "https://x.hse.ie/boom", DiscoveredFrom: "https://x.hse.ie/"},
	}
}

func sampleReport() *models.CrawlReport {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return NewReport(Meta{
		RunID:        "run-1",
		BaseURL:      "https://x.hse.ie/",
		DomainSuffix: "hse.ie",
		StartedAt:    started,
		FinishedAt:   started.Add(2 * time.Minute),
	}, sampleResults())
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults(), "hse.ie")

	assert.Equal(t, 5, s.TotalResults)
	assert.Equal(t, map[string]int{"2xx": 1, "3xx": 2, "4xx": 1, "5xx": 1}, s.ByStatusClass)
	assert.Equal(t, 2, s.Redirects)
	assert.Equal(t, 1, s.InternalRedirects)
	assert.Equal(t, 2, s.BrokenLinks)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, "hse.ie")
	assert.Zero(t, s.TotalResults)
	assert.NotNil(t, s.ByStatusClass)
}

func TestNewReport_NilResults(t *testing.T) {
	rep := NewReport(Meta{RunID: "r"}, nil)
	assert.NotNil(t, rep.Results)
	assert.Zero(t, rep.Summary.TotalResults)
}

func TestBroken(t *testing.T) {
	broken := Broken(sampleResults())
	require.Len(t, broken, 2)
	assert.Equal(t, 404, broken[0].HTTPCode)
	assert.Equal(t, 503, broken[1].HTTPCode)
}

func TestWriteAll_JSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	paths, err := WriteAll(dir, "results", []string{"json"}, sampleReport())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "results.json")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"url\": \"https://x.hse.ie/\",\n    \"httpCode\": 200,"))
	assert.Contains(t, text, `"redirectsTo": "https://x.hse.ie/new"`)
	assert.Contains(t, text, `missing?a=1&b=2`, "URLs must not be HTML-escaped")
	assert.NotContains(t, text, `"redirectsTo": ""`)

	back, err := ReadJSON(paths[0])
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), back)
}

func TestWriteAll_EmptyResultsIsEmptyArray(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteAll(dir, "results", []string{"json"}, &models.CrawlReport{})
	require.NoError(t, err)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteAll_YAML(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteAll(dir, "audit", []string{"yaml"}, sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	var rep models.CrawlReport
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, 2, rep.Summary.BrokenLinks)
	assert.Len(t, rep.Results, 5)
	assert.Contains(t, string(data), "http_code: 301")
}

func TestWriteAll_XLSX(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteAll(dir, "results", []string{"xlsx"}, sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"URL", "HTTP Code", "Redirects To", "Referer", "Discovered From"}, rows[0])
	assert.Equal(t, "https://x.hse.ie/old", rows[2][0])
	assert.Equal(t, "301", rows[2][1])
	assert.Equal(t, "https://x.hse.ie/new", rows[2][2])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Run ID", "run-1"}, summary[0])
	assert.Contains(t, summary, []string{"Broken Links", "2"})
	assert.Contains(t, summary, []string{"Status 3xx", "2"})
}

func TestWriteAll_AllFormats(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteAll(dir, "results", []string{"json", "yaml", "xlsx"}, sampleReport())
	require.NoError(t, err)
	assert.Len(t, paths, 3)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

func TestWriteAll_UnknownFormat(t *testing.T) {
	paths, err := WriteAll(t.TempDir(), "results", []string{"json", "csv"}, sampleReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
	assert.Len(t, paths, 1)
}

func TestWriteAll_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := WriteAll(filepath.Join(file, "sub"), "results", []string{"json"}, sampleReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFilesystem)
}

func TestReadJSON_Errors(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, utils.ErrFilesystem)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = ReadJSON(bad)
	assert.ErrorIs(t, err, utils.ErrParsing)
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "https://x.hse.ie/old")
	assert.Contains(t, out, "https://x.hse.ie/new")
	assert.Contains(t, out, "503")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summarize(sampleResults(), "hse.ie"))

	out := buf.String()
	assert.Contains(t, out, "Results:            5")
	assert.Contains(t, out, "Redirects:          2 (internal: 1)")
	assert.Contains(t, out, "Broken links:       2")
	assert.Less(t, strings.Index(out, "2xx"), strings.Index(out, "5xx"))
}
