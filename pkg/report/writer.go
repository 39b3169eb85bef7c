package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

// WriteAll writes rep to dir as <basename>.<format> for every format and returns the paths written.
// It stops at the first failure; files already written stay in place.
func WriteAll(dir, basename string, formats []string, rep *models.CrawlReport) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory '%s': %w", utils.ErrFilesystem, dir, err)
	}

	var written []string
	for _, format := range formats {
		path := filepath.Join(dir, basename+"."+format)

		var err error
		switch format {
		case config.FormatJSON:
			err = writeJSON(path, rep.Results)
		case config.FormatYAML:
			err = writeYAML(path, rep)
		case config.FormatXLSX:
			err = writeXLSX(path, rep)
		default:
			err = fmt.Errorf("%w: unknown report format '%s'", utils.ErrConfigValidation, format)
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// writeJSON writes the bare results array with two-space indentation.
// URLs are written verbatim, without HTML escaping of & < >.
func writeJSON(path string, results []models.CrawlResult) error {
	if results == nil {
		results = []models.CrawlResult{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("marshal results to JSON: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: write JSON report '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

func writeYAML(path string, rep *models.CrawlReport) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: write YAML report '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

// ReadJSON loads a results array written by WriteAll
func ReadJSON(path string) ([]models.CrawlResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read results '%s': %w", utils.ErrFilesystem, path, err)
	}

	var results []models.CrawlResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%w: results '%s': %w", utils.ErrParsing, path, err)
	}
	return results, nil
}
