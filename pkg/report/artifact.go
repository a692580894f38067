package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/webpilot-ai/webpilot/pkg/executor"
)

// ArtifactWriter writes report artifacts to disk. Each execution gets its
// own subdirectory named by execution id holding report.json, report.md,
// and the per-step screenshots.
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates an artifact writer rooted at outputDir.
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// Dir returns the artifact directory for an execution id.
func (w *ArtifactWriter) Dir(executionID string) string {
	return filepath.Join(w.outputDir, executionID)
}

// WriteAll writes all artifact formats for the report.
func (w *ArtifactWriter) WriteAll(report *Report, results []*executor.Result) error {
	if err := os.MkdirAll(w.Dir(report.ExecutionID), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := w.WriteReportJSON(report); err != nil {
		return fmt.Errorf("failed to write report JSON: %w", err)
	}

	if err := w.WriteReportMarkdown(report); err != nil {
		return fmt.Errorf("failed to write report markdown: %w", err)
	}

	if err := w.WriteScreenshots(report.ExecutionID, results); err != nil {
		return fmt.Errorf("failed to write screenshots: %w", err)
	}

	return nil
}

// WriteReportJSON writes the full report as JSON.
func (w *ArtifactWriter) WriteReportJSON(report *Report) error {
	path := filepath.Join(w.Dir(report.ExecutionID), "report.json")

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write report JSON: %w", writeErr)
	}

	return nil
}

// WriteReportMarkdown writes a human-readable markdown rendering.
func (w *ArtifactWriter) WriteReportMarkdown(report *Report) error {
	path := filepath.Join(w.Dir(report.ExecutionID), "report.md")

	var md strings.Builder

	md.WriteString("# Workflow Execution Report\n\n")
	md.WriteString(fmt.Sprintf("**Execution:** %s\n\n", report.ExecutionID))
	if report.Task != "" {
		md.WriteString(fmt.Sprintf("**Task:** %s\n\n", report.Task))
	}
	md.WriteString(fmt.Sprintf("**Category:** %s\n\n", report.Category))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", report.Status))
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	for _, section := range report.Sections {
		md.WriteString(fmt.Sprintf("## %s\n\n", section.Title))
		switch section.Status {
		case string(executor.StatusSuccess):
			md.WriteString("✅ ")
		case string(executor.StatusError):
			md.WriteString("❌ ")
		}
		md.WriteString(section.Body)
		md.WriteString("\n\n")
		if section.DurationMs > 0 {
			md.WriteString(fmt.Sprintf("_Duration: %dms_\n\n", section.DurationMs))
		}
		if section.Screenshot != "" {
			md.WriteString(fmt.Sprintf("![step %d screenshot](%s)\n\n", section.Index+1, section.Screenshot))
		}
	}

	md.WriteString("## Ending Note\n\n")
	md.WriteString(report.EndingNote)
	md.WriteString("\n")

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write report markdown: %w", writeErr)
	}

	return nil
}

// WriteScreenshots writes each result's screenshot as a PNG named by step
// position. Results without a capture are skipped.
func (w *ArtifactWriter) WriteScreenshots(executionID string, results []*executor.Result) error {
	dir := w.Dir(executionID)
	for i, result := range results {
		if result == nil || len(result.Screenshot) == 0 {
			continue
		}
		path := filepath.Join(dir, ScreenshotName(i))
		if err := os.WriteFile(path, result.Screenshot, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", ScreenshotName(i), err)
		}
	}
	return nil
}
