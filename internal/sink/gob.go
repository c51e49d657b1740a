package sink

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"GeoStream/internal/model"
)

// SummaryData holds the metadata written next to each gob result file.
type SummaryData struct {
	RequestID      string   `json:"request_id"`
	TotalProcessed uint64   `json:"total_processed"`
	SampleSize     int      `json:"sample_size"`
	Categories     []string `json:"categories"`
	FinishedAt     string   `json:"finished_at"`
}

// GobWriter persists one gob-encoded Result file per session, plus a small
// JSON summary for quick inspection. It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a writer rooted at the given directory.
func NewGobWriter(rootPath string) model.Writer {
	return &GobWriter{rootPath: rootPath}
}

// Name identifies the writer in logs.
func (w *GobWriter) Name() string {
	return "gob"
}

// Write serializes the result under <root>/<requestId>/.
func (w *GobWriter) Write(result *model.Result) error {
	dir := filepath.Join(w.rootPath, result.RequestID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	filePath := filepath.Join(dir, "result.dat")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create result file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(result); err != nil {
		return fmt.Errorf("failed to encode result to gob for '%s': %w", filePath, err)
	}

	summary := SummaryData{
		RequestID:      result.RequestID,
		TotalProcessed: result.Stats.TotalProcessed,
		SampleSize:     len(result.Sample),
		Categories:     result.Stats.Categories,
		FinishedAt:     result.FinishedAt.UTC().Format(time.RFC3339),
	}
	summaryFile, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	enc := json.NewEncoder(summaryFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}
