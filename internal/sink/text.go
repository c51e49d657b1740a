package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"GeoStream/internal/model"
)

// TextWriter appends one human-readable summary line per session to a log
// file. It implements the model.Writer interface.
type TextWriter struct {
	path string
}

// NewTextWriter creates a writer appending to the given file.
func NewTextWriter(path string) model.Writer {
	return &TextWriter{path: path}
}

// Name identifies the writer in logs.
func (w *TextWriter) Name() string {
	return "text"
}

// Write appends the session summary.
func (w *TextWriter) Write(result *model.Result) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create result directory: %w", err)
		}
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open result log '%s': %w", w.path, err)
	}
	defer file.Close()

	line := fmt.Sprintf("%s - %s: processed=%d avg=%.4f min=%.4f max=%.4f categories=[%s] elapsed=%.2fs rate=%.0fpps sample=%d\n",
		result.FinishedAt.Format("2006-01-02 15:04:05.000"),
		result.RequestID,
		result.Stats.TotalProcessed,
		result.Stats.Avg,
		result.Stats.Min,
		result.Stats.Max,
		strings.Join(result.Stats.Categories, ","),
		result.Stats.ElapsedSeconds,
		result.Stats.PointsPerSecond,
		len(result.Sample),
	)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write result line: %w", err)
	}
	return nil
}
