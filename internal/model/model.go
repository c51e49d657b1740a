package model

import (
	"errors"
	"time"
)

// ErrAborted is the terminal error of a cancelled session. Callers compare
// against it to tell a user-initiated abort from a real fault.
var ErrAborted = errors.New("aborted")

// RawPoint is a single record as it arrives on the wire. Coordinate and
// value fields are looked up by the key names configured for the session,
// so a malformed record is a per-point concern, never a session one.
type RawPoint map[string]interface{}

// Point is a decoded, validated record.
type Point struct {
	ID       string
	X        float64
	Y        float64
	Value    float64
	Category string
}

// Chunk is one ordered batch of raw points on a session's stream.
type Chunk struct {
	Seq         uint64     `json:"seq"`
	TotalChunks uint64     `json:"total_chunks"` // 0 when the producer gave no hint
	Points      []RawPoint `json:"points"`
}

// ProgressEvent reports how far a session has advanced. Recreated on each
// emission, never retained.
type ProgressEvent struct {
	Processed  uint64  `json:"processed"`
	Total      uint64  `json:"total"`
	Percentage float64 `json:"percentage"`
	Phase      string  `json:"phase"`
}

// Terminal reports whether the event must bypass progress coalescing.
func (e ProgressEvent) Terminal() bool {
	return e.Percentage >= 100
}

// SamplePoint is one entry of the visualization sample.
type SamplePoint struct {
	ID    string  `json:"id,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// Stats holds the running statistics of a finished session.
type Stats struct {
	TotalProcessed  uint64   `json:"total_processed"`
	Avg             float64  `json:"avg"`
	Min             float64  `json:"min"`
	Max             float64  `json:"max"`
	Categories      []string `json:"categories"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
	PointsPerSecond float64  `json:"points_per_second"`
}

// Result is the single terminal payload of a successful session.
type Result struct {
	RequestID  string        `json:"request_id"`
	Stats      Stats         `json:"stats"`
	Sample     []SamplePoint `json:"sample"`
	FinishedAt time.Time     `json:"finished_at"`
}

// StreamParams describes what a session should consume and how to read it.
type StreamParams struct {
	Subject       string `json:"subject" yaml:"subject"`
	XField        string `json:"x_field" yaml:"x_field"`
	YField        string `json:"y_field" yaml:"y_field"`
	ValueField    string `json:"value_field" yaml:"value_field"`
	CategoryField string `json:"category_field" yaml:"category_field"`
	IDField       string `json:"id_field" yaml:"id_field"`
	// Filter is an optional expression evaluated against each raw record;
	// records it rejects are counted but excluded from aggregates.
	Filter    string `json:"filter" yaml:"filter"`
	MaxSample int    `json:"max_sample" yaml:"max_sample"`
}
