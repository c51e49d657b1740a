package query

import (
	"context"
	"fmt"

	"GeoStream/internal/config"
	"GeoStream/internal/model"
	"GeoStream/internal/sink"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// SessionSummary is one stored session as returned by the query API.
type SessionSummary struct {
	RequestID  string      `json:"request_id"`
	Stats      model.Stats `json:"stats"`
	SampleSize uint64      `json:"sample_size"`
	FinishedAt string      `json:"finished_at"`
}

// Querier defines the interface for reading stored session results.
type Querier interface {
	GetSession(ctx context.Context, requestID string) (*SessionSummary, error)
	ListSessions(ctx context.Context, limit int) ([]*SessionSummary, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := sink.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

const sessionColumns = `
	RequestID,
	toString(FinishedAt) AS FinishedAt,
	TotalProcessed,
	Avg, Min, Max,
	Categories,
	ElapsedSeconds,
	PointsPerSecond,
	SampleSize
`

// GetSession fetches the most recent stored result for one requestId.
func (q *clickhouseQuerier) GetSession(ctx context.Context, requestID string) (*SessionSummary, error) {
	row := q.conn.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM stream_sessions
		WHERE RequestID = ?
		ORDER BY FinishedAt DESC
		LIMIT 1
	`, requestID)

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session %q: %w", requestID, err)
	}
	return s, nil
}

// ListSessions fetches the most recent stored results.
func (q *clickhouseQuerier) ListSessions(ctx context.Context, limit int) ([]*SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.conn.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM stream_sessions
		ORDER BY FinishedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*SessionSummary
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*SessionSummary, error) {
	var s SessionSummary
	if err := row.Scan(
		&s.RequestID,
		&s.FinishedAt,
		&s.Stats.TotalProcessed,
		&s.Stats.Avg,
		&s.Stats.Min,
		&s.Stats.Max,
		&s.Stats.Categories,
		&s.Stats.ElapsedSeconds,
		&s.Stats.PointsPerSecond,
		&s.SampleSize,
	); err != nil {
		return nil, fmt.Errorf("failed to scan session row: %w", err)
	}
	return &s, nil
}
