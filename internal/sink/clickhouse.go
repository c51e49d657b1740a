package sink

import (
	"context"
	"fmt"
	"log"

	"GeoStream/internal/config"
	"GeoStream/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS stream_sessions (
    RequestID       String,
    FinishedAt      DateTime,
    TotalProcessed  UInt64,
    Avg             Float64,
    Min             Float64,
    Max             Float64,
    Categories      Array(String),
    ElapsedSeconds  Float64,
    PointsPerSecond Float64,
    SampleSize      UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(FinishedAt)
ORDER BY (RequestID, FinishedAt);
`

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS stream_samples (
    RequestID String,
    PointID   String,
    X         Float64,
    Y         Float64,
    Value     Float64
) ENGINE = MergeTree()
ORDER BY (RequestID);
`

// ClickHouseWriter persists session results and their visualization samples
// to ClickHouse. It implements the model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the result tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createSessionsTable, createSamplesTable} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseWriter{conn: conn}, nil
}

// Connect opens a ClickHouse connection with the project's default options.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Name identifies the writer in logs.
func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

// Write inserts the session row and batch-inserts its sample points.
func (w *ClickHouseWriter) Write(result *model.Result) error {
	ctx := context.Background()

	err := w.conn.Exec(ctx, "INSERT INTO stream_sessions VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		result.RequestID,
		result.FinishedAt,
		result.Stats.TotalProcessed,
		result.Stats.Avg,
		result.Stats.Min,
		result.Stats.Max,
		result.Stats.Categories,
		result.Stats.ElapsedSeconds,
		result.Stats.PointsPerSecond,
		uint64(len(result.Sample)),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session row: %w", err)
	}

	if len(result.Sample) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO stream_samples")
	if err != nil {
		return fmt.Errorf("failed to prepare sample batch: %w", err)
	}
	for _, p := range result.Sample {
		if err := batch.Append(result.RequestID, p.ID, p.X, p.Y, p.Value); err != nil {
			return fmt.Errorf("failed to append sample point to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send sample batch: %w", err)
	}

	log.Printf("Wrote session '%s' with %d sample points to ClickHouse", result.RequestID, len(result.Sample))
	return nil
}
