package model

import "context"

// ChunkStream is one open, ordered stream of chunks from a remote producer.
// Recv returns io.EOF after the producer's natural end-of-stream marker.
type ChunkStream interface {
	Recv(ctx context.Context) (*Chunk, error)
	Close() error
}

// SourceOpener opens a ChunkStream for a session. Implementations own the
// wire protocol; the engine only ever sees chunks.
type SourceOpener interface {
	Open(ctx context.Context, requestID string, params StreamParams) (ChunkStream, error)
}
