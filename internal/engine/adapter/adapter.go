package adapter

import (
	"context"
	"errors"
	"io"
	"log"

	"GeoStream/internal/model"
)

// ChunkConsumer is the worker-side surface the adapter drives. Acks carries
// one signal per fully consumed chunk and is the basis of the backpressure
// accounting.
type ChunkConsumer interface {
	Post(chunk *model.Chunk)
	End()
	Abort()
	Acks() <-chan struct{}
}

// Adapter pumps a remote chunk stream into a consumer, suspending the
// stream whenever too many chunks are outstanding. One adapter serves one
// session.
type Adapter struct {
	threshold int
	done      chan error
}

// New creates an adapter with the given outstanding-chunk threshold.
func New(threshold int) *Adapter {
	if threshold <= 0 {
		threshold = 10
	}
	return &Adapter{
		threshold: threshold,
		done:      make(chan error, 1),
	}
}

// Start launches the pump goroutine. The outcome is reported on Done:
// nil after a natural end-of-stream (the consumer got End), the stream
// error otherwise (the consumer got Abort). Context cancellation surfaces
// as model.ErrAborted.
func (a *Adapter) Start(ctx context.Context, stream model.ChunkStream, consumer ChunkConsumer) {
	go a.pump(ctx, stream, consumer)
}

// Done reports the pump outcome, exactly once.
func (a *Adapter) Done() <-chan error {
	return a.done
}

func (a *Adapter) pump(ctx context.Context, stream model.ChunkStream, consumer ChunkConsumer) {
	defer stream.Close()

	outstanding := 0
	for {
		// Suspend consumption while the worker is behind by a full window.
		for outstanding >= a.threshold {
			select {
			case <-consumer.Acks():
				outstanding--
			case <-ctx.Done():
				consumer.Abort()
				a.done <- model.ErrAborted
				return
			}
		}

		chunk, err := stream.Recv(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				consumer.End()
				a.done <- nil
			case errors.Is(err, context.Canceled):
				consumer.Abort()
				a.done <- model.ErrAborted
			default:
				log.Printf("Adapter: stream error after %d outstanding chunks: %v", outstanding, err)
				consumer.Abort()
				a.done <- err
			}
			return
		}

		consumer.Post(chunk)
		outstanding++

		// Collect any acks that arrived while we were receiving.
		for {
			select {
			case <-consumer.Acks():
				outstanding--
				continue
			default:
			}
			break
		}
	}
}
