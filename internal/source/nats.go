package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"GeoStream/internal/config"
	"GeoStream/internal/model"

	"github.com/nats-io/nats.go"
)

// Envelope is the wire format of one message on a session's chunk subject.
// A producer sends any number of "chunk" envelopes followed by exactly one
// "end" or "error".
type Envelope struct {
	Type  string       `json:"type"` // "chunk", "end" or "error"
	Chunk *model.Chunk `json:"chunk,omitempty"`
	Error string       `json:"error,omitempty"`
}

const (
	EnvelopeChunk = "chunk"
	EnvelopeEnd   = "end"
	EnvelopeError = "error"
)

// NATSOpener opens chunk streams backed by NATS subscriptions. One opener
// holds one connection shared by all sessions.
type NATSOpener struct {
	nc         *nats.Conn
	prefix     string
	bufferSize int
}

// NewNATSOpener connects to NATS and returns an opener for chunk streams.
func NewNATSOpener(cfg config.NATSConfig) (*NATSOpener, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &NATSOpener{nc: nc, prefix: cfg.ChunkSubject, bufferSize: cfg.BufferSize}, nil
}

// Open subscribes to the session's chunk subject. The subject defaults to
// "<prefix>.<requestID>" unless the caller overrides it in the params.
func (o *NATSOpener) Open(ctx context.Context, requestID string, params model.StreamParams) (model.ChunkStream, error) {
	subject := params.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s.%s", o.prefix, requestID)
	}

	msgs := make(chan *nats.Msg, o.bufferSize)
	sub, err := o.nc.ChanSubscribe(subject, msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %q: %w", subject, err)
	}
	log.Printf("Subscribed to '%s' for session %s", subject, requestID)
	return &natsStream{subject: subject, sub: sub, msgs: msgs}, nil
}

// Close drains and closes the NATS connection.
func (o *NATSOpener) Close() {
	if o.nc != nil {
		o.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}

// natsStream adapts one subscription to the ChunkStream interface.
type natsStream struct {
	subject string
	sub     *nats.Subscription
	msgs    chan *nats.Msg
}

// Recv blocks until the next chunk, end-of-stream (io.EOF) or producer
// error. Undecodable messages are logged and skipped, matching the
// per-message tolerance of the rest of the pipeline.
func (s *natsStream) Recv(ctx context.Context) (*model.Chunk, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg := <-s.msgs:
			var env Envelope
			if err := json.Unmarshal(msg.Data, &env); err != nil {
				log.Printf("Error unmarshalling envelope on '%s': %v", s.subject, err)
				continue
			}
			switch env.Type {
			case EnvelopeChunk:
				if env.Chunk == nil {
					log.Printf("Chunk envelope without a chunk on '%s', skipping", s.subject)
					continue
				}
				return env.Chunk, nil
			case EnvelopeEnd:
				return nil, io.EOF
			case EnvelopeError:
				return nil, fmt.Errorf("producer error: %s", env.Error)
			default:
				log.Printf("Unknown envelope type %q on '%s', skipping", env.Type, s.subject)
			}
		}
	}
}

// Close unsubscribes from the chunk subject.
func (s *natsStream) Close() error {
	return s.sub.Unsubscribe()
}

// Publisher publishes chunk envelopes, used by data producers such as the
// feeder.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// NewPublisher connects to NATS for publishing chunk streams.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Printf("Connected to NATS server at %s", cfg.URL)
	return &Publisher{nc: nc, prefix: cfg.ChunkSubject}, nil
}

func (p *Publisher) publish(requestID string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("%s.%s", p.prefix, requestID), data)
}

// PublishChunk sends one chunk on the session's subject.
func (p *Publisher) PublishChunk(requestID string, chunk *model.Chunk) error {
	return p.publish(requestID, Envelope{Type: EnvelopeChunk, Chunk: chunk})
}

// PublishEnd marks natural end-of-stream.
func (p *Publisher) PublishEnd(requestID string) error {
	return p.publish(requestID, Envelope{Type: EnvelopeEnd})
}

// PublishError marks a producer-side failure.
func (p *Publisher) PublishError(requestID string, reason string) error {
	return p.publish(requestID, Envelope{Type: EnvelopeError, Error: reason})
}

// Close drains and closes the NATS connection, flushing pending publishes.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
