package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"GeoStream/internal/config"
	"GeoStream/internal/model"
)

// scriptedStream serves pre-built chunks with an optional per-chunk delay,
// then EOF or an injected error.
type scriptedStream struct {
	chunks []*model.Chunk
	err    error
	delay  time.Duration
	next   int
}

func (s *scriptedStream) Recv(ctx context.Context) (*model.Chunk, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

func (s *scriptedStream) Close() error { return nil }

type scriptedOpener struct {
	stream  model.ChunkStream
	openErr error
}

func (o *scriptedOpener) Open(ctx context.Context, requestID string, params model.StreamParams) (model.ChunkStream, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.stream, nil
}

// recordingObserver captures the outbound event sequence of a session.
type recordingObserver struct {
	mu        sync.Mutex
	progress  []model.ProgressEvent
	results   []*model.Result
	failures  []error
	afterTerm int // progress events delivered after a terminal
	done      chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{done: make(chan struct{}, 1)}
}

func (o *recordingObserver) Progress(requestID string, ev model.ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.results)+len(o.failures) > 0 {
		o.afterTerm++
	}
	o.progress = append(o.progress, ev)
}

func (o *recordingObserver) Complete(requestID string, result *model.Result) {
	o.mu.Lock()
	o.results = append(o.results, result)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func (o *recordingObserver) Failed(requestID string, err error) {
	o.mu.Lock()
	o.failures = append(o.failures, err)
	o.mu.Unlock()
	o.done <- struct{}{}
}

func (o *recordingObserver) awaitTerminal(t *testing.T) {
	t.Helper()
	select {
	case <-o.done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timed out waiting for a terminal event")
	}
}

type recordingWriter struct {
	mu      sync.Mutex
	results []*model.Result
}

func (w *recordingWriter) Write(result *model.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, result)
	return nil
}

func (w *recordingWriter) Name() string { return "recording" }

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		MaxSample:             5000,
		SampleStrategy:        "reservoir",
		SubBatchSize:          500,
		BackpressureThreshold: 10,
		ProgressInterval:      "1ms",
		XField:                "longitude",
		YField:                "latitude",
		ValueField:            "value",
		CategoryField:         "unit",
		IDField:               "id",
	}
}

func buildChunks(n, pointsEach int) []*model.Chunk {
	chunks := make([]*model.Chunk, n)
	for seq := 0; seq < n; seq++ {
		c := &model.Chunk{Seq: uint64(seq + 1), TotalChunks: uint64(n)}
		for i := 0; i < pointsEach; i++ {
			c.Points = append(c.Points, model.RawPoint{
				"id":        fmt.Sprintf("p%d_%d", seq, i),
				"longitude": float64(i),
				"latitude":  float64(seq),
				"value":     float64(seq*pointsEach + i),
				"unit":      "elevation",
			})
		}
		chunks[seq] = c
	}
	return chunks
}

func TestSessionCompletesAndPersists(t *testing.T) {
	observer := newRecordingObserver()
	writer := &recordingWriter{}
	opener := &scriptedOpener{stream: &scriptedStream{chunks: buildChunks(3, 10000)}}

	svc, err := NewService(testEngineConfig(), opener, observer, []model.Writer{writer}, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	id, err := svc.Start("", model.StreamParams{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if id == "" {
		t.Fatal("Start must generate a requestId when none is given")
	}

	observer.awaitTerminal(t)

	if len(observer.failures) != 0 {
		t.Fatalf("Unexpected failure: %v", observer.failures)
	}
	if len(observer.results) != 1 {
		t.Fatalf("Expected exactly one terminal result, got %d", len(observer.results))
	}
	result := observer.results[0]
	if result.Stats.TotalProcessed != 30000 {
		t.Errorf("Expected 30000 processed points, got %d", result.Stats.TotalProcessed)
	}
	if len(result.Sample) != 5000 {
		t.Errorf("Expected a sample of 5000, got %d", len(result.Sample))
	}
	if svc.Registry().Len() != 0 {
		t.Errorf("Registry must be empty after completion, has %d entries", svc.Registry().Len())
	}

	writer.mu.Lock()
	persisted := len(writer.results)
	writer.mu.Unlock()
	if persisted != 1 {
		t.Errorf("Expected the result to be written once, got %d writes", persisted)
	}

	// Cancel after natural completion reports no live session.
	if svc.Cancel(id) {
		t.Error("Cancel after completion must report false")
	}
}

func TestStreamErrorDeliversTerminalErrorWithoutResult(t *testing.T) {
	streamErr := errors.New("stream interrupted")
	observer := newRecordingObserver()
	opener := &scriptedOpener{stream: &scriptedStream{chunks: buildChunks(2, 100), err: streamErr}}

	svc, err := NewService(testEngineConfig(), opener, observer, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := svc.Start("req-err", model.StreamParams{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	observer.awaitTerminal(t)

	if len(observer.results) != 0 {
		t.Error("No result may be delivered after a stream error")
	}
	if len(observer.failures) != 1 || !errors.Is(observer.failures[0], streamErr) {
		t.Fatalf("Expected the stream error as the terminal, got %v", observer.failures)
	}
	if svc.Registry().Len() != 0 {
		t.Errorf("Registry entry must be removed after a stream error, has %d", svc.Registry().Len())
	}
}

func TestCancelMidStreamDeliversSingleAbortedTerminal(t *testing.T) {
	observer := newRecordingObserver()
	// A slow producer keeps the session alive long enough to cancel it.
	opener := &scriptedOpener{stream: &scriptedStream{chunks: buildChunks(50, 1000), delay: 20 * time.Millisecond}}

	svc, err := NewService(testEngineConfig(), opener, observer, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := svc.Start("req-cancel", model.StreamParams{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if !svc.Cancel("req-cancel") {
		t.Fatal("Cancel must find the live session")
	}

	observer.awaitTerminal(t)

	if len(observer.results) != 0 {
		t.Error("Abort must never yield a result")
	}
	if len(observer.failures) != 1 || !errors.Is(observer.failures[0], model.ErrAborted) {
		t.Fatalf("Expected exactly one aborted terminal, got %v", observer.failures)
	}
	if svc.Cancel("req-cancel") {
		t.Error("Second cancel must report false")
	}

	// Give any stray events a chance to show up before asserting silence.
	time.Sleep(50 * time.Millisecond)
	observer.mu.Lock()
	after := observer.afterTerm
	observer.mu.Unlock()
	if after != 0 {
		t.Errorf("Got %d progress events after the terminal", after)
	}
}

func TestStartRejectsDuplicateRequestID(t *testing.T) {
	observer := newRecordingObserver()
	opener := &scriptedOpener{stream: &scriptedStream{chunks: buildChunks(5, 100), delay: 50 * time.Millisecond}}

	svc, err := NewService(testEngineConfig(), opener, observer, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := svc.Start("dup", model.StreamParams{}); err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	if _, err := svc.Start("dup", model.StreamParams{}); err == nil {
		t.Error("Second start with the same requestId must fail")
	}
	svc.Stop()
}

func TestStartFailsWhenSourceCannotOpen(t *testing.T) {
	observer := newRecordingObserver()
	opener := &scriptedOpener{openErr: errors.New("no such subject")}

	svc, err := NewService(testEngineConfig(), opener, observer, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	if _, err := svc.Start("req-open", model.StreamParams{}); err == nil {
		t.Fatal("Start must surface the open error")
	}
	if svc.Registry().Len() != 0 {
		t.Errorf("Failed start must not leave a registry entry, has %d", svc.Registry().Len())
	}
}
