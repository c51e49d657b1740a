package worker

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"GeoStream/internal/engine/aggregate"
	"GeoStream/internal/engine/reservoir"
	"GeoStream/internal/model"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"
)

// Config parameterizes one worker instance. Field names select which keys
// of a raw record carry the coordinates, value and category.
type Config struct {
	MaxSample      int
	SampleStrategy string
	SubBatchSize   int

	XField        string
	YField        string
	ValueField    string
	CategoryField string
	IDField       string

	// Filter is an optional expression; records it does not accept are
	// counted but excluded from aggregates and the sample.
	Filter string

	// Seed fixes the sampler's RNG for tests. Zero means time-seeded.
	Seed int64
}

// Event is one outbound message of a worker: a progress report or exactly
// one terminal result or error.
type Event struct {
	Progress *model.ProgressEvent
	Result   *model.Result
	Err      error
}

// Worker owns one session's aggregation state for its whole lifetime and
// runs the CPU-bound loop on its own goroutine. It communicates exclusively
// via channels: chunks in, progress/terminal events and per-chunk acks out.
type Worker struct {
	requestID string
	cfg       Config
	filter    *vm.Program

	chunks chan *model.Chunk
	abort  chan struct{}
	events chan Event
	acks   chan struct{}

	abortOnce sync.Once
	endOnce   sync.Once

	agg        *aggregate.Aggregator
	sampler    reservoir.Sampler
	processed  uint64
	skipped    uint64
	chunksSeen uint64
	totalHint  uint64
}

// New creates a worker for one session. threshold bounds how many chunks the
// adapter may have in flight; the chunk and ack channels are sized so that
// neither end ever blocks while that bound holds.
func New(requestID string, cfg Config, threshold int) (*Worker, error) {
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = 1000
	}
	if cfg.MaxSample <= 0 {
		cfg.MaxSample = 10000
	}

	var filter *vm.Program
	if cfg.Filter != "" {
		prog, err := expr.Compile(cfg.Filter, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression: %w", err)
		}
		filter = prog
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	return &Worker{
		requestID: requestID,
		cfg:       cfg,
		filter:    filter,
		chunks:    make(chan *model.Chunk, threshold+1),
		abort:     make(chan struct{}),
		events:    make(chan Event, threshold+2),
		acks:      make(chan struct{}, threshold),
		agg:       aggregate.New(),
		sampler:   reservoir.New(cfg.SampleStrategy, cfg.MaxSample, rng),
	}, nil
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Post hands a chunk to the worker. The adapter must keep the number of
// unacknowledged chunks under the threshold given at construction.
func (w *Worker) Post(chunk *model.Chunk) {
	w.chunks <- chunk
}

// End signals natural end-of-stream. No Post may follow.
func (w *Worker) End() {
	w.endOnce.Do(func() { close(w.chunks) })
}

// Abort requests termination. Safe to call multiple times and after the
// worker has already finished.
func (w *Worker) Abort() {
	w.abortOnce.Do(func() { close(w.abort) })
}

// Events returns the worker's outbound event stream. It is closed after the
// single terminal event.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Acks returns the per-chunk acknowledgment channel used for backpressure
// accounting.
func (w *Worker) Acks() <-chan struct{} {
	return w.acks
}

func (w *Worker) run() {
	started := time.Now()
	defer close(w.events)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker [%s]: fault in aggregation loop: %v", w.requestID, r)
			w.events <- Event{Err: fmt.Errorf("worker fault: %v", r)}
		}
	}()

	for {
		select {
		case <-w.abort:
			w.events <- Event{Err: model.ErrAborted}
			return
		case chunk, ok := <-w.chunks:
			if !ok {
				w.events <- Event{Result: w.finalize(started)}
				return
			}
			if aborted := w.processChunk(chunk); aborted {
				w.events <- Event{Err: model.ErrAborted}
				return
			}
			w.events <- Event{Progress: w.progress()}
			w.acks <- struct{}{}
		}
	}
}

// processChunk consumes one chunk in sub-batches, checking for an abort
// between batches so cancellation latency stays bounded even for very
// large chunks. Reports whether an abort was observed.
func (w *Worker) processChunk(chunk *model.Chunk) bool {
	w.chunksSeen++
	if chunk.TotalChunks > 0 {
		w.totalHint = chunk.TotalChunks
	}

	points := chunk.Points
	for len(points) > 0 {
		n := w.cfg.SubBatchSize
		if n > len(points) {
			n = len(points)
		}
		for _, raw := range points[:n] {
			w.processed++
			p, ok := w.decode(raw)
			if !ok {
				w.skipped++
				continue
			}
			w.agg.Observe(p.Value, p.Category)
			w.sampler.Offer(model.SamplePoint{ID: p.ID, X: p.X, Y: p.Y, Value: p.Value}, w.agg.Count())
		}
		points = points[n:]

		select {
		case <-w.abort:
			return true
		default:
		}
	}
	return false
}

// decode extracts a Point from a raw record. Records with missing or
// non-finite coordinates, or rejected by the session filter, are skipped.
func (w *Worker) decode(raw model.RawPoint) (model.Point, bool) {
	if w.filter != nil {
		out, err := expr.Run(w.filter, map[string]interface{}(raw))
		if err != nil {
			return model.Point{}, false
		}
		if accepted, ok := out.(bool); !ok || !accepted {
			return model.Point{}, false
		}
	}

	x, err := toFinite(raw[w.cfg.XField])
	if err != nil {
		return model.Point{}, false
	}
	y, err := toFinite(raw[w.cfg.YField])
	if err != nil {
		return model.Point{}, false
	}
	value, err := toFinite(raw[w.cfg.ValueField])
	if err != nil {
		return model.Point{}, false
	}

	p := model.Point{X: x, Y: y, Value: value}
	if w.cfg.IDField != "" {
		p.ID = cast.ToString(raw[w.cfg.IDField])
	}
	if w.cfg.CategoryField != "" {
		p.Category = cast.ToString(raw[w.cfg.CategoryField])
	}
	return p, true
}

func toFinite(v interface{}) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("missing field")
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	return f, nil
}

func (w *Worker) progress() *model.ProgressEvent {
	ev := &model.ProgressEvent{
		Processed: w.processed,
		Total:     w.totalHint,
		Phase:     fmt.Sprintf("chunk_%d", w.chunksSeen),
	}
	if w.totalHint > 0 {
		ev.Percentage = float64(w.chunksSeen) / float64(w.totalHint) * 100
	}
	return ev
}

func (w *Worker) finalize(started time.Time) *model.Result {
	summary := w.agg.Finalize()
	elapsed := time.Since(started).Seconds()

	pps := 0.0
	if elapsed > 0 {
		pps = float64(w.processed) / elapsed
	}

	if w.skipped > 0 {
		log.Printf("Worker [%s]: skipped %d malformed or filtered points out of %d", w.requestID, w.skipped, w.processed)
	}

	return &model.Result{
		RequestID: w.requestID,
		Stats: model.Stats{
			TotalProcessed:  w.processed,
			Avg:             summary.Avg,
			Min:             summary.Min,
			Max:             summary.Max,
			Categories:      summary.Categories,
			ElapsedSeconds:  elapsed,
			PointsPerSecond: pps,
		},
		Sample:     w.sampler.Finalize(),
		FinishedAt: time.Now(),
	}
}
