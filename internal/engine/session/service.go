package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"GeoStream/internal/config"
	"GeoStream/internal/engine/adapter"
	"GeoStream/internal/engine/progress"
	"GeoStream/internal/engine/worker"
	"GeoStream/internal/model"

	"github.com/google/uuid"
)

// Service is the engine's control surface: it starts streaming sessions and
// cancels them by requestId. One worker goroutine and one adapter pump exist
// per in-flight session; the registry is the only shared state.
type Service struct {
	engineCfg        config.EngineConfig
	progressInterval time.Duration

	opener   model.SourceOpener
	observer model.Observer
	writers  []model.Writer
	notifier model.Notifier

	registry *Registry
	wg       sync.WaitGroup
}

// NewService wires the engine together. notifier may be nil.
func NewService(cfg config.EngineConfig, opener model.SourceOpener, observer model.Observer, writers []model.Writer, notifier model.Notifier) (*Service, error) {
	interval, err := cfg.ProgressIntervalDuration()
	if err != nil {
		return nil, err
	}
	return &Service{
		engineCfg:        cfg,
		progressInterval: interval,
		opener:           opener,
		observer:         observer,
		writers:          writers,
		notifier:         notifier,
		registry:         NewRegistry(),
	}, nil
}

// Registry exposes the session registry, mainly for tests and introspection.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Start begins a streaming session and returns its requestId. An empty
// requestID gets a generated one. The session is registered before any
// asynchronous work begins, so a cancel arriving right after Start returns
// always finds it.
func (s *Service) Start(requestID string, params model.StreamParams) (string, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	params = s.applyDefaults(params)

	w, err := worker.New(requestID, worker.Config{
		MaxSample:      params.MaxSample,
		SampleStrategy: s.engineCfg.SampleStrategy,
		SubBatchSize:   s.engineCfg.SubBatchSize,
		XField:         params.XField,
		YField:         params.YField,
		ValueField:     params.ValueField,
		CategoryField:  params.CategoryField,
		IDField:        params.IDField,
		Filter:         params.Filter,
	}, s.engineCfg.BackpressureThreshold)
	if err != nil {
		return "", fmt.Errorf("failed to create worker for %q: %w", requestID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.registry.Register(requestID, cancel, w.Abort); err != nil {
		cancel()
		return "", err
	}

	stream, err := s.opener.Open(ctx, requestID, params)
	if err != nil {
		s.registry.Remove(requestID)
		cancel()
		return "", fmt.Errorf("failed to open stream for %q: %w", requestID, err)
	}

	sess := &session{
		requestID: requestID,
		worker:    w,
		adapter:   adapter.New(s.engineCfg.BackpressureThreshold),
		coalescer: progress.NewCoalescer(s.progressInterval),
		observer:  s.observer,
		writers:   s.writers,
		notifier:  s.notifier,
		registry:  s.registry,
		cancel:    cancel,
	}

	log.Printf("Service: session %s started (subject=%s, max_sample=%d)", requestID, params.Subject, params.MaxSample)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.run(ctx, stream)
	}()
	return requestID, nil
}

// Cancel tears down a live session. It reports whether one was found and
// never fails: cancelling a finished or unknown session is a no-op.
func (s *Service) Cancel(requestID string) bool {
	return s.registry.Cancel(requestID)
}

// Stop cancels every live session and waits for their terminal deliveries.
func (s *Service) Stop() {
	log.Println("Service stopping...")
	s.registry.CancelAll()
	s.wg.Wait()
	log.Println("Service stopped.")
}

func (s *Service) applyDefaults(p model.StreamParams) model.StreamParams {
	if p.XField == "" {
		p.XField = s.engineCfg.XField
	}
	if p.YField == "" {
		p.YField = s.engineCfg.YField
	}
	if p.ValueField == "" {
		p.ValueField = s.engineCfg.ValueField
	}
	if p.CategoryField == "" {
		p.CategoryField = s.engineCfg.CategoryField
	}
	if p.IDField == "" {
		p.IDField = s.engineCfg.IDField
	}
	if p.MaxSample <= 0 {
		p.MaxSample = s.engineCfg.MaxSample
	}
	return p
}
