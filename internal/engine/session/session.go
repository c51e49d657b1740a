package session

import (
	"context"
	"errors"
	"log"
	"time"

	"GeoStream/internal/engine/adapter"
	"GeoStream/internal/engine/progress"
	"GeoStream/internal/engine/worker"
	"GeoStream/internal/model"
)

// session ties one stream to one worker and drives the event loop until a
// terminal outcome, guaranteeing exactly one terminal delivery per requestId.
type session struct {
	requestID string
	worker    *worker.Worker
	adapter   *adapter.Adapter
	coalescer *progress.Coalescer
	observer  model.Observer
	writers   []model.Writer
	notifier  model.Notifier
	registry  *Registry
	cancel    context.CancelFunc
}

// run consumes the worker's events, forwarding coalesced progress and
// delivering the single terminal Result or error. It owns session teardown:
// the registry entry is gone by the time the terminal is delivered.
func (s *session) run(ctx context.Context, stream model.ChunkStream) {
	s.worker.Start()
	s.adapter.Start(ctx, stream, s.worker)

	var result *model.Result
	var termErr error

	for ev := range s.worker.Events() {
		switch {
		case ev.Progress != nil:
			if s.coalescer.ShouldForward(*ev.Progress) {
				s.observer.Progress(s.requestID, *ev.Progress)
			}
		case ev.Result != nil:
			result = ev.Result
		default:
			termErr = ev.Err
		}
	}

	// Release the pump if it is still parked on the stream or on acks the
	// worker will never send (e.g. after a worker fault), then collect its
	// outcome. Prefer the stream's own error over the generic abort the
	// worker reports when the pump tears it down.
	s.cancel()
	if adapterErr := <-s.adapter.Done(); adapterErr != nil {
		if termErr == nil || (errors.Is(termErr, model.ErrAborted) && !errors.Is(adapterErr, model.ErrAborted)) {
			termErr = adapterErr
		}
	}

	s.registry.Remove(s.requestID)

	if termErr != nil {
		if errors.Is(termErr, model.ErrAborted) {
			log.Printf("Session [%s]: aborted", s.requestID)
		} else {
			log.Printf("Session [%s]: failed: %v", s.requestID, termErr)
			s.notifyFailure(termErr)
		}
		s.observer.Failed(s.requestID, termErr)
		return
	}

	for _, w := range s.writers {
		if err := w.Write(result); err != nil {
			log.Printf("Session [%s]: writer %s failed: %v", s.requestID, w.Name(), err)
		}
	}

	log.Printf("Session [%s]: completed, %d points in %.2fs (%.0f points/s), sample size %d",
		s.requestID, result.Stats.TotalProcessed, result.Stats.ElapsedSeconds,
		result.Stats.PointsPerSecond, len(result.Sample))
	s.observer.Complete(s.requestID, result)
}

func (s *session) notifyFailure(err error) {
	if s.notifier == nil {
		return
	}
	subject := "GeoStream session failed: " + s.requestID
	body := "Session " + s.requestID + " failed at " + time.Now().Format(time.RFC3339) + ": " + err.Error()
	if nerr := s.notifier.Send(subject, body); nerr != nil {
		log.Printf("Session [%s]: failure notification not sent: %v", s.requestID, nerr)
	}
}
