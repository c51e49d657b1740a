package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"GeoStream/internal/config"
	"GeoStream/internal/model"

	"github.com/nats-io/nats.go"
)

// Event is the wire format of one message on a session's progress subject.
// Observers see coalesced "progress" events and exactly one terminal
// "complete", "aborted" or "error".
type Event struct {
	Type      string               `json:"type"`
	RequestID string               `json:"request_id"`
	Progress  *model.ProgressEvent `json:"progress,omitempty"`
	Result    *model.Result        `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// NATSObserver forwards session events to NATS, one subject per requestId,
// so UI processes can follow a session without touching the engine.
type NATSObserver struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSObserver connects to NATS for progress publishing.
func NewNATSObserver(cfg config.NATSConfig) (*NATSObserver, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	return &NATSObserver{nc: nc, prefix: cfg.ProgressSubject}, nil
}

func (o *NATSObserver) publish(requestID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error marshalling %s event for %s: %v", ev.Type, requestID, err)
		return
	}
	if err := o.nc.Publish(fmt.Sprintf("%s.%s", o.prefix, requestID), data); err != nil {
		log.Printf("Error publishing %s event for %s: %v", ev.Type, requestID, err)
	}
}

// Progress forwards one coalesced progress event.
func (o *NATSObserver) Progress(requestID string, ev model.ProgressEvent) {
	o.publish(requestID, Event{Type: "progress", RequestID: requestID, Progress: &ev})
}

// Complete forwards the terminal result.
func (o *NATSObserver) Complete(requestID string, result *model.Result) {
	o.publish(requestID, Event{Type: "complete", RequestID: requestID, Result: result})
}

// Failed forwards the terminal error. Aborts keep their own type so a UI
// can avoid presenting a user-initiated cancel as a failure.
func (o *NATSObserver) Failed(requestID string, err error) {
	kind := "error"
	if errors.Is(err, model.ErrAborted) {
		kind = "aborted"
	}
	o.publish(requestID, Event{Type: kind, RequestID: requestID, Error: err.Error()})
}

// Close drains and closes the NATS connection.
func (o *NATSObserver) Close() {
	if o.nc != nil {
		o.nc.Drain()
	}
}
