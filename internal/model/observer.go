package model

// Observer receives a session's outbound events: coalesced progress and
// exactly one terminal Complete or Failed per requestId.
type Observer interface {
	Progress(requestID string, ev ProgressEvent)
	Complete(requestID string, result *Result)
	Failed(requestID string, err error)
}

// Notifier defines a generic interface for sending notifications.
type Notifier interface {
	Send(subject, body string) error
}
