package model

// Writer defines a generic interface for persisting a session's terminal
// result. The engine fans a Result out to every configured writer.
type Writer interface {
	Write(result *Result) error

	// Name identifies the writer in logs.
	Name() string
}
