// Package capture defines the speech capture boundary: a provider performs
// one transcription per call and reports either a transcript with a
// confidence score or a categorized [Error].
//
// Providers live in subpackages (typed, mock, gateway, whisper) and are
// selected through the configuration registry.
package capture

import (
	"context"
	"errors"
	"fmt"
)

// Capture is the result of one successful transcription.
type Capture struct {
	// Transcript is the recognised text. Never empty on success; a capture
	// that hears nothing fails with [KindNoSpeech] instead.
	Transcript string

	// Confidence is the provider's own confidence in the transcript,
	// within [0,1]. Providers without a native score report 1.0.
	Confidence float64
}

// Provider performs one transcription per call.
//
// TranscribeOnce blocks until a transcript is available, the provider fails,
// or ctx is cancelled. Cancellation surfaces as an [Error] of [KindAborted].
type Provider interface {
	TranscribeOnce(ctx context.Context) (Capture, error)
}

// ErrorKind categorizes capture failures. The closed set mirrors what
// retry UIs need to distinguish: permission problems are not fixed by
// retrying, silence and aborts are.
type ErrorKind string

const (
	KindNotAllowed ErrorKind = "not-allowed"
	KindNoSpeech   ErrorKind = "no-speech"
	KindAborted    ErrorKind = "aborted"
	KindNetwork    ErrorKind = "network"
)

// messages maps each kind to its user-facing explanation.
var messages = map[ErrorKind]string{
	KindNotAllowed: "Microphone access was denied. Check the capture device permissions and try again.",
	KindNoSpeech:   "No speech was detected. Please try speaking again.",
	KindAborted:    "Listening was stopped before a command was heard.",
	KindNetwork:    "The speech service could not be reached. Check the connection and try again.",
}

// Error is a categorized capture failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

// NewError wraps err as a capture error of the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture: %s", e.Kind)
	}
	return fmt.Sprintf("capture: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Message returns the human-readable, category-specific explanation.
func (e *Error) Message() string {
	if msg, ok := messages[e.Kind]; ok {
		return msg
	}
	return "Voice capture failed. Please try again."
}

// KindOf extracts the capture error kind from err, or "" when err is not a
// capture error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
