// Package lifecycle drives one listen → confirm → execute cycle at a time.
//
// The [Lifecycle] is a mutex-guarded state machine owning at most one
// in-flight [command.ParsedCommand]. Capture is the only blocking boundary;
// classification, extraction, and fusion run synchronously once a transcript
// arrives. Capture and execution failures become state transitions with a
// retained human-readable message, never errors crossing the UI boundary.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/parse"
	"github.com/parlando-app/parlando/pkg/capture"
)

// State is the current stage of a listening cycle.
type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
	StateConfirm   State = "confirm"
	StateExecuting State = "executing"
	StateSuccess   State = "success"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

// ErrNoPendingCommand is returned by Confirm when no parsed command awaits
// confirmation.
var ErrNoPendingCommand = errors.New("lifecycle: no pending command")

// Executor runs a confirmed command. Implemented by internal/executor.
type Executor interface {
	Execute(ctx context.Context, userID string, cmd command.ParsedCommand) command.ExecutionResult
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithUserID sets the user attributed to executed commands.
func WithUserID(id string) Option {
	return func(l *Lifecycle) { l.userID = id }
}

// WithTransitionHook registers a callback invoked synchronously on every
// state transition. Used to feed metrics. The hook runs while the internal
// lock is held and must not call back into the Lifecycle.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(l *Lifecycle) { l.onTransition = fn }
}

// Lifecycle is the per-user command cycle state machine. All methods are
// safe for concurrent use.
type Lifecycle struct {
	provider capture.Provider
	parser   *parse.Parser
	exec     Executor

	userID       string
	onTransition func(from, to State)

	mu            sync.Mutex
	state         State
	pending       *command.ParsedCommand
	lastError     string
	captureCancel context.CancelFunc
	captureSeq    int
}

// New returns a Lifecycle in the idle state.
func New(provider capture.Provider, parser *parse.Parser, exec Executor, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		provider: provider,
		parser:   parser,
		exec:     exec,
		userID:   "local",
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Pending returns the command awaiting confirmation or retry, if any.
func (l *Lifecycle) Pending() (command.ParsedCommand, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return command.ParsedCommand{}, false
	}
	return *l.pending, true
}

// LastError returns the human-readable message of the most recent capture or
// execution failure. Empty outside the error state.
func (l *Lifecycle) LastError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

// transition moves to next and fires the hook. Callers hold l.mu.
func (l *Lifecycle) transition(next State) {
	from := l.state
	l.state = next
	if l.onTransition != nil && from != next {
		l.onTransition(from, next)
	}
}

// Listen starts a fresh capture cycle. Any prior capture is aborted and any
// pending command discarded first. On success the parsed command awaits
// confirmation; capture failures move the cycle to the error state with a
// categorized message, and the capture error is returned for logging.
func (l *Lifecycle) Listen(ctx context.Context) (command.ParsedCommand, error) {
	l.mu.Lock()
	if l.captureCancel != nil {
		l.captureCancel()
		l.captureCancel = nil
	}
	l.pending = nil
	l.lastError = ""
	l.captureSeq++
	seq := l.captureSeq

	captureCtx, cancel := context.WithCancel(ctx)
	l.captureCancel = cancel
	l.transition(StateListening)
	l.mu.Unlock()

	heard, err := l.provider.TranscribeOnce(captureCtx)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.captureSeq != seq {
		// A newer Listen or a Cancel superseded this capture.
		return command.ParsedCommand{}, capture.NewError(capture.KindAborted, nil)
	}
	l.captureCancel = nil

	if err != nil {
		l.lastError = captureMessage(err)
		l.transition(StateError)
		slog.Warn("lifecycle: capture failed", "kind", capture.KindOf(err), "err", err)
		return command.ParsedCommand{}, err
	}

	cmd := l.parser.Parse(heard.Transcript, heard.Confidence)
	l.pending = &cmd
	l.transition(StateConfirm)
	slog.Debug("lifecycle: command parsed",
		"intent", cmd.Intent.Type,
		"entities", len(cmd.Entities),
		"overall", cmd.Overall,
	)
	return cmd, nil
}

// Confirm executes the pending command. Allowed from the confirm state and
// from the error state after an execution failure, where the retained
// command is retried without re-speaking. Execution failures keep the
// command pending and move the cycle to the error state.
func (l *Lifecycle) Confirm(ctx context.Context) (command.ExecutionResult, error) {
	l.mu.Lock()
	if l.pending == nil || (l.state != StateConfirm && l.state != StateError) {
		l.mu.Unlock()
		return command.ExecutionResult{}, ErrNoPendingCommand
	}
	cmd := *l.pending
	userID := l.userID
	l.transition(StateExecuting)
	l.mu.Unlock()

	res := l.exec.Execute(ctx, userID, cmd)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateExecuting {
		// Cancelled mid-execution; the cycle outcome stands as cancelled.
		return res, nil
	}
	if res.Success {
		l.pending = nil
		l.lastError = ""
		l.transition(StateSuccess)
	} else {
		// Keep the command so the user can retry without re-speaking.
		l.lastError = res.Err
		l.transition(StateError)
	}
	return res, nil
}

// Retry discards the pending command and starts a fresh capture.
func (l *Lifecycle) Retry(ctx context.Context) (command.ParsedCommand, error) {
	return l.Listen(ctx)
}

// Cancel aborts the cycle: any active capture is stopped, the pending
// command discarded, and the state becomes cancelled. Calling Cancel in a
// terminal state is a no-op.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateSuccess || l.state == StateCancelled {
		return
	}
	if l.captureCancel != nil {
		l.captureCancel()
		l.captureCancel = nil
	}
	l.captureSeq++
	l.pending = nil
	l.lastError = ""
	l.transition(StateCancelled)
}

// Reset returns a terminal cycle to idle so a new one can begin. No-op in
// non-terminal states.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateSuccess, StateCancelled, StateError:
		l.pending = nil
		l.lastError = ""
		l.transition(StateIdle)
	}
}

// captureMessage renders err as a human-readable capture failure message.
func captureMessage(err error) string {
	var ce *capture.Error
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return "Voice capture failed. Please try again."
}
