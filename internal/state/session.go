package state

import (
	"github.com/avkit/player-bridge/pkg/engine"
	"github.com/avkit/player-bridge/pkg/presentation"
)

// Lifecycle describes the command-visible lifecycle state of a session.
type Lifecycle int

const (
	// LifecycleCreated is the state of a session before any successful load.
	LifecycleCreated Lifecycle = iota

	// LifecycleLoaded is the state after at least one successful load.
	LifecycleLoaded

	// LifecyclePlaying is the state after a play command was accepted.
	LifecyclePlaying

	// LifecyclePaused is the state after a pause command was accepted.
	LifecyclePaused

	// LifecycleStopped is the state after a stop command was accepted.
	LifecycleStopped

	// LifecycleDisposed is terminal - the session id is invalid from this point on.
	LifecycleDisposed
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleCreated:
		return "created"
	case LifecycleLoaded:
		return "loaded"
	case LifecyclePlaying:
		return "playing"
	case LifecyclePaused:
		return "paused"
	case LifecycleStopped:
		return "stopped"
	case LifecycleDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Session represents one active player instance bound to a view slot.
// The player handle is exclusively owned by the session - it is created together with
// the session and released on destruction. All mutation happens on the bridge dispatch loop.
type Session struct {
	id             int
	Player         engine.Player
	View           presentation.View
	AutoFullscreen bool

	// ControlReady is set once at least one load succeeded - control commands
	// (play/pause/stop/seek) and queries route through the player only after that.
	ControlReady bool
	Lifecycle    Lifecycle

	Fullscreen bool
	// WasPlaying snapshots the playing status on fullscreen entry; valid only while Fullscreen.
	WasPlaying bool
	// OriginalPlacement records where the view sat before fullscreen entry; consumed on exit.
	OriginalPlacement *presentation.Placement

	// PendingStartTime arms a one-shot seek fired on the first ready transition after a load.
	PendingStartTime int64
	StartTimeArmed   bool

	// ResumePending is set while resume-after-fullscreen attempts are in flight.
	ResumePending bool

	cancels      []func()
	retryCancels []func()
}

// ID returns the registry-assigned session identifier.
func (s *Session) ID() int {
	return s.id
}

// AddCancel registers a cancellation hook (progress ticker, scheduled resume retries)
// invoked synchronously during destruction.
func (s *Session) AddCancel(cancel func()) {
	s.cancels = append(s.cancels, cancel)
}

// AddRetryCancel registers a cancellation hook for a pending resume retry.
// Retries are canceled separately from lifetime hooks - a state change that makes
// resumption moot must not touch the progress ticker or notification forwarding.
func (s *Session) AddRetryCancel(cancel func()) {
	s.retryCancels = append(s.retryCancels, cancel)
}

// CancelRetries runs and clears resume retry cancellation hooks.
func (s *Session) CancelRetries() {
	for _, cancel := range s.retryCancels {
		cancel()
	}

	s.retryCancels = nil
	s.ResumePending = false
}

// CancelScheduled runs and clears all registered cancellation hooks, retries included.
func (s *Session) CancelScheduled() {
	s.CancelRetries()

	for _, cancel := range s.cancels {
		cancel()
	}

	s.cancels = nil
}

func (s *Session) release() error {
	s.CancelScheduled()
	s.Lifecycle = LifecycleDisposed

	if s.Player == nil {
		return nil
	}

	err := s.Player.Release()
	s.ControlReady = false

	return err
}
