package bridge

import (
	"encoding/json"
	"time"

	"github.com/avkit/player-bridge/internal/state"
	"github.com/avkit/player-bridge/pkg/engine"
)

// EventKind discriminates the outward event vocabulary.
type EventKind string

const (
	// StatusChanged notifies about a change of the session's combined playback status.
	StatusChanged EventKind = "status-changed"

	// ProgressUpdate notifies about playback progress as a percentage of known duration.
	ProgressUpdate EventKind = "progress-update"

	// RateChanged notifies about a change of the playback speed.
	RateChanged EventKind = "rate-changed"

	// FullscreenTap notifies about the user activating the view's fullscreen affordance.
	// It carries the new intended fullscreen state and is advisory - the actual transition
	// is driven by the fullscreen controller.
	FullscreenTap EventKind = "fullscreen-tap"
)

// Status is the normalized playback status vocabulary.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusBuffering Status = "buffering"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusEnded     Status = "ended"
	StatusUnknown   Status = "unknown"
)

// Event is a single entry of the outward event stream. All kinds multiplex onto one
// stream - consumers demultiplex by the carried session id.
type Event struct {
	Kind      EventKind
	SessionID int

	Status          Status
	ProgressPercent float64
	Rate            float64
	Fullscreen      bool
}

type statusPayloadJSON struct {
	Status Status `json:"status"`
}

type progressPayloadJSON struct {
	ProgressPercent float64 `json:"progressPercent"`
}

type ratePayloadJSON struct {
	Rate float64 `json:"rate"`
}

type fullscreenPayloadJSON struct {
	Fullscreen bool `json:"fullscreen"`
}

type eventJSON struct {
	Kind      EventKind   `json:"kind"`
	SessionID int         `json:"sessionId"`
	Payload   interface{} `json:"payload"`
}

// MarshalJSON satisfies json.Marshaler with the {kind, sessionId, payload} wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Kind:      e.Kind,
		SessionID: e.SessionID,
	}

	switch e.Kind {
	case StatusChanged:
		out.Payload = statusPayloadJSON{Status: e.Status}
	case ProgressUpdate:
		out.Payload = progressPayloadJSON{ProgressPercent: e.ProgressPercent}
	case RateChanged:
		out.Payload = ratePayloadJSON{Rate: e.Rate}
	case FullscreenTap:
		out.Payload = fullscreenPayloadJSON{Fullscreen: e.Fullscreen}
	}

	return json.Marshal(out)
}

// statusFromNotification derives the normalized status from the engine's combined
// playback state and play-when-ready signals. The playing/paused distinction is only
// meaningful while the state is ready.
func statusFromNotification(notification engine.Notification) Status {
	switch notification.State {
	case engine.StateIdle:
		return StatusIdle
	case engine.StateBuffering:
		return StatusBuffering
	case engine.StateReady:
		if notification.PlayWhenReady {
			return StatusPlaying
		}

		return StatusPaused
	case engine.StateEnded:
		return StatusEnded
	default:
		return StatusUnknown
	}
}

func (s *Server) emit(event Event) {
	s.events.Send(event)
}

// handleNotification processes one engine notification on the dispatch loop.
// Notifications for sessions destroyed in the meantime are discarded.
func (s *Server) handleNotification(id int, notification engine.Notification) {
	session, err := s.sessions.ByID(id)
	if err != nil {
		return
	}

	switch notification.Kind {
	case engine.StateChange:
		s.handleStateChange(session, notification)
	case engine.RateChange:
		s.emit(Event{Kind: RateChanged, SessionID: id, Rate: notification.Rate})
	case engine.FirstFrame:
		if session.ResumePending {
			err := session.Player.Play()
			if err != nil {
				s.errLog.Printf("resume on first frame failed for session %d: %s\n", id, err)
			}
		}
	}
}

func (s *Server) handleStateChange(session *state.Session, notification engine.Notification) {
	status := statusFromNotification(notification)

	if notification.State == engine.StateReady && session.StartTimeArmed {
		// One-shot start offset seek, fired on the first ready transition after a load.
		session.StartTimeArmed = false
		err := session.Player.SeekTo(time.Duration(session.PendingStartTime) * time.Second)
		if err != nil {
			s.errLog.Printf("start time seek failed for session %d: %s\n", session.ID(), err)
		}
	}

	if status == StatusPlaying && session.ResumePending {
		session.CancelRetries()
	}

	s.emit(Event{Kind: StatusChanged, SessionID: session.ID(), Status: status})
}

// handleProgressTick recomputes progress for one session. Sessions with unknown or
// non-positive duration are skipped each tick.
func (s *Server) handleProgressTick(id int) {
	session, err := s.sessions.ByID(id)
	if err != nil || !session.ControlReady {
		return
	}

	duration, err := session.Player.Duration()
	if err != nil || duration <= 0 {
		return
	}

	position, err := session.Player.Position()
	if err != nil {
		return
	}

	percent := float64(position) / float64(duration) * 100
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	s.emit(Event{Kind: ProgressUpdate, SessionID: id, ProgressPercent: percent})
}

func (s *Server) startProgressTicker(session *state.Session) {
	id := session.ID()
	ticker := time.NewTicker(s.progressInterval)
	done := make(chan struct{})

	session.AddCancel(func() {
		ticker.Stop()
		close(done)
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.post(func() { s.handleProgressTick(id) })
			case <-done:
				return
			}
		}
	}()
}

func (s *Server) forwardNotifications(session *state.Session) error {
	id := session.ID()
	notifications := make(chan engine.Notification)

	subscriptionID, err := session.Player.Subscribe(notifications)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	unsubscribed := make(chan struct{})

	// The player keeps sending until Unsubscribe returns and may hold internal locks while
	// blocked on the channel, so the forwarder must keep consuming notifications throughout
	// the unsubscription. Exiting on the done signal instead would wedge teardown against an
	// in-flight notification.
	session.AddCancel(func() {
		close(done)

		err := session.Player.Unsubscribe(subscriptionID)
		if err != nil {
			s.errLog.Printf("error while unsubscribing notifications of session %d: %s\n", id, err)
		}

		close(unsubscribed)
	})

	go func() {
		for {
			select {
			case notification := <-notifications:
				select {
				case s.ops <- func() { s.handleNotification(id, notification) }:
				case <-done:
					// Teardown in progress - discard.
				}
			case <-unsubscribed:
				return
			}
		}
	}()

	return nil
}
