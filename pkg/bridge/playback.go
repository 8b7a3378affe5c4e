package bridge

import (
	"context"
	"time"

	"github.com/avkit/player-bridge/internal/state"
	"github.com/avkit/player-bridge/pkg/engine"
)

// LoadConfig holds optional per-load settings.
type LoadConfig struct {
	// StartTimeSeconds requests a one-shot seek to the offset, issued when the engine
	// reaches its ready state after this load - at most once, then disarmed.
	StartTimeSeconds int64
}

// LoadResult is the success result of a load command. Duration is expressed in whole
// seconds at the command boundary.
type LoadResult struct {
	Title           string `json:"title"`
	DurationSeconds int64  `json:"durationSeconds"`
	IsLive          bool   `json:"isLive"`
	LiveStartDate   string `json:"liveStartDate"`
}

// Load delegates an asynchronous media load to the engine. On success the session's
// control handle is bound and live metadata is applied to the presentation
// automatically. A load completing after the session was disposed is discarded.
func (s *Server) Load(id int, videoRef string, cfg LoadConfig) (LoadResult, error) {
	var result LoadResult
	var player engine.Player
	var cmdErr *CommandError

	err := s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			cmdErr = sessionNotFoundError(id)
			return
		}

		player = session.Player
	})
	if err != nil {
		return result, commandFailedError(CodeCommandFailed, err)
	}
	if cmdErr != nil {
		return result, cmdErr
	}

	if s.resolver != nil {
		resolved, resolveErr := s.resolver.Resolve(videoRef)
		if resolveErr != nil {
			return result, commandFailedError(CodeLoadError, resolveErr)
		}

		videoRef = resolved
	}

	// The delegated load blocks off-loop - notifications and other commands keep flowing
	// while the engine buffers media.
	ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
	defer cancel()

	media, loadErr := player.Load(ctx, videoRef, engine.LoadOptions{
		StartTime: time.Duration(cfg.StartTimeSeconds) * time.Second,
	})

	err = s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			// Session was destroyed while the load was in flight - the stale completion
			// must not act on a released handle.
			cmdErr = sessionNotFoundError(id)
			return
		}

		if loadErr != nil {
			cmdErr = commandFailedError(CodeLoadError, loadErr)
			return
		}

		session.ControlReady = true
		session.Lifecycle = state.LifecycleLoaded

		if media.Live {
			session.View.SetLive()
			if media.LiveStartDate != "" {
				session.View.ShowLiveStartDate(media.LiveStartDate)
			}
		}

		if cfg.StartTimeSeconds > 0 {
			session.PendingStartTime = cfg.StartTimeSeconds
			session.StartTimeArmed = true
		}

		result = LoadResult{
			Title:           media.Title,
			DurationSeconds: int64(media.Duration / time.Second),
			IsLive:          media.Live,
			LiveStartDate:   media.LiveStartDate,
		}

		s.outLog.Printf("loaded '%s' into session %d\n", videoRef, id)
	})
	if err != nil {
		return result, commandFailedError(CodeCommandFailed, err)
	}
	if cmdErr != nil {
		return result, cmdErr
	}

	return result, nil
}

// Play starts or resumes playback of the addressed session.
func (s *Server) Play(id int) error {
	return s.controlCommand(id, CodeCommandFailed, func(session *state.Session) error {
		err := session.Player.Play()
		if err == nil {
			session.Lifecycle = state.LifecyclePlaying
		}

		return err
	})
}

// Pause pauses playback of the addressed session. An explicit pause makes any pending
// resumption after a fullscreen transition moot, so its retries are canceled.
func (s *Server) Pause(id int) error {
	return s.controlCommand(id, CodeCommandFailed, func(session *state.Session) error {
		session.CancelRetries()

		err := session.Player.Pause()
		if err == nil {
			session.Lifecycle = state.LifecyclePaused
		}

		return err
	})
}

// Stop stops playback of the addressed session without disposing it. Like Pause, it
// cancels any pending resumption.
func (s *Server) Stop(id int) error {
	return s.controlCommand(id, CodeCommandFailed, func(session *state.Session) error {
		session.CancelRetries()

		err := session.Player.Stop()
		if err == nil {
			session.Lifecycle = state.LifecycleStopped
		}

		return err
	})
}

// Seek changes the playback position. The position is clamped to [0, duration] when the
// duration is known; with unknown duration the seek degrades to a no-op to position 0.
// Positions are whole seconds at the boundary, sub-second precision towards the engine.
func (s *Server) Seek(id int, positionSeconds int64) error {
	return s.controlCommand(id, CodeSeekFailed, func(session *state.Session) error {
		position := time.Duration(positionSeconds) * time.Second
		if position < 0 {
			position = 0
		}

		duration, err := session.Player.Duration()
		if err != nil {
			position = 0
		} else if position > duration {
			position = duration
		}

		return session.Player.SeekTo(position)
	})
}

// Position reports the playback position in whole seconds, 0 when the engine cannot
// supply a defined value.
func (s *Server) Position(id int) (int64, error) {
	return s.queryCommand(id, func(session *state.Session) (int64, error) {
		position, err := session.Player.Position()
		if err != nil {
			return 0, nil
		}

		return int64(position / time.Second), nil
	})
}

// Duration reports the media duration in whole seconds, 0 when unknown.
func (s *Server) Duration(id int) (int64, error) {
	return s.queryCommand(id, func(session *state.Session) (int64, error) {
		duration, err := session.Player.Duration()
		if err != nil {
			return 0, nil
		}

		return int64(duration / time.Second), nil
	})
}

// Rate reports the playback speed, defaulting to 1.0 when the engine cannot supply one.
func (s *Server) Rate(id int) (float64, error) {
	var rate float64
	var cmdErr *CommandError

	err := s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			cmdErr = sessionNotFoundError(id)
			return
		}

		if !session.ControlReady {
			cmdErr = sessionNotReadyError(id)
			return
		}

		rate, err = session.Player.Rate()
		if err != nil {
			rate = 1.0
		}
	})
	if err != nil {
		return 0, commandFailedError(CodeCommandFailed, err)
	}
	if cmdErr != nil {
		return 0, cmdErr
	}

	return rate, nil
}

// SetLiveState marks the session's presentation as live. Best-effort: absence of the
// session is silently ignored.
func (s *Server) SetLiveState(id int) error {
	s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			return
		}

		session.View.SetLive()
	})

	return nil
}

// ShowLiveStartDate annotates the session's live presentation with a start timestamp.
// Best-effort: absence of the session is silently ignored.
func (s *Server) ShowLiveStartDate(id int, startDate string) error {
	s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			return
		}

		session.View.ShowLiveStartDate(startDate)
	})

	return nil
}

// controlCommand runs fn against a session that must have its control handle bound.
// A delegated failure is wrapped with the provided error code, message passed through verbatim.
func (s *Server) controlCommand(id int, failureCode string, fn func(session *state.Session) error) error {
	var cmdErr *CommandError

	err := s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			cmdErr = sessionNotFoundError(id)
			return
		}

		if !session.ControlReady {
			cmdErr = sessionNotReadyError(id)
			return
		}

		err = fn(session)
		if err != nil {
			cmdErr = commandFailedError(failureCode, err)
		}
	})
	if err != nil {
		return commandFailedError(CodeCommandFailed, err)
	}
	if cmdErr != nil {
		return cmdErr
	}

	return nil
}

func (s *Server) queryCommand(id int, fn func(session *state.Session) (int64, error)) (int64, error) {
	var value int64
	var cmdErr *CommandError

	err := s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			cmdErr = sessionNotFoundError(id)
			return
		}

		if !session.ControlReady {
			cmdErr = sessionNotReadyError(id)
			return
		}

		value, err = fn(session)
		if err != nil {
			cmdErr = commandFailedError(CodeCommandFailed, err)
		}
	})
	if err != nil {
		return 0, commandFailedError(CodeCommandFailed, err)
	}
	if cmdErr != nil {
		return 0, cmdErr
	}

	return value, nil
}
