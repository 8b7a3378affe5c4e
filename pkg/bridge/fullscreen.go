package bridge

import (
	"github.com/avkit/player-bridge/internal/state"
)

// SetFullscreen toggles the addressed session between inline and exclusive fullscreen
// presentation, preserving playback continuity and view placement. At most one session
// holds the fullscreen presentation at any instant - the exclusive surface is a
// singleton resource and must be fully torn down before another session may acquire it.
func (s *Server) SetFullscreen(id int, fullscreen bool) error {
	var cmdErr *CommandError

	err := s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			cmdErr = sessionNotFoundError(id)
			return
		}

		if fullscreen {
			cmdErr = s.enterFullscreen(session)
		} else {
			cmdErr = s.leaveFullscreen(session)
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

func (s *Server) enterFullscreen(session *state.Session) *CommandError {
	id := session.ID()
	if session.Fullscreen {
		return nil
	}

	if s.fullscreenSessionID != 0 && s.fullscreenSessionID != id {
		return presentationUnavailableError("exclusive fullscreen surface is held by another session")
	}

	surface, err := s.host.ExclusiveSurface()
	if err != nil {
		return presentationUnavailableError(err.Error())
	}

	wasPlaying, err := session.Player.Playing()
	if err != nil {
		wasPlaying = false
	}
	session.WasPlaying = wasPlaying

	if session.OriginalPlacement == nil {
		placement, ok := session.View.Placement()
		if ok {
			session.OriginalPlacement = &placement
		}
	}

	err = s.host.SetImmersive(true)
	if err != nil {
		s.errLog.Printf("could not enter immersive mode for session %d: %s\n", id, err)
	}

	session.View.Detach()
	surface.Append(session.View)
	session.View.SetFullscreen(true)

	session.Fullscreen = true
	s.fullscreenSessionID = id
	s.outLog.Printf("session %d entered fullscreen\n", id)

	if session.WasPlaying {
		s.armResume(session)
	}

	return nil
}

func (s *Server) leaveFullscreen(session *state.Session) *CommandError {
	id := session.ID()
	if !session.Fullscreen {
		return nil
	}

	session.CancelRetries()
	session.View.Detach()

	placement := session.OriginalPlacement
	if placement != nil {
		// Reinsert at the recorded index when it still fits the container, append otherwise.
		if placement.Index >= 0 && placement.Index <= placement.Container.Count() {
			placement.Container.InsertAt(session.View, placement.Index)
		} else {
			placement.Container.Append(session.View)
		}
	}
	session.OriginalPlacement = nil

	session.View.SetFullscreen(false)
	session.Fullscreen = false
	s.fullscreenSessionID = 0
	s.releaseExclusivePresentation()
	s.outLog.Printf("session %d left fullscreen\n", id)

	if session.WasPlaying {
		session.WasPlaying = false
		session.ResumePending = true
		cancel := s.schedule(s.exitResumeDelay, func() { s.attemptResume(id) })
		session.AddRetryCancel(cancel)
	}

	return nil
}

// armResume schedules playback resumption after fullscreen entry. Surface re-attachment
// can race the engine's renderer re-initialization, so the first play attempt rides the
// engine's earliest post-render signal and a bounded schedule of retries backs it up
// until the first successful resume is observed or the budget is exhausted.
func (s *Server) armResume(session *state.Session) {
	id := session.ID()
	session.ResumePending = true

	for _, delay := range s.resumeRetryDelays {
		cancel := s.schedule(delay, func() { s.attemptResume(id) })
		session.AddRetryCancel(cancel)
	}
}

func (s *Server) attemptResume(id int) {
	session, err := s.sessions.ByID(id)
	if err != nil || !session.ResumePending {
		return
	}

	err = session.Player.Play()
	if err != nil {
		s.errLog.Printf("resume attempt failed for session %d: %s\n", id, err)
	}
}

// handleFullscreenTap processes the view's fullscreen affordance activation. The
// emitted event carries the new intended state and is advisory - the transition itself
// happens here only for sessions configured for automatic fullscreen handling.
func (s *Server) handleFullscreenTap(id int) {
	session, err := s.sessions.ByID(id)
	if err != nil {
		return
	}

	intended := !session.Fullscreen
	s.emit(Event{Kind: FullscreenTap, SessionID: id, Fullscreen: intended})

	if !session.AutoFullscreen {
		return
	}

	var cmdErr *CommandError
	if intended {
		cmdErr = s.enterFullscreen(session)
	} else {
		cmdErr = s.leaveFullscreen(session)
	}
	if cmdErr != nil {
		s.errLog.Printf("fullscreen toggle failed for session %d: %s\n", id, cmdErr)
	}
}
