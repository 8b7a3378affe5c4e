package bridge

import (
	"github.com/avkit/player-bridge/internal/state"
	"github.com/avkit/player-bridge/pkg/engine"
	"github.com/avkit/player-bridge/pkg/presentation"
)

// SessionConfig holds per-session options chosen at creation time.
type SessionConfig struct {
	Referer              string
	ShowTitle            bool
	ShowAuthor           bool
	ShowFullscreenButton bool
	ShowOptionsButton    bool
	ShowSubtitlesButton  bool
	ShowSeekBar          bool
	ShowDuration         bool

	// AutoFullscreen makes the fullscreen controller toggle presentation itself when the
	// view's fullscreen affordance is tapped. When false, the tap only emits an advisory
	// fullscreen-tap event and the external listener is expected to reply with an
	// explicit set-fullscreen command.
	AutoFullscreen bool
}

// DefaultSessionConfig returns the session options applied when a caller provides none.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ShowFullscreenButton: true,
		ShowSeekBar:          true,
		ShowDuration:         true,
		AutoFullscreen:       true,
	}
}

// CreateSession force-tears-down all prior sessions, then creates a new session with a
// freshly created player handle and view, returning the allocated session id.
// Only one logical player surface is active at creation time.
func (s *Server) CreateSession(cfg SessionConfig) (int, error) {
	var id int
	var cmdErr *CommandError

	err := s.do(func() {
		s.teardownAllSessions()
		id, cmdErr = s.createSession(cfg)
	})
	if err != nil {
		return 0, commandFailedError(CodeCommandFailed, err)
	}
	if cmdErr != nil {
		return 0, cmdErr
	}

	return id, nil
}

func (s *Server) createSession(cfg SessionConfig) (int, *CommandError) {
	session := s.sessions.Create()
	id := session.ID()
	session.AutoFullscreen = cfg.AutoFullscreen

	player, err := s.engine.NewPlayer(engine.PlayerOptions{
		Referer:              cfg.Referer,
		ShowFullscreenButton: cfg.ShowFullscreenButton,
		ShowOptionsButton:    cfg.ShowOptionsButton,
		ShowSubtitlesButton:  cfg.ShowSubtitlesButton,
		ShowSeekBar:          cfg.ShowSeekBar,
		ShowDuration:         cfg.ShowDuration,
	})
	if err != nil {
		s.sessions.Destroy(id)
		return 0, commandFailedError(CodeInitError, err)
	}
	session.Player = player

	view, err := s.host.CreateView(presentation.ViewOptions{
		ShowTitle:  cfg.ShowTitle,
		ShowAuthor: cfg.ShowAuthor,
	})
	if err != nil {
		s.sessions.Destroy(id)
		return 0, commandFailedError(CodeInitError, err)
	}
	session.View = view

	view.OnFullscreenTap(func() {
		s.post(func() { s.handleFullscreenTap(id) })
	})

	err = s.forwardNotifications(session)
	if err != nil {
		s.destroySession(session)
		return 0, commandFailedError(CodeInitError, err)
	}

	s.startProgressTicker(session)

	s.outLog.Printf("created session %d\n", id)
	return id, nil
}

// Initialize applies configuration to an already created session's player.
func (s *Server) Initialize(id int, cfg SessionConfig) error {
	var cmdErr *CommandError

	err := s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			cmdErr = sessionNotFoundError(id)
			return
		}

		session.AutoFullscreen = cfg.AutoFullscreen
		err = session.Player.Configure(engine.PlayerOptions{
			Referer:              cfg.Referer,
			ShowFullscreenButton: cfg.ShowFullscreenButton,
			ShowOptionsButton:    cfg.ShowOptionsButton,
			ShowSubtitlesButton:  cfg.ShowSubtitlesButton,
			ShowSeekBar:          cfg.ShowSeekBar,
			ShowDuration:         cfg.ShowDuration,
		})
		if err != nil {
			cmdErr = commandFailedError(CodeInitError, err)
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

// Dispose tears down exactly one session. It always reports success, even for an id
// that does not exist. The session's progress ticker and notification subscription are
// canceled synchronously before Dispose returns.
func (s *Server) Dispose(id int) error {
	s.do(func() {
		session, err := s.sessions.ByID(id)
		if err != nil {
			return
		}

		s.destroySession(session)
	})

	return nil
}

// destroySession releases a single session's view and fullscreen bookkeeping along with
// the registry release discipline. Runs on the dispatch loop.
func (s *Server) destroySession(session *state.Session) {
	id := session.ID()

	if s.fullscreenSessionID == id {
		s.releaseExclusivePresentation()
		s.fullscreenSessionID = 0
	}

	if session.View != nil {
		err := s.host.ReleaseView(session.View)
		if err != nil {
			s.errLog.Printf("error while releasing view of session %d: %s\n", id, err)
		}
	}

	s.sessions.Destroy(id)
}

// teardownAllSessions applies the destroy discipline to every live session.
// Failures during release are logged, never propagated - teardown must not fail.
func (s *Server) teardownAllSessions() {
	for _, session := range s.sessions.All() {
		s.destroySession(session)
	}
}

func (s *Server) releaseExclusivePresentation() {
	err := s.host.ReleaseExclusiveSurface()
	if err != nil {
		s.errLog.Printf("error while releasing exclusive surface: %s\n", err)
	}

	err = s.host.SetImmersive(false)
	if err != nil {
		s.errLog.Printf("error while leaving immersive mode: %s\n", err)
	}
}
