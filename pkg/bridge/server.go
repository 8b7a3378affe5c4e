package bridge

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/avkit/player-bridge/internal/common"
	"github.com/avkit/player-bridge/internal/state"
	"github.com/avkit/player-bridge/pkg/engine"
	"github.com/avkit/player-bridge/pkg/presentation"
)

const (
	logPrefix = "bridge.Server#"

	defaultProgressInterval = 1 * time.Second
	defaultExitResumeDelay  = 200 * time.Millisecond
	defaultLoadTimeout      = 30 * time.Second
)

var defaultResumeRetryDelays = []time.Duration{
	75 * time.Millisecond,
	225 * time.Millisecond,
	450 * time.Millisecond,
}

// Resolver maps a video reference onto a URI the engine can load.
type Resolver interface {
	Resolve(videoRef string) (string, error)
}

// Config controls behaviour of the bridge server.
type Config struct {
	Engine    engine.Engine
	Host      presentation.Host
	ErrWriter io.Writer
	OutWriter io.Writer

	// Resolver translates video references before they reach the engine.
	// When nil, references are passed to the engine verbatim.
	Resolver Resolver

	// ProgressInterval is the progress-update recomputation interval. Defaults to one second.
	ProgressInterval time.Duration

	// ResumeRetryDelays is the bounded schedule of play attempts after fullscreen entry.
	ResumeRetryDelays []time.Duration

	// ExitResumeDelay is the settle delay before playback resumption on fullscreen exit.
	ExitResumeDelay time.Duration

	// LoadTimeout bounds a single delegated media load.
	LoadTimeout time.Duration
}

// Server owns the session registry and serializes all commands and engine callbacks
// onto a single dispatch loop. Command methods are safe for concurrent use - each one
// is marshaled onto the loop and processed one at a time, so registry and fullscreen
// state never require locking.
type Server struct {
	engine   engine.Engine
	host     presentation.Host
	resolver Resolver
	errLog   *log.Logger
	outLog   *log.Logger

	sessions            *state.Sessions
	events              *common.Broadcaster[Event]
	fullscreenSessionID int

	progressInterval  time.Duration
	resumeRetryDelays []time.Duration
	exitResumeDelay   time.Duration
	loadTimeout       time.Duration

	ops  chan func()
	quit chan struct{}
}

// NewServer prepares a bridge server and starts its dispatch loop.
func NewServer(cfg Config) *Server {
	if cfg.OutWriter == nil {
		cfg.OutWriter = os.Stdout
	}
	if cfg.ErrWriter == nil {
		cfg.ErrWriter = os.Stderr
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.ResumeRetryDelays == nil {
		cfg.ResumeRetryDelays = defaultResumeRetryDelays
	}
	if cfg.ExitResumeDelay == 0 {
		cfg.ExitResumeDelay = defaultExitResumeDelay
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}

	sessions := state.NewSessions(state.SessionsConfig{
		ErrWriter: cfg.ErrWriter,
		OutWriter: cfg.OutWriter,
	})

	events := common.NewBroadcaster[Event]()
	events.Broadcast()

	server := &Server{
		engine:            cfg.Engine,
		host:              cfg.Host,
		resolver:          cfg.Resolver,
		errLog:            log.New(cfg.ErrWriter, logPrefix, log.LstdFlags),
		outLog:            log.New(cfg.OutWriter, logPrefix, log.LstdFlags),
		sessions:          sessions,
		events:            events,
		progressInterval:  cfg.ProgressInterval,
		resumeRetryDelays: cfg.ResumeRetryDelays,
		exitResumeDelay:   cfg.ExitResumeDelay,
		loadTimeout:       cfg.LoadTimeout,
		ops:               make(chan func()),
		quit:              make(chan struct{}),
	}

	go server.dispatchLoop()

	return server
}

// SubscribeToEvents registers a subscriber of the outward event stream.
func (s *Server) SubscribeToEvents(sub common.Subscriber[Event]) {
	s.events.Subscribe(sub)
}

// Close tears down every session and stops the dispatch loop.
func (s *Server) Close() {
	err := s.do(func() {
		s.teardownAllSessions()
	})
	if err != nil {
		return
	}

	close(s.quit)
}

func (s *Server) dispatchLoop() {
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			return
		}
	}
}

// do marshals fn onto the dispatch loop and waits for its completion.
func (s *Server) do(fn func()) error {
	done := make(chan struct{})

	select {
	case s.ops <- func() {
		fn()
		close(done)
	}:
	case <-s.quit:
		return ErrServerClosed
	}

	<-done
	return nil
}

// post marshals fn onto the dispatch loop without waiting. Used by timers and
// notification forwarders - ops posted after Close are dropped.
func (s *Server) post(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.quit:
	}
}

// schedule arranges for fn to run on the dispatch loop after the delay.
// The returned cancel stops the timer; a cancel racing the timer firing is harmless
// since fn re-checks its preconditions on the loop.
func (s *Server) schedule(delay time.Duration, fn func()) (cancel func()) {
	timer := time.AfterFunc(delay, func() {
		s.post(fn)
	})

	return func() { timer.Stop() }
}
