package mpvengine

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/avkit/player-bridge/pkg/engine"
)

const (
	mpvName           = "mpv"
	idleArg           = "--idle"
	noTerminalArg     = "--no-terminal"
	inputIpcServerArg = "--input-ipc-server"

	engineLogPrefix = "mpvengine.Engine#"

	defaultConnectionTimeout = 15 * time.Second
)

// Config controls behaviour of the engine and every player it creates.
type Config struct {
	// SocketDir is a directory in which per-player IPC sockets are created.
	SocketDir string
	// SocketConnectionTimeout bounds waiting for a freshly spawned mpv process
	// to start listening on its socket. Zero value selects a sane default.
	SocketConnectionTimeout time.Duration
	ErrWriter               io.Writer
	OutWriter               io.Writer
}

// Engine creates mpv-backed players. Every player owns a separate mpv process
// controlled through its own unix socket, so releasing one player never
// disturbs playback of another.
type Engine struct {
	connectionTimeout time.Duration
	errLog            *log.Logger
	errWriter         io.Writer
	outLog            *log.Logger
	outWriter         io.Writer
	socketDir         string
}

// NewEngine prepares an engine spawning mpv processes on demand.
func NewEngine(cfg Config) *Engine {
	connectionTimeout := cfg.SocketConnectionTimeout
	if connectionTimeout <= 0 {
		connectionTimeout = defaultConnectionTimeout
	}

	return &Engine{
		connectionTimeout: connectionTimeout,
		errLog:            log.New(cfg.ErrWriter, engineLogPrefix, log.LstdFlags),
		errWriter:         cfg.ErrWriter,
		outLog:            log.New(cfg.OutWriter, engineLogPrefix, log.LstdFlags),
		outWriter:         cfg.OutWriter,
		socketDir:         cfg.SocketDir,
	}
}

// NewPlayer spawns a new mpv process and connects a player to it.
func (e *Engine) NewPlayer(opts engine.PlayerOptions) (engine.Player, error) {
	socketPath := filepath.Join(e.socketDir, fmt.Sprintf("mpv-%s.sock", uuid.NewString()))

	cmd := exec.Command(mpvName, idleArg, noTerminalArg, fmt.Sprintf("%s=%s", inputIpcServerArg, socketPath))
	err := cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("could not start mpv process: %w", err)
	}
	e.outLog.Printf("mpv process started with socket at '%s'\n", socketPath)

	d := newDispatcher(dispatcherConfig{
		connectionTimeout: e.connectionTimeout,
		errWriter:         e.errWriter,
		socketPath:        socketPath,
		outWriter:         e.outWriter,
	})

	err = d.Connect(context.Background())
	if err != nil {
		cmd.Process.Kill()

		return nil, fmt.Errorf("could not connect to mpv socket: %w", err)
	}

	player, err := newPlayer(playerConfig{
		dispatcher: d,
		errWriter:  e.errWriter,
		outWriter:  e.outWriter,
		process:    cmd,
	})
	if err != nil {
		d.Close()
		cmd.Process.Kill()

		return nil, fmt.Errorf("could not prepare mpv player: %w", err)
	}

	err = player.Configure(opts)
	if err != nil {
		player.Release()

		return nil, fmt.Errorf("could not apply player options: %w", err)
	}

	return player, nil
}
