package engine

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrValueUnavailable informs that the engine cannot supply a defined value for a queried property
	// (eg. duration of a live stream or position before any media was loaded).
	ErrValueUnavailable = errors.New("engine cannot supply a defined value for the queried property")

	// ErrPlayerReleased informs about an operation being attempted on an already released player.
	ErrPlayerReleased = errors.New("player has already been released")
)

// PlayerOptions control creation of a player instance.
// They map directly onto the presentation chrome the engine renders around the video.
type PlayerOptions struct {
	Referer              string
	ShowFullscreenButton bool
	ShowOptionsButton    bool
	ShowSubtitlesButton  bool
	ShowSeekBar          bool
	ShowDuration         bool
}

// LoadOptions control a single media load.
type LoadOptions struct {
	// StartTime requests a one-shot seek to the offset once the engine reports readiness.
	StartTime time.Duration
}

// Media describes the outcome of a successful load.
type Media struct {
	Title         string
	Duration      time.Duration
	Live          bool
	LiveStartDate string
}

// Player is a single playback instance of the engine.
// Load must be called successfully at least once before control operations
// (Play, Pause, Stop, SeekTo) are meaningful; queries before that report ErrValueUnavailable.
type Player interface {
	// Configure applies presentation options to an already created player.
	Configure(opts PlayerOptions) error

	Load(ctx context.Context, videoRef string, opts LoadOptions) (Media, error)
	Play() error
	Pause() error
	Stop() error
	SeekTo(position time.Duration) error

	Position() (time.Duration, error)
	Duration() (time.Duration, error)
	Rate() (float64, error)
	Playing() (bool, error)

	// Subscribe instructs the player to send its notifications on the out channel.
	// Returned id is used as a key when unsubscribing. The channel is never closed by
	// the player to enable aggregation from multiple players onto one channel.
	Subscribe(out chan<- Notification) (int, error)
	Unsubscribe(id int) error

	Release() error
}

// Engine creates player instances. It stands for the delegated media engine -
// decoding, rendering and license acquisition happen behind this interface.
type Engine interface {
	NewPlayer(opts PlayerOptions) (Player, error)
}
