package engine

// PlaybackState describes the coarse playback state reported by the engine.
type PlaybackState int

const (
	// StateIdle indicates a player without media or with playback torn down.
	StateIdle PlaybackState = iota

	// StateBuffering indicates the player is waiting for media data before playback can continue.
	StateBuffering

	// StateReady indicates the player can render - whether it does depends on the play-when-ready signal.
	StateReady

	// StateEnded indicates playback reached the end of the media.
	StateEnded
)

// NotificationKind discriminates payloads of Notification.
type NotificationKind string

const (
	// StateChange notifies about a change of the combined playback state or the play-when-ready signal.
	StateChange NotificationKind = "state-change"

	// RateChange notifies about a change of the playback speed parameter.
	RateChange NotificationKind = "rate-change"

	// FirstFrame notifies about the earliest post-render signal after a surface (re)attach.
	FirstFrame NotificationKind = "first-frame"
)

// Notification is an engine-originated event. State and PlayWhenReady are valid for
// StateChange, Rate is valid for RateChange.
type Notification struct {
	Kind          NotificationKind
	State         PlaybackState
	PlayWhenReady bool
	Rate          float64
}
