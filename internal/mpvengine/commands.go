package mpvengine

const (
	getPropertyCommand     = "get_property"
	loadfileCommand        = "loadfile"
	observePropertyCommand = "observe_property"
	setPropertyCommand     = "set_property"
	stopCommand            = "stop"
)

const (
	// DurationProperty is used for reading the duration of the loaded media in seconds.
	DurationProperty = "duration"

	// EofReachedProperty informs whether playback reached the end of the media.
	EofReachedProperty = "eof-reached"

	// MediaTitleProperty is used for reading the title of the loaded media.
	MediaTitleProperty = "media-title"

	// OscProperty toggles the on-screen controller rendered over the video.
	OscProperty = "osc"

	// PausedForCacheProperty informs whether playback stalled waiting for media data.
	PausedForCacheProperty = "paused-for-cache"

	// PauseProperty is used for pausing or unpausing playback.
	PauseProperty = "pause"

	// PlaybackTimeProperty is used for reading and setting current time of playback in seconds.
	PlaybackTimeProperty = "playback-time"

	// RefererProperty sets the Referer header supplied with network media requests.
	RefererProperty = "referrer"

	// SpeedProperty is used for reading and setting the playback speed multiplier.
	SpeedProperty = "speed"
)

const (
	// FileLoadedEvent is emitted by mpv after a file finished loading and decoding started.
	FileLoadedEvent = "file-loaded"

	// EndFileEvent is emitted by mpv when playback of the current file terminates.
	EndFileEvent = "end-file"

	// PlaybackRestartEvent is emitted by mpv when playback restarts after a seek or reattach.
	PlaybackRestartEvent = "playback-restart"
)

const (
	// NoValue is equivalent to false (where required by property).
	NoValue = "no"
	// ReplaceValue specifies loadfile command playback replacement.
	ReplaceValue = "replace"
	// YesValue is equivalent to true (where required by property).
	YesValue = "yes"
)

// command holds the name and value of the command to be dispatched.
// It's a generic struct that is supposed to be properly constructed by a function.
type command struct {
	name     string
	elements []interface{}
}

// JSONIPCFormat returns the representation expected by mpv in the JSON payload.
func (cmd command) JSONIPCFormat() []interface{} {
	return append([]interface{}{cmd.name}, cmd.elements...)
}
