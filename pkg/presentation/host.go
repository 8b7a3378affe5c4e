package presentation

import "errors"

var (
	// ErrNoExclusiveSurface informs that the host cannot supply the exclusive fullscreen surface
	// (eg. no owning window/activity is attached at the moment).
	ErrNoExclusiveSurface = errors.New("host cannot supply the exclusive fullscreen surface")

	// ErrViewDetached informs about a placement operation on a view that sits in no container.
	ErrViewDetached = errors.New("view is not attached to any container")
)

// ViewOptions control construction of a session's view.
// Title and author visibility are explicit options honored by the host -
// the bridge never reaches into the view's internals to hide them.
type ViewOptions struct {
	ShowTitle  bool
	ShowAuthor bool
}

// Placement records where a view sits: its container and the insertion index within it.
type Placement struct {
	Container Container
	Index     int
}

// Container is an ordered collection of views the host can place a session's view into.
type Container interface {
	Append(view View)
	InsertAt(view View, index int)
	Remove(view View)
	IndexOf(view View) int
	Count() int
}

// View is the region a session's video renders into.
type View interface {
	// Placement reports the view's current container and index; ok is false when detached.
	Placement() (Placement, bool)
	Detach() error

	SetFullscreen(enabled bool)
	SetLive()
	ShowLiveStartDate(startDate string)

	// OnFullscreenTap registers the callback fired when the view's fullscreen affordance
	// is activated by the user. Subsequent calls replace the callback.
	OnFullscreenTap(cb func())
}

// Host is the view-tree collaborator. It owns containers and windowing -
// orientation changes and system UI flags happen behind SetImmersive.
type Host interface {
	CreateView(opts ViewOptions) (View, error)
	ReleaseView(view View) error

	// ExclusiveSurface returns the shared fullscreen container, creating it lazily on first use.
	ExclusiveSurface() (Container, error)

	// ReleaseExclusiveSurface tears the fullscreen container down. It must be called before
	// a different session may acquire the surface.
	ReleaseExclusiveSurface() error

	SetImmersive(enabled bool) error
}
