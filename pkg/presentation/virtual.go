package presentation

import "sync"

// Virtual is an in-memory Host. It keeps the container/view bookkeeping without any
// windowing system behind it - the engine renders into its own surface - which makes it
// suitable both for headless deployments and for exercising placement semantics in tests.
type Virtual struct {
	lock      *sync.Mutex
	inline    *VirtualContainer
	exclusive *VirtualContainer
	immersive bool
}

// NewVirtual constructs a Virtual host with a single inline container.
func NewVirtual() *Virtual {
	return &Virtual{
		lock:   &sync.Mutex{},
		inline: &VirtualContainer{},
	}
}

// Inline returns the host's inline container into which created views are placed.
func (v *Virtual) Inline() *VirtualContainer {
	return v.inline
}

// Immersive reports whether immersive presentation mode is currently requested.
func (v *Virtual) Immersive() bool {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.immersive
}

func (v *Virtual) CreateView(opts ViewOptions) (View, error) {
	view := &VirtualView{opts: opts}
	v.inline.Append(view)

	return view, nil
}

func (v *Virtual) ReleaseView(view View) error {
	placement, ok := view.Placement()
	if ok {
		placement.Container.Remove(view)
	}

	return nil
}

func (v *Virtual) ExclusiveSurface() (Container, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.exclusive == nil {
		v.exclusive = &VirtualContainer{}
	}

	return v.exclusive, nil
}

func (v *Virtual) ReleaseExclusiveSurface() error {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.exclusive = nil
	return nil
}

func (v *Virtual) SetImmersive(enabled bool) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.immersive = enabled
	return nil
}

// VirtualContainer is an ordered in-memory collection of views.
type VirtualContainer struct {
	lock  sync.Mutex
	views []View
}

func (c *VirtualContainer) Append(view View) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.views = append(c.views, view)
	c.attach(view)
}

func (c *VirtualContainer) InsertAt(view View, index int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if index < 0 || index > len(c.views) {
		c.views = append(c.views, view)
	} else {
		c.views = append(c.views[:index], append([]View{view}, c.views[index:]...)...)
	}
	c.attach(view)
}

func (c *VirtualContainer) Remove(view View) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for idx, candidate := range c.views {
		if candidate == view {
			c.views = append(c.views[:idx], c.views[idx+1:]...)
			break
		}
	}

	if virtual, ok := view.(*VirtualView); ok && virtual.container == c {
		virtual.container = nil
	}
}

func (c *VirtualContainer) IndexOf(view View) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	for idx, candidate := range c.views {
		if candidate == view {
			return idx
		}
	}

	return -1
}

// At returns the view at index, nil when out of range.
func (c *VirtualContainer) At(index int) View {
	c.lock.Lock()
	defer c.lock.Unlock()

	if index < 0 || index >= len(c.views) {
		return nil
	}

	return c.views[index]
}

func (c *VirtualContainer) Count() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return len(c.views)
}

func (c *VirtualContainer) attach(view View) {
	if virtual, ok := view.(*VirtualView); ok {
		virtual.container = c
	}
}

// VirtualView is the in-memory View handed out by Virtual.
type VirtualView struct {
	opts          ViewOptions
	container     *VirtualContainer
	fullscreen    bool
	live          bool
	liveStartDate string
	onTap         func()
}

func (v *VirtualView) Placement() (Placement, bool) {
	if v.container == nil {
		return Placement{}, false
	}

	idx := v.container.IndexOf(v)
	if idx < 0 {
		return Placement{}, false
	}

	return Placement{Container: v.container, Index: idx}, true
}

func (v *VirtualView) Detach() error {
	if v.container == nil {
		return ErrViewDetached
	}

	v.container.Remove(v)
	return nil
}

func (v *VirtualView) SetFullscreen(enabled bool) {
	v.fullscreen = enabled
}

func (v *VirtualView) Fullscreen() bool {
	return v.fullscreen
}

func (v *VirtualView) SetLive() {
	v.live = true
}

func (v *VirtualView) Live() bool {
	return v.live
}

func (v *VirtualView) ShowLiveStartDate(startDate string) {
	v.liveStartDate = startDate
}

func (v *VirtualView) LiveStartDate() string {
	return v.liveStartDate
}

func (v *VirtualView) OnFullscreenTap(cb func()) {
	v.onTap = cb
}

// TapFullscreen simulates the user activating the view's fullscreen affordance.
func (v *VirtualView) TapFullscreen() {
	if v.onTap != nil {
		v.onTap()
	}
}
