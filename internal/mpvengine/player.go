package mpvengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/avkit/player-bridge/pkg/engine"
)

const (
	playerLogPrefix = "mpvengine.Player#"

	startOptionFormat = "start=+%d"
)

// errLoadInterrupted informs that mpv terminated playback of a file before it finished loading.
var errLoadInterrupted = errors.New("mpv terminated the file before it finished loading")

type playerConfig struct {
	dispatcher *dispatcher
	errWriter  io.Writer
	outWriter  io.Writer
	process    *exec.Cmd
}

// Player controls a single mpv process through its json IPC socket.
// Property changes and named events reported by mpv are translated into
// engine notifications and fanned out to subscribers.
type Player struct {
	dispatcher *dispatcher
	errLog     *log.Logger
	outLog     *log.Logger
	process    *exec.Cmd

	lock           *sync.Mutex
	loaded         bool
	paused         bool
	pausedForCache bool
	eofReached     bool
	released       bool
	loadDone       chan error

	subscribersLock *sync.Mutex
	subscribers     map[int]chan<- engine.Notification
	subscriptionID  int
}

func newPlayer(cfg playerConfig) (*Player, error) {
	player := &Player{
		dispatcher:      cfg.dispatcher,
		errLog:          log.New(cfg.errWriter, playerLogPrefix, log.LstdFlags),
		outLog:          log.New(cfg.outWriter, playerLogPrefix, log.LstdFlags),
		process:         cfg.process,
		lock:            &sync.Mutex{},
		paused:          true,
		subscribersLock: &sync.Mutex{},
		subscribers:     map[int]chan<- engine.Notification{},
		subscriptionID:  1,
	}

	go func() {
		err := cfg.dispatcher.Serve()
		if err != nil {
			player.errLog.Printf("dispatcher finished serving with error: %s\n", err)
		}
	}()

	err := player.observeMpv()
	if err != nil {
		return nil, err
	}

	return player, nil
}

// Configure applies presentation options to the running mpv process.
// mpv renders its own on-screen controller, so the individual chrome toggles collapse
// onto the controller visibility; the referer is forwarded to network media requests.
func (p *Player) Configure(opts engine.PlayerOptions) error {
	osc := NoValue
	if opts.ShowSeekBar || opts.ShowDuration || opts.ShowFullscreenButton {
		osc = YesValue
	}

	_, err := p.setProperty(OscProperty, osc)
	if err != nil {
		return fmt.Errorf("could not set on-screen controller visibility: %w", err)
	}

	if opts.Referer != "" {
		_, err = p.setProperty(RefererProperty, opts.Referer)
		if err != nil {
			return fmt.Errorf("could not set referer: %w", err)
		}
	}

	return nil
}

// Load instructs mpv to replace current playback with the provided media and blocks
// until mpv reports the file as loaded, playback as terminated, or ctx expires.
// Playback is left paused; a Play call starts it.
func (p *Player) Load(ctx context.Context, videoRef string, opts engine.LoadOptions) (engine.Media, error) {
	var media engine.Media

	if p.isReleased() {
		return media, engine.ErrPlayerReleased
	}

	loadDone := make(chan error, 1)
	p.lock.Lock()
	p.loadDone = loadDone
	p.lock.Unlock()
	defer func() {
		p.lock.Lock()
		p.loadDone = nil
		p.lock.Unlock()
	}()

	_, err := p.setProperty(PauseProperty, true)
	if err != nil {
		return media, fmt.Errorf("could not pause before load: %w", err)
	}

	elements := []interface{}{videoRef, ReplaceValue}
	if opts.StartTime > 0 {
		elements = append(elements, fmt.Sprintf(startOptionFormat, int64(opts.StartTime/time.Second)))
	}

	_, err = p.dispatcher.Request(command{
		name:     loadfileCommand,
		elements: elements,
	})
	if err != nil {
		return media, fmt.Errorf("could not load '%s': %w", videoRef, err)
	}

	select {
	case err = <-loadDone:
		if err != nil {
			return media, err
		}
	case <-ctx.Done():
		return media, ctx.Err()
	}

	return p.mediaMetadata()
}

// Play resumes playback.
func (p *Player) Play() error {
	_, err := p.setProperty(PauseProperty, false)

	return err
}

// Pause pauses playback.
func (p *Player) Pause() error {
	_, err := p.setProperty(PauseProperty, true)

	return err
}

// Stop instructs mpv to stop the playback without quitting.
func (p *Player) Stop() error {
	if p.isReleased() {
		return engine.ErrPlayerReleased
	}

	_, err := p.dispatcher.Request(command{
		name:     stopCommand,
		elements: []interface{}{},
	})

	return err
}

// SeekTo changes the playback position.
func (p *Player) SeekTo(position time.Duration) error {
	_, err := p.setProperty(PlaybackTimeProperty, position.Seconds())

	return err
}

// Position reports the current playback position.
func (p *Player) Position() (time.Duration, error) {
	return p.durationProperty(PlaybackTimeProperty)
}

// Duration reports the duration of the loaded media.
// Live streams have no defined duration, which is reported as ErrValueUnavailable.
func (p *Player) Duration() (time.Duration, error) {
	return p.durationProperty(DurationProperty)
}

// Rate reports the playback speed multiplier.
func (p *Player) Rate() (float64, error) {
	if p.isReleased() {
		return 0, engine.ErrPlayerReleased
	}

	response, err := p.getProperty(SpeedProperty)
	if err != nil {
		return 0, err
	}

	rate, ok := response.Data.(float64)
	if !ok {
		return 0, engine.ErrValueUnavailable
	}

	return rate, nil
}

// Playing reports whether playback is advancing.
func (p *Player) Playing() (bool, error) {
	if p.isReleased() {
		return false, engine.ErrPlayerReleased
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	return p.loaded && !p.paused && !p.eofReached, nil
}

// Subscribe instructs the player to send its notifications on the out channel.
func (p *Player) Subscribe(out chan<- engine.Notification) (int, error) {
	if p.isReleased() {
		return 0, engine.ErrPlayerReleased
	}

	p.subscribersLock.Lock()
	defer p.subscribersLock.Unlock()

	id := p.subscriptionID
	p.subscriptionID++
	p.subscribers[id] = out

	return id, nil
}

// Unsubscribe stops sending notifications on the channel registered under id.
func (p *Player) Unsubscribe(id int) error {
	p.subscribersLock.Lock()
	defer p.subscribersLock.Unlock()

	_, ok := p.subscribers[id]
	if !ok {
		return ErrNoPropertySubscription
	}

	delete(p.subscribers, id)
	return nil
}

// Release tears down the mpv process and the socket connection.
// Further operations on the player report ErrPlayerReleased.
func (p *Player) Release() error {
	p.lock.Lock()
	if p.released {
		p.lock.Unlock()
		return engine.ErrPlayerReleased
	}
	p.released = true
	p.lock.Unlock()

	p.dispatcher.Close()

	err := p.process.Process.Kill()
	if err != nil {
		return fmt.Errorf("could not kill mpv process: %w", err)
	}
	go p.process.Wait()

	p.outLog.Println("mpv player released")
	return nil
}

// observeMpv subscribes to the mpv properties and events the engine notification
// vocabulary is derived from and starts the translating goroutine.
func (p *Player) observeMpv() error {
	propertyChanges := make(chan ObservePropertyResponse, 16)
	for _, propertyName := range []string{PauseProperty, PausedForCacheProperty, EofReachedProperty, SpeedProperty} {
		_, err := p.dispatcher.SubscribeToProperty(propertyName, propertyChanges)
		if err != nil {
			return fmt.Errorf("could not observe property '%s': %w", propertyName, err)
		}
	}

	events := make(chan ResponsePayload, 16)
	p.dispatcher.SubscribeToEvent(FileLoadedEvent, events)
	p.dispatcher.SubscribeToEvent(EndFileEvent, events)
	p.dispatcher.SubscribeToEvent(PlaybackRestartEvent, events)

	go p.translateMpvChanges(propertyChanges, events)

	return nil
}

func (p *Player) translateMpvChanges(propertyChanges <-chan ObservePropertyResponse, events <-chan ResponsePayload) {
	for {
		select {
		case change := <-propertyChanges:
			p.handlePropertyChange(change)
		case event := <-events:
			p.handleEvent(event)
		}
	}
}

func (p *Player) handlePropertyChange(change ObservePropertyResponse) {
	p.lock.Lock()

	switch change.Property {
	case PauseProperty:
		paused, ok := change.Data.(bool)
		if !ok {
			p.lock.Unlock()
			return
		}

		p.paused = paused
	case PausedForCacheProperty:
		stalled, ok := change.Data.(bool)
		if !ok {
			p.lock.Unlock()
			return
		}

		p.pausedForCache = stalled
	case EofReachedProperty:
		eof, ok := change.Data.(bool)
		if !ok {
			p.lock.Unlock()
			return
		}

		p.eofReached = eof
	case SpeedProperty:
		rate, ok := change.Data.(float64)
		if !ok {
			p.lock.Unlock()
			return
		}
		p.lock.Unlock()

		p.notify(engine.Notification{
			Kind: engine.RateChange,
			Rate: rate,
		})
		return
	default:
		p.lock.Unlock()
		return
	}

	notification := p.stateNotificationLocked()
	p.lock.Unlock()

	p.notify(notification)
}

func (p *Player) handleEvent(event ResponsePayload) {
	switch event.Event {
	case FileLoadedEvent:
		p.lock.Lock()
		p.loaded = true
		p.eofReached = false
		if p.loadDone != nil {
			p.loadDone <- nil
			p.loadDone = nil
		}
		notification := p.stateNotificationLocked()
		p.lock.Unlock()

		p.notify(notification)
	case EndFileEvent:
		p.lock.Lock()
		p.loaded = false
		if p.loadDone != nil {
			p.loadDone <- errLoadInterrupted
			p.loadDone = nil
		}
		notification := p.stateNotificationLocked()
		p.lock.Unlock()

		p.notify(notification)
	case PlaybackRestartEvent:
		p.notify(engine.Notification{
			Kind: engine.FirstFrame,
		})
	}
}

// stateNotificationLocked derives the coarse playback state from observed mpv properties.
// Caller must hold the lock.
func (p *Player) stateNotificationLocked() engine.Notification {
	state := engine.StateIdle
	switch {
	case p.eofReached:
		state = engine.StateEnded
	case p.pausedForCache:
		state = engine.StateBuffering
	case p.loaded:
		state = engine.StateReady
	}

	return engine.Notification{
		Kind:          engine.StateChange,
		State:         state,
		PlayWhenReady: !p.paused,
	}
}

func (p *Player) notify(notification engine.Notification) {
	p.subscribersLock.Lock()
	defer p.subscribersLock.Unlock()

	for _, out := range p.subscribers {
		out <- notification
	}
}

func (p *Player) mediaMetadata() (engine.Media, error) {
	var media engine.Media

	title, err := p.getProperty(MediaTitleProperty)
	if err == nil {
		if text, ok := title.Data.(string); ok {
			media.Title = text
		}
	}

	duration, err := p.Duration()
	if errors.Is(err, engine.ErrValueUnavailable) {
		media.Live = true
	} else if err != nil {
		return media, err
	} else {
		media.Duration = duration
	}

	return media, nil
}

func (p *Player) durationProperty(propertyName string) (time.Duration, error) {
	if p.isReleased() {
		return 0, engine.ErrPlayerReleased
	}

	response, err := p.getProperty(propertyName)
	if err != nil {
		return 0, engine.ErrValueUnavailable
	}

	seconds, ok := response.Data.(float64)
	if !ok {
		return 0, engine.ErrValueUnavailable
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

func (p *Player) getProperty(propertyName string) (Response, error) {
	return p.dispatcher.Request(command{
		name:     getPropertyCommand,
		elements: []interface{}{propertyName},
	})
}

func (p *Player) setProperty(propertyName string, value interface{}) (Response, error) {
	if p.isReleased() {
		return Response{}, engine.ErrPlayerReleased
	}

	return p.dispatcher.Request(command{
		name:     setPropertyCommand,
		elements: []interface{}{propertyName, value},
	})
}

func (p *Player) isReleased() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.released
}
