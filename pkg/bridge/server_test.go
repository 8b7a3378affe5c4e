package bridge_test

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/avkit/player-bridge/internal/mocks"
	"github.com/avkit/player-bridge/pkg/bridge"
	"github.com/avkit/player-bridge/pkg/engine"
	"github.com/avkit/player-bridge/pkg/presentation"
)

const eventTimeout = 2 * time.Second

// eventCollector subscribes to the bridge's outward event stream during tests.
type eventCollector struct {
	events chan bridge.Event
}

func newEventCollector() *eventCollector {
	return &eventCollector{events: make(chan bridge.Event, 64)}
}

func (c *eventCollector) Receive(event bridge.Event) {
	c.events <- event
}

func (c *eventCollector) waitFor(t *testing.T, kind bridge.EventKind) bridge.Event {
	t.Helper()

	deadline := time.After(eventTimeout)
	for {
		select {
		case event := <-c.events:
			if event.Kind == kind {
				return event
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for event of kind %s", kind)
		}
	}
}

func newTestServer(playerEngine engine.Engine, host presentation.Host) *bridge.Server {
	return bridge.NewServer(bridge.Config{
		Engine:            playerEngine,
		Host:              host,
		ErrWriter:         io.Discard,
		OutWriter:         io.Discard,
		ProgressInterval:  time.Hour,
		ResumeRetryDelays: []time.Duration{time.Millisecond, 5 * time.Millisecond, 10 * time.Millisecond},
		ExitResumeDelay:   time.Millisecond,
		LoadTimeout:       eventTimeout,
	})
}

// preparePlayer sets up the expectations every session-bound player satisfies over its
// lifetime and captures the notifications channel handed over on subscription.
func preparePlayer(ctrl *gomock.Controller) (*mocks.MockPlayer, *chan<- engine.Notification) {
	player := mocks.NewMockPlayer(ctrl)
	notifications := new(chan<- engine.Notification)

	player.
		EXPECT().
		Subscribe(gomock.Any()).
		DoAndReturn(func(out chan<- engine.Notification) (int, error) {
			*notifications = out

			return 1, nil
		}).
		Times(1)
	player.
		EXPECT().
		Unsubscribe(1).
		Return(nil).
		AnyTimes()
	player.
		EXPECT().
		Release().
		Return(nil).
		AnyTimes()

	return player, notifications
}

func TestCreateSession_AssignsMonotonicIds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player1, _ := preparePlayer(ctrl)
	player2, _ := preparePlayer(ctrl)
	gomock.InOrder(
		playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player1, nil),
		playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player2, nil),
	)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	// when
	id1, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on first create: %s", err)
	}

	id2, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on second create: %s", err)
	}

	// then
	if id1 != 1 {
		t.Errorf("Expected first session id %d to equal 1", id1)
	}

	if id2 != 2 {
		t.Errorf("Expected second session id %d to equal 2", id2)
	}
}

func TestCreateSession_TearsDownPreviousSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player2, _ := preparePlayer(ctrl)

	player1 := mocks.NewMockPlayer(ctrl)
	player1.EXPECT().Subscribe(gomock.Any()).Return(1, nil).Times(1)
	player1.EXPECT().Unsubscribe(1).Return(nil).Times(1)
	player1.EXPECT().Release().Return(nil).Times(1)

	gomock.InOrder(
		playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player1, nil),
		playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player2, nil),
	)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id1, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on first create: %s", err)
	}

	// when
	_, err = uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on second create: %s", err)
	}

	// then
	err = uut.Play(id1)
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok {
		t.Fatalf("Expected a command error for the torn down session, got: %v", err)
	}

	if cmdErr.Code != bridge.CodeSessionNotFound {
		t.Errorf("Expected code %s to equal %s", cmdErr.Code, bridge.CodeSessionNotFound)
	}
}

func TestCreateSession_EngineFailureReportsInitError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	playerEngine.
		EXPECT().
		NewPlayer(gomock.Any()).
		Return(nil, errors.New("no decoder available"))

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	// when
	_, err := uut.CreateSession(bridge.DefaultSessionConfig())

	// then
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok {
		t.Fatalf("Expected a command error, got: %v", err)
	}

	if cmdErr.Code != bridge.CodeInitError {
		t.Errorf("Expected code %s to equal %s", cmdErr.Code, bridge.CodeInitError)
	}
}

func TestControlCommands_BeforeLoadReportNotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	// when
	err = uut.Play(id)

	// then
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok {
		t.Fatalf("Expected a command error, got: %v", err)
	}

	if cmdErr.Code != bridge.CodeSessionNotReady {
		t.Errorf("Expected code %s to equal %s", cmdErr.Code, bridge.CodeSessionNotReady)
	}
}

func TestCommands_UnknownSessionReportsNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	// when
	err := uut.Play(42)

	// then
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok {
		t.Fatalf("Expected a command error, got: %v", err)
	}

	if cmdErr.Code != bridge.CodeSessionNotFound {
		t.Errorf("Expected code %s to equal %s", cmdErr.Code, bridge.CodeSessionNotFound)
	}
}

func TestDispose_AlwaysSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	// when
	err = uut.Dispose(id)
	if err != nil {
		t.Fatalf("Unexpected error on dispose of a live session: %s", err)
	}

	err = uut.Dispose(99)

	// then
	if err != nil {
		t.Errorf("Expected dispose of an unknown session to succeed, got: %s", err)
	}

	err = uut.Play(id)
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok || cmdErr.Code != bridge.CodeSessionNotFound {
		t.Errorf("Expected commands after dispose to report %s, got: %v", bridge.CodeSessionNotFound, err)
	}
}

func TestDispose_ReturnsWhileNotificationsAreInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given - a player that, like real engine implementations, holds an internal lock
	// while blocked on the notifications channel and takes the same lock on Unsubscribe.
	playerEngine := mocks.NewMockEngine(ctrl)
	player := mocks.NewMockPlayer(ctrl)

	var lock sync.Mutex
	var out chan<- engine.Notification
	stopped := make(chan struct{})

	player.
		EXPECT().
		Subscribe(gomock.Any()).
		DoAndReturn(func(ch chan<- engine.Notification) (int, error) {
			out = ch

			return 1, nil
		})
	player.
		EXPECT().
		Unsubscribe(1).
		DoAndReturn(func(int) error {
			lock.Lock()
			defer lock.Unlock()

			close(stopped)
			return nil
		})
	player.EXPECT().Release().Return(nil)

	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	go func() {
		for {
			lock.Lock()
			select {
			case <-stopped:
				lock.Unlock()
				return
			default:
			}

			out <- engine.Notification{Kind: engine.RateChange, Rate: 1.25}
			lock.Unlock()
		}
	}()

	// when
	disposed := make(chan struct{})
	go func() {
		uut.Dispose(id)
		close(disposed)
	}()

	// then
	select {
	case <-disposed:
	case <-time.After(eventTimeout):
		t.Fatalf("Timed out waiting for dispose with notifications in flight")
	}
}

func TestLoad_BindsControlAndReportsMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), "some-video", engine.LoadOptions{}).
		Return(engine.Media{Title: "Some Video", Duration: 120 * time.Second}, nil)
	player.EXPECT().Play().Return(nil)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	// when
	result, err := uut.Load(id, "some-video", bridge.LoadConfig{})
	if err != nil {
		t.Fatalf("Unexpected error on load: %s", err)
	}

	// then
	if result.Title != "Some Video" {
		t.Errorf("Expected title %s to equal 'Some Video'", result.Title)
	}

	if result.DurationSeconds != 120 {
		t.Errorf("Expected duration %d to equal 120", result.DurationSeconds)
	}

	if result.IsLive {
		t.Errorf("Expected media not to be reported as live")
	}

	err = uut.Play(id)
	if err != nil {
		t.Errorf("Expected play after load to succeed, got: %s", err)
	}
}

func TestLoad_LiveMediaAppliesPresentation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), "live-stream", gomock.Any()).
		Return(engine.Media{Title: "Live", Live: true, LiveStartDate: "2026-08-31T10:00:00Z"}, nil)

	host := presentation.NewVirtual()
	uut := newTestServer(playerEngine, host)
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	// when
	result, err := uut.Load(id, "live-stream", bridge.LoadConfig{})
	if err != nil {
		t.Fatalf("Unexpected error on load: %s", err)
	}

	// then
	if !result.IsLive {
		t.Errorf("Expected media to be reported as live")
	}

	view, ok := host.Inline().At(0).(*presentation.VirtualView)
	if !ok {
		t.Fatalf("Expected a view in the inline container")
	}

	if !view.Live() {
		t.Errorf("Expected view to be marked live")
	}

	if view.LiveStartDate() != "2026-08-31T10:00:00Z" {
		t.Errorf("Expected live start date %s to equal 2026-08-31T10:00:00Z", view.LiveStartDate())
	}
}

func TestLoad_EngineFailureReportsLoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(engine.Media{}, errors.New("network unreachable"))

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	// when
	_, err = uut.Load(id, "broken-video", bridge.LoadConfig{})

	// then
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok {
		t.Fatalf("Expected a command error, got: %v", err)
	}

	if cmdErr.Code != bridge.CodeLoadError {
		t.Errorf("Expected code %s to equal %s", cmdErr.Code, bridge.CodeLoadError)
	}

	err = uut.Play(id)
	cmdErr, ok = bridge.AsCommandError(err)
	if !ok || cmdErr.Code != bridge.CodeSessionNotReady {
		t.Errorf("Expected session to stay not ready after a failed load, got: %v", err)
	}
}

func TestSeek_ClampsPositionToKnownDuration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(engine.Media{Duration: 100 * time.Second}, nil)

	gomock.InOrder(
		player.EXPECT().Duration().Return(100*time.Second, nil),
		player.EXPECT().SeekTo(100*time.Second).Return(nil),
		player.EXPECT().Duration().Return(100*time.Second, nil),
		player.EXPECT().SeekTo(time.Duration(0)).Return(nil),
		player.EXPECT().Duration().Return(time.Duration(0), engine.ErrValueUnavailable),
		player.EXPECT().SeekTo(time.Duration(0)).Return(nil),
	)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	_, err = uut.Load(id, "some-video", bridge.LoadConfig{})
	if err != nil {
		t.Fatalf("Unexpected error on load: %s", err)
	}

	// when / then
	err = uut.Seek(id, 500)
	if err != nil {
		t.Errorf("Unexpected error on overshooting seek: %s", err)
	}

	err = uut.Seek(id, -5)
	if err != nil {
		t.Errorf("Unexpected error on negative seek: %s", err)
	}

	err = uut.Seek(id, 25)
	if err != nil {
		t.Errorf("Unexpected error on seek with unknown duration: %s", err)
	}
}

func TestQueries_DefaultWhenValueUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(engine.Media{Live: true}, nil)

	player.EXPECT().Position().Return(time.Duration(0), engine.ErrValueUnavailable)
	player.EXPECT().Duration().Return(time.Duration(0), engine.ErrValueUnavailable)
	player.EXPECT().Rate().Return(float64(0), engine.ErrValueUnavailable)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	_, err = uut.Load(id, "live-stream", bridge.LoadConfig{})
	if err != nil {
		t.Fatalf("Unexpected error on load: %s", err)
	}

	// when
	position, err := uut.Position(id)
	if err != nil {
		t.Fatalf("Unexpected error on position query: %s", err)
	}

	duration, err := uut.Duration(id)
	if err != nil {
		t.Fatalf("Unexpected error on duration query: %s", err)
	}

	rate, err := uut.Rate(id)
	if err != nil {
		t.Fatalf("Unexpected error on rate query: %s", err)
	}

	// then
	if position != 0 {
		t.Errorf("Expected position %d to equal 0", position)
	}

	if duration != 0 {
		t.Errorf("Expected duration %d to equal 0", duration)
	}

	if rate != 1.0 {
		t.Errorf("Expected rate %f to equal 1.0", rate)
	}
}

func TestLoad_StartTimeSeeksOnceOnReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, notifications := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), gomock.Any(), engine.LoadOptions{StartTime: 30 * time.Second}).
		Return(engine.Media{Duration: 100 * time.Second}, nil)
	player.
		EXPECT().
		SeekTo(30 * time.Second).
		Return(nil).
		Times(1)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	collector := newEventCollector()
	uut.SubscribeToEvents(collector)

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	_, err = uut.Load(id, "some-video", bridge.LoadConfig{StartTimeSeconds: 30})
	if err != nil {
		t.Fatalf("Unexpected error on load: %s", err)
	}

	// when - two ready transitions, the start offset must be consumed by the first one.
	*notifications <- engine.Notification{Kind: engine.StateChange, State: engine.StateReady}
	collector.waitFor(t, bridge.StatusChanged)

	*notifications <- engine.Notification{Kind: engine.StateChange, State: engine.StateReady}
	collector.waitFor(t, bridge.StatusChanged)

	// then - the Times(1) expectation on SeekTo is verified by ctrl.Finish.
}

func TestNotifications_TranslateToStatusAndRateEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, notifications := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	uut := newTestServer(playerEngine, presentation.NewVirtual())
	defer uut.Close()

	collector := newEventCollector()
	uut.SubscribeToEvents(collector)

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	// when
	*notifications <- engine.Notification{Kind: engine.StateChange, State: engine.StateReady, PlayWhenReady: true}
	statusEvent := collector.waitFor(t, bridge.StatusChanged)

	*notifications <- engine.Notification{Kind: engine.RateChange, Rate: 1.5}
	rateEvent := collector.waitFor(t, bridge.RateChanged)

	// then
	if statusEvent.SessionID != id {
		t.Errorf("Expected session id %d to equal %d", statusEvent.SessionID, id)
	}

	if statusEvent.Status != bridge.StatusPlaying {
		t.Errorf("Expected status %s to equal %s", statusEvent.Status, bridge.StatusPlaying)
	}

	if rateEvent.Rate != 1.5 {
		t.Errorf("Expected rate %f to equal 1.5", rateEvent.Rate)
	}
}

func TestProgress_EmittedForLoadedSessionOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	playerEngine := mocks.NewMockEngine(ctrl)
	player, _ := preparePlayer(ctrl)
	playerEngine.EXPECT().NewPlayer(gomock.Any()).Return(player, nil)

	player.
		EXPECT().
		Load(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(engine.Media{Duration: 100 * time.Second}, nil)
	player.EXPECT().Duration().Return(100*time.Second, nil).AnyTimes()
	player.EXPECT().Position().Return(50*time.Second, nil).AnyTimes()

	uut := bridge.NewServer(bridge.Config{
		Engine:           playerEngine,
		Host:             presentation.NewVirtual(),
		ErrWriter:        io.Discard,
		OutWriter:        io.Discard,
		ProgressInterval: 5 * time.Millisecond,
	})
	defer uut.Close()

	collector := newEventCollector()
	uut.SubscribeToEvents(collector)

	id, err := uut.CreateSession(bridge.DefaultSessionConfig())
	if err != nil {
		t.Fatalf("Unexpected error on create: %s", err)
	}

	_, err = uut.Load(id, "some-video", bridge.LoadConfig{})
	if err != nil {
		t.Fatalf("Unexpected error on load: %s", err)
	}

	// when
	progressEvent := collector.waitFor(t, bridge.ProgressUpdate)

	// then
	if progressEvent.SessionID != id {
		t.Errorf("Expected session id %d to equal %d", progressEvent.SessionID, id)
	}

	if progressEvent.ProgressPercent != 50 {
		t.Errorf("Expected progress %f to equal 50", progressEvent.ProgressPercent)
	}

	// when - dispose cancels the ticker before returning.
	err = uut.Dispose(id)
	if err != nil {
		t.Fatalf("Unexpected error on dispose: %s", err)
	}

	for len(collector.events) > 0 {
		<-collector.events
	}

	time.Sleep(50 * time.Millisecond)

	// then
	for len(collector.events) > 0 {
		event := <-collector.events
		if event.Kind == bridge.ProgressUpdate {
			t.Errorf("Expected no progress updates after dispose")
		}
	}
}
