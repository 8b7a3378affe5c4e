package mpvengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"
)

const (
	socketType = "unix"

	propertyChangeEvent = "property-change"

	dispatcherLogPrefix = "mpvengine.dispatcher#"
)

var (
	// ErrCommandFailedResponse informs about mpv returning something other than "success" in an error field of a response.
	ErrCommandFailedResponse = errors.New("mpv response does not include success state")

	// ErrConnectionInProgress informs about failure of operation due to connection of the dispatcher being in progress.
	ErrConnectionInProgress = errors.New("dispatcher is already connected to the mpv socket")

	// ErrNoPropertyObserver informs about failure of finding an observer for a specified property name.
	ErrNoPropertyObserver = errors.New("could not find observer for a provided property name")

	// ErrNoPropertySubscription informs about failure of finding an observer for a specified subscription id.
	ErrNoPropertySubscription = errors.New("could not find subscription for a provided subscription id")
)

// commandPayload represents command payload sent to mpv.
type commandPayload struct {
	Command   []interface{} `json:"command"`
	RequestID int           `json:"request_id"`
}

// dispatcher connects to the provided socket path and handles sending commands and distributing results.
type dispatcher struct {
	conn                       net.Conn
	connectionTimeout          time.Duration
	errLog                     *log.Logger
	eventObservers             map[string][]chan<- ResponsePayload
	eventObserversLock         *sync.RWMutex
	listeningOnSocket          bool
	listeningOnSocketLock      *sync.RWMutex
	outLog                     *log.Logger
	propertyObservers          map[string]propertyObserver
	propertyObserversLock      *sync.RWMutex
	propertySubscriptionID     int
	propertySubscriptionIDLock *sync.Mutex
	requests                   map[int]chan ResponsePayload
	requestsLock               *sync.Mutex
	requestID                  int
	requestIDLock              *sync.Mutex
	socketPath                 string
}

type propertyObserver struct {
	responsePayloads chan ResponsePayload
	subscriptions    map[int]propertySubscriber
}

type propertySubscriber struct {
	propertyChanges chan<- ObservePropertyResponse
	done            chan bool
}

type dispatcherConfig struct {
	connectionTimeout time.Duration
	errWriter         io.Writer
	socketPath        string
	outWriter         io.Writer
}

func newDispatcher(cfg dispatcherConfig) *dispatcher {
	return &dispatcher{
		connectionTimeout:          cfg.connectionTimeout,
		errLog:                     log.New(cfg.errWriter, dispatcherLogPrefix, log.LstdFlags),
		eventObservers:             map[string][]chan<- ResponsePayload{},
		eventObserversLock:         &sync.RWMutex{},
		listeningOnSocket:          false,
		listeningOnSocketLock:      &sync.RWMutex{},
		outLog:                     log.New(cfg.outWriter, dispatcherLogPrefix, log.LstdFlags),
		propertyObservers:          make(map[string]propertyObserver),
		propertyObserversLock:      &sync.RWMutex{},
		propertySubscriptionID:     1,
		propertySubscriptionIDLock: &sync.Mutex{},
		requests:                   make(map[int]chan ResponsePayload),
		requestsLock:               &sync.Mutex{},
		requestID:                  1,
		requestIDLock:              &sync.Mutex{},
		socketPath:                 cfg.socketPath,
	}
}

// Close makes connection by ipc to the mpv closed.
func (d *dispatcher) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}

// Connect attempts to connect to the unix socket through which the dispatcher will communicate with mpv.
// When connection is already estabilished, ErrConnectionInProgress will be returned,
// as connection is an invalid operation while the dispatcher is already connected.
func (d *dispatcher) Connect(ctx context.Context) error {
	if d.Connected() {
		return ErrConnectionInProgress
	}

	d.outLog.Printf("trying to connect to mpv socket at '%s' with timeout: %f seconds\n", d.socketPath, d.connectionTimeout.Seconds())
	conn, err := waitForSocketConnection(ctx, d.socketPath, d.connectionTimeout)
	if err != nil {
		d.errLog.Printf("could not connect to socket due to error: %s\n", err)
		return err
	}
	d.conn = conn
	d.outLog.Printf("connected to socket at '%s'\n", d.socketPath)

	return nil
}

// Connected informs whether the dispatcher is ready to make requests and observe properties.
func (d *dispatcher) Connected() bool {
	d.listeningOnSocketLock.RLock()
	defer d.listeningOnSocketLock.RUnlock()

	return d.listeningOnSocket
}

// Request sends a simple request->response command completed by the first response from mpv.
func (d *dispatcher) Request(cmd command) (Response, error) {
	var result Response

	requestResult := make(chan ResponsePayload, 1)

	requestID := d.reserveRequestID()
	d.requestsLock.Lock()
	d.requests[requestID] = requestResult
	d.requestsLock.Unlock()
	defer func() {
		d.requestsLock.Lock()
		delete(d.requests, requestID)
		d.requestsLock.Unlock()
	}()

	err := d.dispatch(cmd, requestID)
	if err != nil {
		return result, err
	}

	resPayload := <-requestResult
	if !IsResultSuccess(resPayload) {
		return result, fmt.Errorf("%w: %s", ErrCommandFailedResponse, resPayload.Err)
	}

	return Response{
		Data: resPayload.Data,
	}, nil
}

// Serve instructs the dispatcher to handle communication with mpv through the socket -
// this involves distributing request responses, property changes and named events.
// Property observers registered before the connection was made are (re)observed on entry,
// since there was no mpv instance to receive those observe requests earlier.
func (d *dispatcher) Serve() error {
	go d.observeProperties()
	d.outLog.Printf("listening on unix socket at '%s'\n", d.socketPath)

	return d.listenOnUnixSocket()
}

// SubscribeToProperty listens to mpv property change events.
// Returned id is used as a key to the subscription and should be used when unsubscribing.
// The channel provided is never closed to enable aggregation from multiple observers,
// however calling unsubscribe will ensure that the dispatcher stops sending on the channel.
func (d *dispatcher) SubscribeToProperty(propertyName string, out chan<- ObservePropertyResponse) (int, error) {
	done := make(chan bool)
	propertySubscriptionID := d.reservePropertySubscriptionID()

	observer, ok := d.propertyObserver(propertyName)
	if !ok {
		newObserver, err := d.addPropertyObserver(propertyName)
		if err != nil {
			return 0, err
		}

		observer = newObserver
	}

	observer.subscriptions[propertySubscriptionID] = propertySubscriber{
		propertyChanges: out,
		done:            done,
	}
	responsePayloads := observer.responsePayloads

	go func() {
		for {
			select {
			case payload := <-responsePayloads:
				out <- ObservePropertyResponse{
					Property: propertyName,
					Response: Response{
						Data: payload.Data,
					},
				}
			case <-done:
				delete(observer.subscriptions, propertySubscriptionID)
				return
			}
		}
	}()

	return propertySubscriptionID, nil
}

// UnobserveProperty instructs the dispatcher to stop sending updates about property on specified id.
func (d *dispatcher) UnobserveProperty(propertyName string, id int) error {
	observer, ok := d.propertyObserver(propertyName)
	if !ok {
		return ErrNoPropertyObserver
	}

	subscription, ok := observer.subscriptions[id]
	if !ok {
		return ErrNoPropertySubscription
	}

	subscription.done <- true
	return nil
}

// SubscribeToEvent forwards payloads of a named mpv event on the out channel.
func (d *dispatcher) SubscribeToEvent(eventName string, out chan<- ResponsePayload) {
	d.eventObserversLock.Lock()
	defer d.eventObserversLock.Unlock()

	d.eventObservers[eventName] = append(d.eventObservers[eventName], out)
}

// addPropertyObserver creates a new observer for a specific property.
// The request to observe the property will not be made when the connection is not estabilished since it would fail,
// but the observer is added to the propertyObservers map which is used to start observing properties on a new connection.
func (d *dispatcher) addPropertyObserver(propertyName string) (propertyObserver, error) {
	newObserver := propertyObserver{
		responsePayloads: make(chan ResponsePayload),
		subscriptions:    make(map[int]propertySubscriber),
	}

	d.propertyObserversLock.Lock()
	d.propertyObservers[propertyName] = newObserver
	d.propertyObserversLock.Unlock()

	if !d.Connected() {
		return newObserver, nil
	}

	err := d.observeProperty(propertyName)
	return newObserver, err
}

func (d *dispatcher) dispatch(cmd command, requestID int) error {
	payload, err := prepareCommandPayload(cmd, requestID)
	if err != nil {
		return err
	}

	written, err := d.conn.Write(payload)
	if err != nil {
		return err
	}
	if len(payload) != written {
		return fmt.Errorf("could not write the whole command payload: %d out of %d bytes written", written, len(payload))
	}

	return nil
}

func (d *dispatcher) distributeResponse(result ResponsePayload) error {
	if result.Event == propertyChangeEvent {
		observer, ok := d.propertyObserver(result.Name)
		if !ok {
			return fmt.Errorf("property change event provided for a not observed property %s", result.Name)
		}

		observer.responsePayloads <- result
		return nil
	}

	if result.Event != "" {
		d.distributeEvent(result)
		return nil
	}

	if result.RequestID == 0 {
		return fmt.Errorf("result provided without a request id")
	}

	d.requestsLock.Lock()
	request, ok := d.requests[result.RequestID]
	d.requestsLock.Unlock()
	if !ok {
		return fmt.Errorf("result %d provided to a not dispatched request", result.RequestID)
	}

	request <- result

	return nil
}

func (d *dispatcher) distributeEvent(result ResponsePayload) {
	d.eventObserversLock.RLock()
	defer d.eventObserversLock.RUnlock()

	for _, out := range d.eventObservers[result.Event] {
		select {
		case out <- result:
		default:
		}
	}
}

func (d *dispatcher) listenOnUnixSocket() error {
	d.setListeningOnSocket(true)
	defer d.setListeningOnSocket(false)

	iterator := NewResponsesIterator(d.conn)
	for {
		payload, err := iterator.Next()
		if err == io.EOF {
			d.outLog.Println("connection closed")
			return nil
		} else if err != nil {
			return fmt.Errorf("could not read the payload from the connection: %w", err)
		}

		err = d.distributeResponse(payload)
		if err != nil {
			d.errLog.Printf("could not distribute response: %s\n", err)
		}
	}
}

func (d *dispatcher) observeProperties() {
	d.propertyObserversLock.RLock()
	defer d.propertyObserversLock.RUnlock()

	for propertyName := range d.propertyObservers {
		err := d.observeProperty(propertyName)
		if err != nil {
			d.errLog.Printf("could not observe property '%s' due to error: %s", propertyName, err)
		}
	}
}

func (d *dispatcher) observeProperty(propertyName string) error {
	requestID := d.reserveRequestID()
	cmd := command{
		name:     observePropertyCommand,
		elements: []interface{}{requestID, propertyName},
	}
	_, err := d.Request(cmd)

	return err
}

func (d *dispatcher) propertyObserver(propertyName string) (propertyObserver, bool) {
	d.propertyObserversLock.RLock()
	defer d.propertyObserversLock.RUnlock()

	observer, ok := d.propertyObservers[propertyName]
	return observer, ok
}

func (d *dispatcher) reserveRequestID() int {
	d.requestIDLock.Lock()
	defer d.requestIDLock.Unlock()

	requestID := d.requestID
	d.requestID++

	return requestID
}

func (d *dispatcher) reservePropertySubscriptionID() int {
	d.propertySubscriptionIDLock.Lock()
	defer d.propertySubscriptionIDLock.Unlock()

	propertyObserverID := d.propertySubscriptionID
	d.propertySubscriptionID++

	return propertyObserverID
}

func (d *dispatcher) setListeningOnSocket(listening bool) {
	d.listeningOnSocketLock.Lock()
	defer d.listeningOnSocketLock.Unlock()

	d.listeningOnSocket = listening
}

func waitForSocketConnection(ctx context.Context, socketPath string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		conn, err := net.Dial(socketType, socketPath)
		if err == nil {
			return conn, nil
		}

		// mpv takes a moment to start listening on the socket, repeat until connection successful.
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func prepareCommandPayload(cmd command, requestID int) ([]byte, error) {
	var payload []byte
	cmdPayload := commandPayload{
		Command:   cmd.JSONIPCFormat(),
		RequestID: requestID,
	}

	payload, err := json.Marshal(cmdPayload)
	if err != nil {
		return payload, err
	}

	payload = append(payload, newline...)

	return payload, nil
}
