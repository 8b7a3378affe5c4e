package sse

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/avkit/player-bridge/pkg/bridge"
)

const (
	logPrefix = "sse.Server#"

	pathBase = "sse"

	// channelName prefixes every outward SSE event - all four event kinds multiplex
	// onto this single channel, consumers demultiplex by the carried session id.
	channelName = "player"
)

var eventsPath = fmt.Sprintf("/%s/events", pathBase)

// Config controls behaviour of the SSE server.
type Config struct {
	ErrWriter io.Writer
	OutWriter io.Writer
}

// Server pushes the bridge's outward event stream to connected SSE observers.
type Server struct {
	errLog    *log.Logger
	outLog    *log.Logger
	lock      *sync.RWMutex
	observers map[string]chan bridge.Event
}

// NewServer prepares an SSE server. It is registered on the bridge's event stream
// through Receive (satisfying the broadcaster's subscriber contract).
func NewServer(cfg Config) *Server {
	return &Server{
		errLog:    log.New(cfg.ErrWriter, logPrefix, log.LstdFlags),
		outLog:    log.New(cfg.OutWriter, logPrefix, log.LstdFlags),
		lock:      &sync.RWMutex{},
		observers: map[string]chan bridge.Event{},
	}
}

// Receive fans a bridge event out to every connected observer. The send never blocks -
// an observer that cannot keep up misses events instead of stalling the whole stream.
func (s *Server) Receive(event bridge.Event) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	for observerID, observer := range s.observers {
		select {
		case observer <- event:
		default:
			s.errLog.Printf("observer %s not able to receive an event\n", observerID)
		}
	}
}

// Handler returns http.Handler responsible for the SSE subtree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(eventsPath, s.eventsHandler)

	return mux
}

func (s *Server) eventsHandler(res http.ResponseWriter, req *http.Request) {
	sseResWriter, err := newResponseWriter(res)
	if err != nil {
		res.WriteHeader(400)
		return
	}

	observerID := uuid.NewString()
	// Buffer of 1 so that the fan-out dispatcher holding the read lock is never blocked
	// by an observer that is concurrently tearing down its registration.
	events := make(chan bridge.Event, 1)

	s.lock.Lock()
	s.observers[observerID] = events
	s.lock.Unlock()
	s.outLog.Printf("added observer %s for %s\n", observerID, req.RemoteAddr)

	for {
		select {
		case event := <-events:
			err := sseResWriter.SendEvent(event, fmt.Sprintf("%s.%s", channelName, event.Kind))
			if err != nil {
				s.errLog.Println(err.Error())
			}
		case <-req.Context().Done():
			s.lock.Lock()
			delete(s.observers, observerID)
			s.lock.Unlock()
			s.outLog.Printf("removed observer %s for %s\n", observerID, req.RemoteAddr)

			return
		}
	}
}
