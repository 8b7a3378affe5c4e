package rest

import (
	"net/http"

	"github.com/avkit/player-bridge/internal/common"
)

const (
	sessionsPath = "/rest/sessions"
	playbackPath = "/rest/playback"
)

// Handler returns http.Handler responsible for the REST handling subtree.
func (s *Server) Handler() http.Handler {
	sessionsHandlers := map[string]http.HandlerFunc{
		http.MethodPost: common.CreateFormHandler(s.sessionsFormArguments(), mapCommandError),
	}

	playbackHandlers := map[string]http.HandlerFunc{
		http.MethodPost: common.CreateFormHandler(s.playbackFormArguments(), mapCommandError),
		http.MethodGet:  s.getPlaybackHandler,
	}

	allHandlers := map[string]common.MethodHandlers{
		sessionsPath: sessionsHandlers,
		playbackPath: playbackHandlers,
	}

	mux := http.NewServeMux()
	for path, methodHandlers := range allHandlers {
		cfg := common.PathHandlerConfig{
			AllowCORS:      s.allowCORS,
			MethodHandlers: methodHandlers,
		}
		mux.HandleFunc(path, common.PathHandler(cfg))
	}

	return mux
}
