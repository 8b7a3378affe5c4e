package rest

import (
	"net/http"

	"github.com/avkit/player-bridge/internal/common"
	"github.com/avkit/player-bridge/pkg/bridge"
)

const (
	createArg     = "create"
	initializeArg = "initialize"
	disposeArg    = "dispose"

	refererArg              = "referer"
	showTitleArg            = "showTitle"
	showAuthorArg           = "showAuthor"
	showFullscreenButtonArg = "showFullscreenButton"
	showOptionsButtonArg    = "showOptionsButton"
	showSubtitlesButtonArg  = "showSubtitlesButton"
	showSeekBarArg          = "showSeekBar"
	showDurationArg         = "showDuration"
	autoFullscreenArg       = "autoFullscreen"
)

type createSessionPayload struct {
	ID int `json:"id"`
}

func (s *Server) sessionsFormArguments() map[string]common.FormArgument {
	return map[string]common.FormArgument{
		createArg: {
			Validate: validateBool(createArg),
			Handle:   s.createSessionHandler,
		},
		initializeArg: {
			Validate: validateInt(initializeArg),
			Handle:   s.initializeSessionHandler,
		},
		disposeArg: {
			Validate: validateInt(disposeArg),
			Handle:   s.disposeSessionHandler,
		},
		refererArg:              {},
		showTitleArg:            {Validate: validateBool(showTitleArg)},
		showAuthorArg:           {Validate: validateBool(showAuthorArg)},
		showFullscreenButtonArg: {Validate: validateBool(showFullscreenButtonArg)},
		showOptionsButtonArg:    {Validate: validateBool(showOptionsButtonArg)},
		showSubtitlesButtonArg:  {Validate: validateBool(showSubtitlesButtonArg)},
		showSeekBarArg:          {Validate: validateBool(showSeekBarArg)},
		showDurationArg:         {Validate: validateBool(showDurationArg)},
		autoFullscreenArg:       {Validate: validateBool(autoFullscreenArg)},
	}
}

func (s *Server) createSessionHandler(req *http.Request, resp *common.FormResponse) error {
	create, err := formBool(req, createArg)
	if err != nil || !create {
		return nil
	}

	id, err := s.bridge.CreateSession(sessionConfigFromForm(req))
	if err != nil {
		return err
	}

	s.outLog.Printf("created session %d due to request from %s\n", id, req.RemoteAddr)
	resp.SetPayload(createSessionPayload{ID: id})

	return nil
}

func (s *Server) initializeSessionHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := formInt(req, initializeArg)
	if err != nil {
		return invalidArgumentsError("the initialize argument must carry a session id")
	}

	s.outLog.Printf("initializing session %d due to request from %s\n", id, req.RemoteAddr)
	return s.bridge.Initialize(int(id), sessionConfigFromForm(req))
}

func (s *Server) disposeSessionHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := formInt(req, disposeArg)
	if err != nil {
		return invalidArgumentsError("the dispose argument must carry a session id")
	}

	s.outLog.Printf("disposing session %d due to request from %s\n", id, req.RemoteAddr)
	return s.bridge.Dispose(int(id))
}

// sessionConfigFromForm overlays provided config arguments over the default session config.
func sessionConfigFromForm(req *http.Request) bridge.SessionConfig {
	cfg := bridge.DefaultSessionConfig()

	if referer := req.PostFormValue(refererArg); referer != "" {
		cfg.Referer = referer
	}

	boolArgs := map[string]*bool{
		showTitleArg:            &cfg.ShowTitle,
		showAuthorArg:           &cfg.ShowAuthor,
		showFullscreenButtonArg: &cfg.ShowFullscreenButton,
		showOptionsButtonArg:    &cfg.ShowOptionsButton,
		showSubtitlesButtonArg:  &cfg.ShowSubtitlesButton,
		showSeekBarArg:          &cfg.ShowSeekBar,
		showDurationArg:         &cfg.ShowDuration,
		autoFullscreenArg:       &cfg.AutoFullscreen,
	}

	for argName, target := range boolArgs {
		if req.PostFormValue(argName) == "" {
			continue
		}

		value, err := formBool(req, argName)
		if err == nil {
			*target = value
		}
	}

	return cfg
}
