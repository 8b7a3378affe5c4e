package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avkit/player-bridge/internal/common"
	"github.com/avkit/player-bridge/pkg/bridge"
)

const (
	idArg            = "id"
	loadArg          = "load"
	startTimeArg     = "startTime"
	playArg          = "play"
	pauseArg         = "pause"
	stopArg          = "stop"
	seekArg          = "seek"
	fullscreenArg    = "fullscreen"
	liveStateArg     = "liveState"
	liveStartDateArg = "liveStartDate"
)

type queriesPayload struct {
	PositionSeconds int64   `json:"positionSeconds"`
	DurationSeconds int64   `json:"durationSeconds"`
	Rate            float64 `json:"rate"`
}

func (s *Server) playbackFormArguments() map[string]common.FormArgument {
	return map[string]common.FormArgument{
		idArg: {Validate: validateInt(idArg)},
		loadArg: {
			Handle: s.loadHandler,
		},
		startTimeArg: {Validate: validateInt(startTimeArg)},
		playArg: {
			Validate: validateBool(playArg),
			Handle:   s.playHandler,
		},
		pauseArg: {
			Validate: validateBool(pauseArg),
			Handle:   s.pauseHandler,
		},
		stopArg: {
			Validate: validateBool(stopArg),
			Handle:   s.stopHandler,
		},
		seekArg: {
			Validate: validateInt(seekArg),
			Handle:   s.seekHandler,
		},
		fullscreenArg: {
			Validate: validateBool(fullscreenArg),
			Handle:   s.fullscreenHandler,
		},
		liveStateArg: {
			Validate: validateBool(liveStateArg),
			Handle:   s.liveStateHandler,
		},
		liveStartDateArg: {
			Validate: validateNonEmpty(liveStartDateArg),
			Handle:   s.liveStartDateHandler,
		},
	}
}

func (s *Server) loadHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	videoRef := req.PostFormValue(loadArg)
	if videoRef == "" {
		return invalidArgumentsError("the load argument must carry a video reference")
	}

	var cfg bridge.LoadConfig
	if req.PostFormValue(startTimeArg) != "" {
		startTime, err := formInt(req, startTimeArg)
		if err != nil {
			return invalidArgumentsError("the startTime argument must be an integer of seconds")
		}

		cfg.StartTimeSeconds = startTime
	}

	s.outLog.Printf("loading '%s' into session %d due to request from %s\n", videoRef, id, req.RemoteAddr)
	result, err := s.bridge.Load(id, videoRef, cfg)
	if err != nil {
		return err
	}

	resp.SetPayload(result)
	return nil
}

func (s *Server) playHandler(req *http.Request, resp *common.FormResponse) error {
	return s.boolCommandHandler(req, playArg, s.bridge.Play)
}

func (s *Server) pauseHandler(req *http.Request, resp *common.FormResponse) error {
	return s.boolCommandHandler(req, pauseArg, s.bridge.Pause)
}

func (s *Server) stopHandler(req *http.Request, resp *common.FormResponse) error {
	return s.boolCommandHandler(req, stopArg, s.bridge.Stop)
}

func (s *Server) seekHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	position, err := formInt(req, seekArg)
	if err != nil {
		return invalidArgumentsError("the seek argument must be an integer of seconds")
	}

	s.outLog.Printf("seeking to %ds in session %d due to request from %s\n", position, id, req.RemoteAddr)
	return s.bridge.Seek(id, position)
}

func (s *Server) fullscreenHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	fullscreen, err := formBool(req, fullscreenArg)
	if err != nil {
		return invalidArgumentsError("the fullscreen argument must be a boolean")
	}

	s.outLog.Printf("changing fullscreen to %t for session %d due to request from %s\n", fullscreen, id, req.RemoteAddr)
	return s.bridge.SetFullscreen(id, fullscreen)
}

func (s *Server) liveStateHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	live, err := formBool(req, liveStateArg)
	if err != nil || !live {
		return nil
	}

	return s.bridge.SetLiveState(id)
}

func (s *Server) liveStartDateHandler(req *http.Request, resp *common.FormResponse) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	return s.bridge.ShowLiveStartDate(id, req.PostFormValue(liveStartDateArg))
}

// boolCommandHandler runs command for the addressed session when the argument parses to true.
func (s *Server) boolCommandHandler(req *http.Request, argName string, command func(id int) error) error {
	id, err := sessionID(req)
	if err != nil {
		return err
	}

	requested, err := formBool(req, argName)
	if err != nil || !requested {
		return nil
	}

	s.outLog.Printf("dispatching %s to session %d due to request from %s\n", argName, id, req.RemoteAddr)
	return command(id)
}

// getPlaybackHandler serves the read-only queries: position, duration and rate.
func (s *Server) getPlaybackHandler(res http.ResponseWriter, req *http.Request) {
	id, err := strconv.Atoi(req.URL.Query().Get(idArg))
	if err != nil {
		writeQueryError(res, invalidArgumentsError("the id query parameter is required and must be an integer"))
		return
	}

	position, err := s.bridge.Position(id)
	if err != nil {
		writeQueryError(res, err)
		return
	}

	duration, err := s.bridge.Duration(id)
	if err != nil {
		writeQueryError(res, err)
		return
	}

	rate, err := s.bridge.Rate(id)
	if err != nil {
		writeQueryError(res, err)
		return
	}

	out, err := json.Marshal(queriesPayload{
		PositionSeconds: position,
		DurationSeconds: duration,
		Rate:            rate,
	})
	if err != nil {
		res.WriteHeader(500)
		res.Write([]byte(fmt.Sprintf("could not marshal to JSON: %s", err)))

		return
	}

	res.WriteHeader(200)
	res.Write(out)
}

func writeQueryError(res http.ResponseWriter, err error) {
	status, payload := mapCommandError(err)
	out, marshalErr := json.Marshal(common.FormResponse{Error: &payload})
	if marshalErr != nil {
		res.WriteHeader(500)
		return
	}

	res.WriteHeader(status)
	res.Write(out)
}

func validateNonEmpty(argName string) common.FormArgumentValidator {
	return func(req *http.Request) error {
		if req.PostFormValue(argName) == "" {
			return fmt.Errorf("the %s argument must not be empty", argName)
		}

		return nil
	}
}
