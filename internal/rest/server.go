package rest

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/avkit/player-bridge/internal/common"
	"github.com/avkit/player-bridge/pkg/bridge"
)

const logPrefix = "rest.Server#"

// Config controls behaviour of the REST server.
type Config struct {
	AllowCORS bool
	ErrWriter io.Writer
	OutWriter io.Writer
	Bridge    *bridge.Server
}

// Server is responsible for REST command handling: argument parsing and validation
// precede dispatch to the bridge; every bridge failure is translated to the structured
// error payload.
type Server struct {
	allowCORS bool
	bridge    *bridge.Server
	errLog    *log.Logger
	outLog    *log.Logger
}

// NewServer returns rest.Server instance.
func NewServer(cfg Config) *Server {
	return &Server{
		allowCORS: cfg.AllowCORS,
		bridge:    cfg.Bridge,
		errLog:    log.New(cfg.ErrWriter, logPrefix, log.LstdFlags),
		outLog:    log.New(cfg.OutWriter, logPrefix, log.LstdFlags),
	}
}

// mapCommandError translates bridge failures into HTTP statuses and the structured
// {code, message} payload. Unrecognized errors map to a generic command failure.
func mapCommandError(err error) (int, common.ErrorPayload) {
	cmdErr, ok := bridge.AsCommandError(err)
	if !ok {
		return 500, common.ErrorPayload{Code: bridge.CodeCommandFailed, Message: err.Error()}
	}

	var status int
	switch cmdErr.Code {
	case bridge.CodeInvalidArguments:
		status = 400
	case bridge.CodeSessionNotFound:
		status = 404
	case bridge.CodeSessionNotReady, bridge.CodePresentationUnavailable:
		status = 409
	default:
		status = 500
	}

	return status, common.ErrorPayload{Code: cmdErr.Code, Message: cmdErr.Message}
}

func invalidArgumentsError(message string) *bridge.CommandError {
	return &bridge.CommandError{Code: bridge.CodeInvalidArguments, Message: message}
}

func validateInt(argName string) common.FormArgumentValidator {
	return func(req *http.Request) error {
		_, err := strconv.ParseInt(req.PostFormValue(argName), 10, 64)
		return err
	}
}

func validateBool(argName string) common.FormArgumentValidator {
	return func(req *http.Request) error {
		_, err := strconv.ParseBool(req.PostFormValue(argName))
		return err
	}
}

func formInt(req *http.Request, argName string) (int64, error) {
	return strconv.ParseInt(req.PostFormValue(argName), 10, 64)
}

func formBool(req *http.Request, argName string) (bool, error) {
	return strconv.ParseBool(req.PostFormValue(argName))
}

// sessionID reads the required id argument addressing a session.
func sessionID(req *http.Request) (int, error) {
	id, err := formInt(req, idArg)
	if err != nil {
		return 0, invalidArgumentsError("the id argument is required and must be an integer")
	}

	return int(id), nil
}
