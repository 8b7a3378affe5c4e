package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	methodsSeparator = ", "

	accessControlAllowOriginHeader  = "Access-Control-Allow-Origin"
	accessControlAllowMethodsHeader = "Access-Control-Allow-Methods"
	accessControlAllowHeadersHeader = "Access-Control-Allow-Headers"

	allowedOrigins = "*"
	allowedHeaders = "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Method"
)

// ErrorPayload is the structured error shape observed by command callers:
// a stable machine-readable code and a human-readable message.
// Callers must not parse the message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FormResponse is the JSON shape of every form command response.
type FormResponse struct {
	ArgumentErrors map[string]string `json:"argumentErrors,omitempty"`
	Error          *ErrorPayload     `json:"error,omitempty"`
	Payload        interface{}       `json:"payload,omitempty"`
}

// SetPayload records a command result to be sent back to the caller.
func (r *FormResponse) SetPayload(payload interface{}) {
	r.Payload = payload
}

type FormArgumentHandler func(req *http.Request, resp *FormResponse) error
type FormArgumentValidator func(req *http.Request) error

// FormArgument pairs optional validation with handling of a single form argument.
// Validation of all provided arguments precedes dispatch of any handler.
type FormArgument struct {
	Handle   FormArgumentHandler
	Validate FormArgumentValidator
}

// ErrorMapper translates a handler error into an HTTP status code and the structured
// error payload exposed to the caller.
type ErrorMapper func(err error) (int, ErrorPayload)

// MethodHandlers specify a map between a http method and its respective handler function.
type MethodHandlers map[string]http.HandlerFunc

// PathHandlerConfig specifies per-path behavior for the path handling middleware.
type PathHandlerConfig struct {
	MethodHandlers
	AllowCORS bool
}

// PathHandler returns a function acting as a middleware before handling specified path.
func PathHandler(cfg PathHandlerConfig) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		if cfg.AllowCORS {
			res.Header().Set(accessControlAllowOriginHeader, allowedOrigins)
		}

		method := req.Method
		if method == http.MethodOptions {
			optionsHandler(allowedMethods(cfg.MethodHandlers), res)

			return
		}

		handler, ok := cfg.MethodHandlers[method]
		if !ok {
			res.WriteHeader(404)

			return
		}

		handler(res, req)
	}
}

func optionsHandler(methods []string, res http.ResponseWriter) {
	methods = append(methods, http.MethodOptions)

	res.Header().Set(accessControlAllowMethodsHeader, strings.Join(methods, methodsSeparator))
	res.Header().Set(accessControlAllowHeadersHeader, allowedHeaders)
}

func allowedMethods(handlers MethodHandlers) []string {
	var methods []string

	for method := range handlers {
		methods = append(methods, method)
	}

	return methods
}

// CreateFormHandler returns a handler function responsible for validation and routing of
// form arguments to their handlers. Argument errors never reach any handler - they are
// reported per-argument in the response. A handler error stops dispatch and is translated
// through mapError into the structured error payload.
func CreateFormHandler(argHandlers map[string]FormArgument, mapError ErrorMapper) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		response := FormResponse{}

		selectedHandlers, argumentErrors := validateFormRequest(req, argHandlers)
		if len(argumentErrors) != 0 {
			response.ArgumentErrors = argumentErrors
			writeJSONResponse(res, 400, response)

			return
		}

		for _, handler := range selectedHandlers {
			err := handler(req, &response)
			if err != nil {
				status, payload := mapError(err)
				response.Error = &payload
				writeJSONResponse(res, status, response)

				return
			}
		}

		writeJSONResponse(res, 200, response)
	}
}

// validateFormRequest checks form body for arguments and their correctness.
// Result of validation is a list of handlers for arguments present in the request
// and a map of per-argument errors (if any occured).
func validateFormRequest(req *http.Request, arguments map[string]FormArgument) ([]FormArgumentHandler, map[string]string) {
	correctHandlers := []FormArgumentHandler{}
	argumentErrors := map[string]string{}

	err := req.ParseForm()
	if err != nil {
		argumentErrors["form"] = fmt.Sprintf("could not parse form data: %s", err)

		return correctHandlers, argumentErrors
	}

	for argName := range req.PostForm {
		argument, ok := arguments[argName]
		if !ok {
			argumentErrors[argName] = fmt.Sprintf("the %s argument is not recognized", argName)
			continue
		}

		if argument.Validate != nil {
			validateErr := argument.Validate(req)
			if validateErr != nil {
				argumentErrors[argName] = fmt.Sprintf("the %s argument is invalid: %s", argName, validateErr)
				continue
			}
		}

		if argument.Handle == nil {
			continue
		}

		correctHandlers = append(correctHandlers, argument.Handle)
	}

	return correctHandlers, argumentErrors
}

func writeJSONResponse(res http.ResponseWriter, status int, response FormResponse) {
	out, err := json.Marshal(response)
	if err != nil {
		res.WriteHeader(500)
		res.Write([]byte(fmt.Sprintf("could not encode json payload: %s", err)))

		return
	}

	res.WriteHeader(status)
	res.Write(out)
}
