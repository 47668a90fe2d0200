package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"guide-booking/pkg/sl"
)

type Response struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST   ErrCode = "REQUEST_FAILED"
	BAD_REQUEST      ErrCode = "FAILED_TO_DECODE"
	VALIDATION       ErrCode = "VALIDATION_ERROR"
	NOT_FOUND        ErrCode = "NOT_FOUND"
	FORBIDDEN        ErrCode = "FORBIDDEN"
	UNAUTHORIZED     ErrCode = "UNAUTHORIZED"
	LOCKED           ErrCode = "LOCKED"
	CONFLICT         ErrCode = "CONFLICT"
	EXTERNAL_SERVICE ErrCode = "EXTERNAL_SERVICE_ERROR"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLocked       = errors.New("resource is locked")
	ErrExternal     = errors.New("external service failed")
)

// DetailError carries a client-facing message alongside its error kind.
type DetailError struct {
	Kind error
	Msg  string
}

func (e *DetailError) Error() string {
	return e.Kind.Error() + ": " + e.Msg
}

func (e *DetailError) Unwrap() error {
	return e.Kind
}

// Detail attaches msg to one of the sentinel kinds above.
func Detail(kind error, msg string) error {
	return &DetailError{Kind: kind, Msg: msg}
}

func OK(msg string) Response {
	return Response{
		Success: true,
		Message: msg,
	}
}

func Error(code, msg string) Response {
	return Response{
		Success: false,
		Message: msg,
		ResponseError: ResponseError{
			Code:    code,
			Message: msg,
		},
	}
}

// Classify maps an error to its HTTP status and error code.
func Classify(err error) (int, ErrCode) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, VALIDATION
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, UNAUTHORIZED
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, FORBIDDEN
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, NOT_FOUND
	case errors.Is(err, ErrLocked):
		return http.StatusLocked, LOCKED
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CONFLICT
	case errors.Is(err, ErrExternal):
		return http.StatusBadGateway, EXTERNAL_SERVICE
	default:
		return http.StatusInternalServerError, FAILED_REQUEST
	}
}

type verboseKey struct{}

// Verbose marks every request passing through it so that Fail reports the
// full error chain to the client. Enabled outside prod only.
func Verbose(enabled bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), verboseKey{}, true)))
		})
	}
}

func isVerbose(r *http.Request) bool {
	v, _ := r.Context().Value(verboseKey{}).(bool)
	return v
}

// Fail writes the error envelope for err. The client sees the full error
// chain on verbose requests, the attached detail message otherwise, and
// fallback when there is neither.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	status, code := Classify(err)

	msg := fallback
	var detail *DetailError
	switch {
	case isVerbose(r):
		msg = err.Error()
	case errors.As(err, &detail):
		msg = detail.Msg
	}

	if status >= http.StatusInternalServerError {
		log.Error(fallback, sl.Err(err))
	} else {
		log.Warn(fallback, sl.Err(err))
	}

	w.WriteHeader(status)
	render.JSON(w, r, Error(string(code), msg))
}

// BadRequest answers a body that could not be decoded.
func BadRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Warn("Failed to decode request body", sl.Err(err))
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, Error(string(BAD_REQUEST), "failed to decode request"))
}
