package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"kknotes/internal/loader"
	"kknotes/internal/qerrors"

	"github.com/go-chi/render"
	"github.com/golang/glog"
)

type errorResponse struct {
	Message string               `json:"message"`
	Fields  []qerrors.FieldError `json:"fields,omitempty"`
}

// writeError responds with the status that matches err's class.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Message: err.Error()}

	var invalid *qerrors.InvalidRequest
	if errors.As(err, &invalid) {
		resp.Fields = invalid.Fields
	}
	if status >= http.StatusInternalServerError {
		glog.Warningf("%s %s failed: %v\n", r.Method, r.URL.Path, err)
		resp.Message = http.StatusText(status)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, qerrors.ValidationError):
		return http.StatusBadRequest
	case errors.Is(err, qerrors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, qerrors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, qerrors.DuplicateKey), errors.Is(err, qerrors.AlreadyExists):
		return http.StatusConflict
	case errors.Is(err, qerrors.RateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, loader.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	var be *qerrors.BackendError
	if errors.As(err, &be) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return qerrors.NewInvalidRequest("body", "must be valid JSON")
	}
	return nil
}
