package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	errs "github.com/chris-a-talbot/sparg-viz/pkg/errors"
)

type errorResponse struct {
	Code  errs.Code `json:"code"`
	Error string    `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its HTTP status. Uncoded errors are logged and
// reported as INTERNAL_ERROR without their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	code := errs.GetCode(err)
	msg := errs.UserMessage(err)
	if code == "" || code == errs.ErrCodeInternal {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		code = errs.ErrCodeInternal
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

// Query helpers. A missing parameter yields the default; a malformed one
// an INVALID_PARAMETER error.

func intParam(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.New(errs.ErrCodeInvalidParameter, "%s must be an integer, got %q", key, s)
	}
	return v, nil
}

func optionalIntParam(r *http.Request, key string) (*int, error) {
	if r.URL.Query().Get(key) == "" {
		return nil, nil
	}
	v, err := intParam(r, key, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func floatParam(r *http.Request, key string, def float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errs.New(errs.ErrCodeInvalidParameter, "%s must be a number, got %q", key, s)
	}
	return v, nil
}

func boolParam(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errs.New(errs.ErrCodeInvalidParameter, "%s must be a boolean, got %q", key, s)
	}
	return v, nil
}
