package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

// errMalformedBody marks a request body that is not valid JSON for its shape.
var errMalformedBody = errors.New("malformed request body")

// statusOf maps an error kind to its HTTP status and problem type.
func statusOf(kind domain.Kind) (int, string) {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound, "not_found"
	case domain.KindConflict:
		return http.StatusConflict, "conflict"
	case domain.KindForbidden:
		return http.StatusForbidden, "forbidden"
	case domain.KindValidation:
		return http.StatusUnprocessableEntity, "validation_error"
	case domain.KindStuck:
		return http.StatusConflict, "stuck"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// fail writes err as a problem document. Internal errors are logged and their detail withheld.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errMalformedBody) {
		s.problem(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	status, typ := statusOf(domain.KindOf(err))
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		s.problem(w, r, status, typ, "internal error")
		return
	}
	s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	s.problem(w, r, status, typ, domain.DetailOf(err))
}

func (s *Server) problem(w http.ResponseWriter, r *http.Request, status int, typ, detail string) {
	p := problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(typ).
		WithDetail(detail)

	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		s.logger.Error("problem encode failed", "err", err)
	}
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errMalformedBody, err)
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalidf("parse path", "%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}
