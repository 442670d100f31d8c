package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// UserID accepts a JSON string or number.
type UserID string

func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*u = UserID(n.String())
	return nil
}

// StartRequest is the body of POST /start.
type StartRequest struct {
	UserID UserID `json:"user_id"`
	FormID int64  `json:"form_id"`
}

// AnswersRequest is the body of submit and step update calls.
type AnswersRequest struct {
	Answers []domain.AnswerInput `json:"answers"`
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.UserID == "" || req.FormID <= 0 {
		s.fail(w, r, domain.Invalidf("start", "user_id and form_id are required"))
		return
	}

	inst, err := s.engine.StartInstance(r.Context(), req.FormID, string(req.UserID))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.engine.CurrentStep(r.Context(), inst.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) currentStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "instanceID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.engine.CurrentStep(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "instanceID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req AnswersRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.engine.SubmitStep(r.Context(), id, req.Answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) openStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "instanceID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.engine.OpenStep(r.Context(), chi.URLParam(r, "formCode"), id, chi.URLParam(r, "stepCode"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) updateStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "instanceID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req AnswersRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.engine.UpdateStep(r.Context(), chi.URLParam(r, "formCode"), id, chi.URLParam(r, "stepCode"), req.Answers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}
