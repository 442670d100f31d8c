package http

import (
	"net/http"

	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/go-chi/chi/v5"
)

func (s *Server) adminRoutes(r chi.Router) {
	r.Route("/forms", func(r chi.Router) {
		r.Post("/", s.createForm)
		r.Get("/", s.listForms)
		r.Route("/{formID}", func(r chi.Router) {
			r.Get("/", s.getForm)
			r.Post("/steps", s.createStep)
			r.Get("/steps", s.listSteps)
			r.Put("/steps/{stepID}", s.updateFormStep)
			r.Get("/steps/{stepID}/routes", s.listRoutes)
			r.Post("/steps/{stepID}/routes", s.createRoute)
			r.Get("/steps/{stepID}/graph", s.graph)
			r.Get("/routes/{routeID}", s.getRoute)
			r.Put("/routes/{routeID}", s.updateRoute)
		})
	})
	r.Post("/dictionaries", s.createDictionary)
	r.Get("/dictionaries", s.listDictionaries)
	r.Post("/steps/{stepID}/fields", s.createField)
	r.Get("/steps/{stepID}/fields", s.listFields)
}

// ids parses the named path parameters in order.
func ids(r *http.Request, names ...string) ([]int64, error) {
	out := make([]int64, len(names))
	for i, name := range names {
		id, err := pathID(r, name)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// respond writes v with status, or the problem for err.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, status, v)
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	var req authoring.CreateFormRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	form, err := s.admin.CreateForm(r.Context(), req)
	s.respond(w, r, http.StatusOK, form, err)
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.admin.ListForms(r.Context())
	s.respond(w, r, http.StatusOK, forms, err)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "formID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	form, err := s.admin.GetForm(r.Context(), id)
	s.respond(w, r, http.StatusOK, form, err)
}

func (s *Server) createStep(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "formID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req authoring.CreateStepRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	step, err := s.admin.CreateStep(r.Context(), id, req)
	s.respond(w, r, http.StatusOK, step, err)
}

func (s *Server) listSteps(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "formID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	steps, err := s.admin.ListSteps(r.Context(), id)
	s.respond(w, r, http.StatusOK, steps, err)
}

func (s *Server) updateFormStep(w http.ResponseWriter, r *http.Request) {
	p, err := ids(r, "formID", "stepID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req authoring.UpdateStepRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	step, err := s.admin.UpdateStep(r.Context(), p[0], p[1], req)
	s.respond(w, r, http.StatusOK, step, err)
}

func (s *Server) createDictionary(w http.ResponseWriter, r *http.Request) {
	var req authoring.CreateDictionaryRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	dict, err := s.admin.CreateDictionary(r.Context(), req)
	s.respond(w, r, http.StatusCreated, dict, err)
}

func (s *Server) listDictionaries(w http.ResponseWriter, r *http.Request) {
	dicts, err := s.admin.ListDictionaries(r.Context())
	s.respond(w, r, http.StatusOK, dicts, err)
}

func (s *Server) createField(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "stepID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req authoring.CreateFieldRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	field, err := s.admin.CreateField(r.Context(), id, req)
	s.respond(w, r, http.StatusOK, field, err)
}

func (s *Server) listFields(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "stepID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fields, err := s.admin.ListFields(r.Context(), id)
	s.respond(w, r, http.StatusOK, fields, err)
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	p, err := ids(r, "formID", "stepID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	routes, err := s.admin.ListRoutes(r.Context(), p[0], p[1])
	s.respond(w, r, http.StatusOK, routes, err)
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	p, err := ids(r, "formID", "stepID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req authoring.RouteRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	route, err := s.admin.CreateRoute(r.Context(), p[0], p[1], req)
	s.respond(w, r, http.StatusCreated, route, err)
}

func (s *Server) getRoute(w http.ResponseWriter, r *http.Request) {
	p, err := ids(r, "formID", "routeID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	route, err := s.admin.GetRoute(r.Context(), p[0], p[1])
	s.respond(w, r, http.StatusOK, route, err)
}

func (s *Server) updateRoute(w http.ResponseWriter, r *http.Request) {
	p, err := ids(r, "formID", "routeID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req authoring.RouteRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	route, err := s.admin.UpdateRoute(r.Context(), p[0], p[1], req)
	s.respond(w, r, http.StatusOK, route, err)
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	p, err := ids(r, "formID", "stepID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	g, err := s.admin.Graph(r.Context(), p[0], p[1])
	s.respond(w, r, http.StatusOK, g, err)
}
