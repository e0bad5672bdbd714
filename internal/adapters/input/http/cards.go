package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"media-player-card/internal/domain/cardconfig"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/ports"
)

const maxBody = 1 << 20

func (s *Server) registerCardRoutes(r chi.Router) {
	r.Route("/cards", func(r chi.Router) {
		r.Get("/", s.handleListCards)
		r.Route("/{card}", func(r chi.Router) {
			r.Get("/", s.handleRenderCard)
			r.Post("/actions/{action}", s.handleInvokeAction)
			r.Post("/controls/{control}/press", s.handlePressControl)
			r.Post("/bars/{bar}/buttons/{button}/press", s.handlePressButton)
		})
	})
}

func (s *Server) registerAdminRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/config", s.handleGetConfig)
		r.Post("/config", s.handleUpdateConfig)
		r.Get("/ha-entities", s.handleHAEntities)
		r.Post("/cards", s.handleAddCard)
		r.Route("/cards/{card}", func(r chi.Router) {
			r.Get("/", s.handleGetCardConfig)
			r.Put("/", s.handleUpdateCard)
			r.Patch("/", s.handleSetField)
			r.Delete("/", s.handleDeleteCard)
			r.Post("/debug", s.handleDebugCall)
		})
	})
}

type actionRequest struct {
	Args []string `json:"args"`
}

type actionResponse struct {
	Accepted bool   `json:"accepted"`
	Settled  bool   `json:"settled,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cards.ListCards(r.Context()))
}

// handleRenderCard is the render pass: it also releases controls left busy by
// earlier actions.
func (s *Server) handleRenderCard(w http.ResponseWriter, r *http.Request) {
	rm, err := s.cards.RenderCard(r.Context(), chi.URLParam(r, "card"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleInvokeAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	out, err := s.cards.InvokeAction(r.Context(), chi.URLParam(r, "card"), chi.URLParam(r, "action"), req.Args...)
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handlePressControl(w http.ResponseWriter, r *http.Request) {
	out, err := s.cards.PressControl(r.Context(), chi.URLParam(r, "card"), chi.URLParam(r, "control"))
	s.writeOutcome(w, r, out, err)
}

func (s *Server) handlePressButton(w http.ResponseWriter, r *http.Request) {
	bar, err1 := strconv.Atoi(chi.URLParam(r, "bar"))
	button, err2 := strconv.Atoi(chi.URLParam(r, "button"))
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "bar and button must be numbers")
		return
	}
	out, err := s.cards.PressButton(r.Context(), chi.URLParam(r, "card"), bar, button)
	s.writeOutcome(w, r, out, err)
}

// writeOutcome answers 202 as soon as the action is started. With ?wait=true
// it waits for the Home Assistant call and reports its result.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out ports.Outcome, err error) {
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if out.Rejected() {
		writeJSON(w, statusFor(out.Err()), actionResponse{Error: out.Err().Error()})
		return
	}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, actionResponse{Accepted: true})
		return
	}
	if err := out.Wait(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, actionResponse{Accepted: true, Settled: true, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Accepted: true, Settled: true})
}

type configRequest struct {
	HassURL   string `json:"hass_url"`
	HassToken string `json:"hass_token"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	store, err := s.cards.GetConfig(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cards.UpdateConfig(r.Context(), req.HassURL, req.HassToken); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHAEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.cards.GetAllEntities(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

// readCard parses a YAML or JSON card body. An empty body yields nil.
func readCard(r *http.Request) (*model.CardConfig, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	return cardconfig.Parse(body)
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	cfg, err := readCard(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	created, err := s.cards.AddCard(r.Context(), cfg)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetCardConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.cards.CardConfig(r.Context(), chi.URLParam(r, "card"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	cfg, err := readCard(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusBadRequest, "empty card config")
		return
	}
	id := chi.URLParam(r, "card")
	if err := s.cards.UpdateCard(r.Context(), id, cfg); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.handleGetCardConfig(w, r)
}

type fieldRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type fieldResponse struct {
	Config  *model.CardConfig `json:"config"`
	Changed bool              `json:"changed"`
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, changed, err := s.cards.SetField(r.Context(), chi.URLParam(r, "card"), req.Key, req.Value)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fieldResponse{Config: cfg, Changed: changed})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.cards.DeleteCard(r.Context(), chi.URLParam(r, "card")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type debugRequest struct {
	Service string         `json:"service"`
	Data    map[string]any `json:"data"`
}

func (s *Server) handleDebugCall(w http.ResponseWriter, r *http.Request) {
	var req debugRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	changed, err := s.cards.DebugCall(r.Context(), chi.URLParam(r, "card"), req.Service, req.Data)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changed)
}
