package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/placemap/internal/cache"
	"github.com/sells-group/placemap/internal/layer"
	"github.com/sells-group/placemap/internal/model"
)

func (s *Server) handleHealth() http.HandlerFunc {
	type res struct {
		Status string       `json:"status"`
		Places int          `json:"places"`
		Layers int          `json:"layers"`
		Cache  *cache.Stats `json:"cache,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		body := res{Status: "ok", Places: len(s.ctrl.Places()), Layers: len(s.ctrl.Entries())}
		if s.cache != nil {
			st := s.cache.Stats()
			body.Cache = &st
		}
		writeJSON(w, r, http.StatusOK, body)
	}
}

func (s *Server) handleListPlaces() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		places := s.ctrl.Places()
		if places == nil {
			places = []model.Place{}
		}
		writeJSON(w, r, http.StatusOK, places)
	}
}

func (s *Server) handleReferencePlace() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := s.ctrl.Reference()
		if !ok {
			writeJSON(w, r, http.StatusNotFound, errorBody{Error: "no reference place", RequestID: requestIDFrom(r.Context())})
			return
		}
		writeJSON(w, r, http.StatusOK, ref)
	}
}

func (s *Server) handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats := s.ctrl.Categories()
		if cats == nil {
			cats = []string{}
		}
		writeJSON(w, r, http.StatusOK, cats)
	}
}

func (s *Server) handleLayers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, layer.Views(s.ctrl.Layers()))
	}
}

func (s *Server) handleLegend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, s.ctrl.Legend())
	}
}

// handleState reports the mutable view state and the registry contents
// without polygon payloads.
func (s *Server) handleState() http.HandlerFunc {
	type entry struct {
		ID        string      `json:"id"`
		Type      layer.Type  `json:"type"`
		PlaceID   string      `json:"place_id"`
		PlaceName string      `json:"place_name"`
		Visible   bool        `json:"visible"`
		Color     layer.Color `json:"color"`
		Records   int         `json:"records"`
	}
	type res struct {
		Filters   layer.Filters   `json:"filters"`
		Selection layer.Selection `json:"selection"`
		Levels    []layer.Level   `json:"levels"`
		Layers    []entry         `json:"layers"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		entries := s.ctrl.Entries()
		body := res{
			Filters:   s.ctrl.Filters(),
			Selection: s.ctrl.Selection(),
			Levels:    s.ctrl.Levels(),
			Layers:    make([]entry, len(entries)),
		}
		for i, e := range entries {
			body.Layers[i] = entry{
				ID: e.ID, Type: e.Type, PlaceID: e.PlaceID, PlaceName: e.PlaceName,
				Visible: e.Visible, Color: e.Color, Records: len(e.TradeAreas) + len(e.HomeZipcodes),
			}
		}
		writeJSON(w, r, http.StatusOK, body)
	}
}

type toggleRes struct {
	LayerID string `json:"layer_id"`
	Active  bool   `json:"active"`
}

func (s *Server) handleToggleTradeArea() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := chi.URLParam(r, "id")
		active, err := s.ctrl.ToggleTradeArea(r.Context(), placeID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toggleRes{LayerID: layer.EntryID(layer.TypeTradeArea, placeID), Active: active})
	}
}

func (s *Server) handleToggleHomeZipcodes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := chi.URLParam(r, "id")
		active, err := s.ctrl.ToggleHomeZipcodes(r.Context(), placeID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toggleRes{LayerID: layer.EntryID(layer.TypeHomeZipcodes, placeID), Active: active})
	}
}

func (s *Server) handleRemoveLayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.ctrl.RemoveLayer(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleToggleVisibility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.ctrl.ToggleVisibility(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleClearLayers clears one layer type given by ?type=, or every layer.
func (s *Server) handleClearLayers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("type")
		if raw == "" {
			s.ctrl.ClearAll()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		t, err := layer.ParseType(raw)
		if err != nil {
			badRequest(w, r, err.Error())
			return
		}
		s.ctrl.ClearByType(t)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSetFilters() http.HandlerFunc {
	type req struct {
		RadiusMeters     *float64 `json:"radius"`
		Categories       []string `json:"categories"`
		ShowNearbyPlaces bool     `json:"show_nearby_places"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}
		f := s.ctrl.Filters()
		if body.RadiusMeters != nil {
			f.RadiusMeters = *body.RadiusMeters
		}
		f.Categories = body.Categories
		f.ShowNearbyPlaces = body.ShowNearbyPlaces
		if err := s.ctrl.SetFilters(f); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, s.ctrl.Filters())
	}
}

func (s *Server) handleSetSelection() http.HandlerFunc {
	type req struct {
		DataType         *string `json:"selected_data_type"`
		ShowTradeAreas   *bool   `json:"show_trade_areas"`
		ShowHomeZipcodes *bool   `json:"show_home_zipcodes"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body req
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}
		if body.DataType != nil {
			t, err := layer.ParseType(*body.DataType)
			if err != nil {
				badRequest(w, r, err.Error())
				return
			}
			if err := s.ctrl.SetSelectedDataType(t); err != nil {
				writeError(w, r, err)
				return
			}
		}
		if body.ShowTradeAreas != nil {
			s.ctrl.SetShowTradeAreas(*body.ShowTradeAreas)
		}
		if body.ShowHomeZipcodes != nil {
			s.ctrl.SetShowHomeZipcodes(*body.ShowHomeZipcodes)
		}
		writeJSON(w, r, http.StatusOK, s.ctrl.Selection())
	}
}

type levelReq struct {
	Selected bool `json:"selected"`
}

func (s *Server) handleSetLevel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, err := strconv.Atoi(chi.URLParam(r, "level"))
		if err != nil {
			badRequest(w, r, "invalid level")
			return
		}
		var body levelReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}
		if err := s.ctrl.SetLevelSelected(level, body.Selected); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, s.ctrl.Levels())
	}
}

func (s *Server) handleSetAllLevels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body levelReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, r, "invalid request body")
			return
		}
		s.ctrl.SetAllLevels(body.Selected)
		writeJSON(w, r, http.StatusOK, s.ctrl.Levels())
	}
}
