package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"callsense/internal/catalog"
	"callsense/internal/dataset"
	"callsense/internal/logging"
	"callsense/internal/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(r.Context())
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "read ledger summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":    s.engine.Status(),
		"ledger": summary,
	})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	rows, err := s.dataset.Load()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "load dataset", err)
		return
	}

	if entity := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("entity"))); entity != "" {
		filtered := rows[:0:0]
		for _, row := range rows {
			if row.Entity == entity {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	if rows == nil {
		rows = []dataset.Row{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rows":    rows,
		"latest":  dataset.LatestPerEntity(rows),
		"sectors": dataset.SectorSummary(rows),
	})
}

func (s *Server) handleCompanies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"companies": s.catalog.All(),
		"stats":     s.catalog.Statistics(),
	})
}

type runRequest struct {
	Mode        string `json:"mode"`
	MaxEntities int    `json:"max_entities"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "incremental"
	}
	if mode != "incremental" && mode != "full" {
		writeError(w, http.StatusBadRequest, "mode must be incremental or full")
		return
	}
	if s.engine.Running() {
		writeError(w, http.StatusConflict, "a run is already active")
		return
	}

	// A full run starts from a clean slate: everything is rescored.
	if mode == "full" {
		if _, err := s.ledger.ClearAll(r.Context()); err != nil {
			s.fail(w, http.StatusInternalServerError, "clear ledger", err)
			return
		}
	}

	entities := s.catalog.Identifiers()
	if req.MaxEntities > 0 && req.MaxEntities < len(entities) {
		entities = entities[:req.MaxEntities]
	}

	// The run outlives the request, so it gets its own context.
	snap, err := s.engine.Start(context.Background(), mode, entities, false)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			writeError(w, http.StatusConflict, "a run is already active")
			return
		}
		s.fail(w, http.StatusInternalServerError, "start run", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":   snap.RunID,
		"mode":     mode,
		"entities": len(entities),
	})
}

type companyRequest struct {
	Name      string  `json:"name"`
	NSECode   string  `json:"nse_code"`
	BSECode   string  `json:"bse_code"`
	Sector    string  `json:"sector"`
	MarketCap float64 `json:"market_cap"`
	Validate  bool    `json:"validate"`
}

func (s *Server) handleAddCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entity, err := s.catalog.Add(r.Context(), catalog.AddParams{
		Name:      req.Name,
		NSECode:   req.NSECode,
		BSECode:   req.BSECode,
		Sector:    req.Sector,
		MarketCap: req.MarketCap,
	}, req.Validate)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrCodeExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, catalog.ErrNameRequired),
			errors.Is(err, catalog.ErrCodeRequired),
			errors.Is(err, catalog.ErrNotValidated):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.fail(w, http.StatusInternalServerError, "add company", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleRemoveCompany(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.catalog.Remove(code); err != nil {
		if errors.Is(err, catalog.ErrNotCustom) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.fail(w, http.StatusInternalServerError, "remove company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type analyzeRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleAnalyzeCompany(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.engine.Single(r.Context(), code, req.Force)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunActive) {
			writeError(w, http.StatusConflict, "a run is already active")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rows == nil {
		rows = []dataset.Row{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity": strings.ToUpper(code),
		"rows":   rows,
	})
}

func (s *Server) fail(w http.ResponseWriter, status int, operation string, err error) {
	s.logger.Error(operation+" failed", logging.Error(err))
	writeError(w, status, operation+" failed")
}

// decodeBody tolerates an empty body so POST endpoints work without one.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("invalid request body: %w", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
