// Package api exposes the likelihood over HTTP: evaluation, parameter and
// range introspection, and chain run management.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/planck-hfi/hillipop/internal/chain"
	"github.com/planck-hfi/hillipop/internal/likelihood"
	"github.com/planck-hfi/hillipop/internal/spectra"
	"github.com/planck-hfi/hillipop/internal/version"
)

// Server serves the likelihood API. The runner may be nil when no theory
// spectra are configured; chain endpoints then answer 503.
type Server struct {
	lk     *likelihood.Likelihood
	store  *chain.Store
	runner *chain.Runner
}

// NewServer creates an API server around a likelihood and its chain store.
func NewServer(lk *likelihood.Likelihood, store *chain.Store, runner *chain.Runner) *Server {
	return &Server{lk: lk, store: store, runner: runner}
}

// ServeMux returns the API routes, intended to be mounted under /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/parameters", s.listParameters)
	mux.HandleFunc("/ranges", s.listRanges)
	mux.HandleFunc("/spectra", s.listSpectra)
	mux.HandleFunc("/likelihood", s.computeLikelihood)
	mux.HandleFunc("/chains", s.chains)
	mux.HandleFunc("/chains/", s.chainByID)
	mux.HandleFunc("/", s.home)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "hillipop likelihood server (%s)\n", version.Version)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}

func (s *Server) listParameters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"parameters": s.lk.Parameters(),
		"modes":      s.lk.ActiveModes(),
		"lmax":       s.lk.Lmax(),
	})
}

type rangeEntry struct {
	Mode string `json:"mode"`
	Lmin []int  `json:"lmin"`
	Lmax []int  `json:"lmax"`
}

func (s *Server) listRanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ranges := s.lk.Ranges()
	out := make([]rangeEntry, 0, spectra.NumModes)
	for m := 0; m < spectra.NumModes; m++ {
		out = append(out, rangeEntry{
			Mode: spectra.ModeNames[m],
			Lmin: ranges.Lmins[m],
			Lmax: ranges.Lmaxs[m],
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ranges": out, "lmax": ranges.Lmax})
}

func (s *Server) listSpectra(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"spectra": s.lk.DataSpectra()})
}

type likelihoodRequest struct {
	Params map[string]float64        `json:"params"`
	Theory *likelihood.TheorySpectra `json:"theory"`
}

func (s *Server) computeLikelihood(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req likelihoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Theory == nil {
		s.writeJSONError(w, http.StatusBadRequest, "theory spectra are required")
		return
	}
	chi2, err := s.lk.Compute(req.Params, req.Theory)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{"chi2": chi2})
}

func (s *Server) chains(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		runs, err := s.store.ListRuns(limit)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})

	case http.MethodPost:
		if s.runner == nil {
			s.writeJSONError(w, http.StatusServiceUnavailable, "no theory spectra configured, chains disabled")
			return
		}
		var cfg chain.RunConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		runID, err := s.runner.StartRun(cfg)
		if err != nil {
			s.writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) chainByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/chains/")
	if id == "" || strings.Contains(id, "/") {
		s.writeJSONError(w, http.StatusNotFound, "unknown chain route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		run, err := s.store.GetRun(id)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if run == nil {
			s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no run %s", id))
			return
		}
		resp := map[string]interface{}{"run": run}
		if r.URL.Query().Get("samples") == "1" {
			from, _ := strconv.Atoi(r.URL.Query().Get("from"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			samples, err := s.store.Samples(id, from, limit)
			if err != nil {
				s.writeJSONError(w, http.StatusInternalServerError, err.Error())
				return
			}
			resp["samples"] = samples
		}
		s.writeJSON(w, http.StatusOK, resp)

	case http.MethodDelete:
		if s.runner == nil || s.runner.CurrentRunID() != id {
			s.writeJSONError(w, http.StatusConflict, fmt.Sprintf("run %s is not active", id))
			return
		}
		s.runner.StopRun()
		s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": "stopping"})

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
