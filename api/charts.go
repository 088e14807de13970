package api

import (
	"fmt"
	"net/http"

	"github.com/planck-hfi/hillipop/internal/report"
)

// AttachChartRoutes mounts the HTML debugging charts. These render
// directly in the browser and are meant for quick inspection without any
// frontend.
func (s *Server) AttachChartRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/chart/spectra", s.chartSpectra)
	mux.HandleFunc("/debug/chart/trace", s.chartTrace)
}

// chartSpectra renders the per-cross-frequency data spectra.
func (s *Server) chartSpectra(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteSpectraChart(w, "Cross-frequency spectra", s.lk.DataSpectra()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

// chartTrace renders the -2lnL trace of a chain run. Query params:
//   - run_id (defaults to the active run)
//   - limit (optional sample cap)
func (s *Server) chartTrace(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" && s.runner != nil {
		runID = s.runner.CurrentRunID()
	}
	if runID == "" {
		s.writeJSONError(w, http.StatusNotFound, "no run to plot; pass run_id")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	samples, err := s.store.Samples(runID, 0, limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(samples) == 0 {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no samples for run %s", runID))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteTraceChart(w, runID, samples); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}
