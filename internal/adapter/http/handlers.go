package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/rbn-top-calls/internal/dashboard"
	"github.com/couchcryptid/rbn-top-calls/internal/export"
	"github.com/couchcryptid/rbn-top-calls/internal/pipeline"
)

// handleCalculate streams per-day progress as Server-Sent Events and ends
// with a single result, nodata, or error event. An invalid query is reported
// as an error event too, since EventSource cannot read non-200 bodies.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	rc := s.longRunning(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("encode event", "event", event, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		_ = rc.Flush()
	}

	q, err := s.parseQuery(r)
	if err != nil {
		s.logger.Warn("invalid calculate query", "query", r.URL.RawQuery, "error", err)
		send("error", map[string]string{"error": err.Error()})
		return
	}

	res, err := s.calc.Calculate(r.Context(), q, func(p pipeline.Progress) { send("progress", p) })
	switch {
	case err != nil:
		s.logger.Error("calculation failed", "error", err)
		send("error", map[string]string{"error": err.Error()})
	case res.NoData:
		send("nodata", res)
	default:
		send("result", res)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.result(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	res, ok := s.downloadable(w, r)
	if !ok {
		return
	}
	setAttachment(w, "text/csv; charset=utf-8", s.opts.CSVName)
	if err := export.WriteCSV(w, res.Report.Entries); err != nil {
		s.logger.Error("write csv download", "error", err)
	}
}

func (s *Server) handleDownloadText(w http.ResponseWriter, r *http.Request) {
	res, ok := s.downloadable(w, r)
	if !ok {
		return
	}
	setAttachment(w, "text/plain; charset=utf-8", s.opts.TextName)
	if err := export.WriteText(w, res.Report.Entries); err != nil {
		s.logger.Error("write text download", "error", err)
	}
}

// result parses the query and calculates it, writing the error response
// itself when either step fails.
func (s *Server) result(w http.ResponseWriter, r *http.Request) (dashboard.Result, bool) {
	q, err := s.parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return dashboard.Result{}, false
	}
	s.longRunning(w)
	res, err := s.calc.Calculate(r.Context(), q, nil)
	if err != nil {
		s.logger.Error("calculation failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrInvalidRange) || errors.Is(err, pipeline.ErrInvalidTopN) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return dashboard.Result{}, false
	}
	return res, true
}

func (s *Server) downloadable(w http.ResponseWriter, r *http.Request) (dashboard.Result, bool) {
	res, ok := s.result(w, r)
	if !ok {
		return res, false
	}
	if res.NoData {
		s.logger.Warn("download requested for empty ranking", "path", r.URL.Path, "query", r.URL.RawQuery)
		http.Error(w, "no data after filtering", http.StatusNotFound)
		return res, false
	}
	return res, true
}

// longRunning lifts the server write timeout for handlers that may run the
// pipeline.
func (s *Server) longRunning(w http.ResponseWriter) *http.ResponseController {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("clear write deadline", "error", err)
	}
	return rc
}

func setAttachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
