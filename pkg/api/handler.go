package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"labscribe/pkg/config"
	"labscribe/pkg/labscribe"
	"labscribe/pkg/sheets"

	log "github.com/sirupsen/logrus"
)

// Server exposes the session workflows over HTTP. The spreadsheet and
// worksheet query parameters override the configured defaults.
type Server struct {
	provider sheets.Provider
	defaults config.Defaults
}

func NewServer(provider sheets.Provider, defaults config.Defaults) *Server {
	return &Server{provider: provider, defaults: defaults}
}

var errNoSpreadsheet = errors.New("no spreadsheet given and no default configured")

func (s *Server) session(r *http.Request) (*labscribe.Session, error) {
	q := r.URL.Query()
	spreadsheet := s.defaults.Spreadsheet
	if v := q.Get("spreadsheet"); v != "" {
		spreadsheet = v
	}
	if spreadsheet == "" {
		return nil, errNoSpreadsheet
	}
	worksheet := s.defaults.Worksheet
	if q.Has("worksheet") {
		worksheet = q.Get("worksheet")
	}
	return labscribe.NewSession(s.provider, spreadsheet, worksheet), nil
}

func getIndex(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) initMetrics(w http.ResponseWriter, r *http.Request) {
	var req InitMetricsRequest
	sess, ok := s.prepare(w, r, &req)
	if !ok {
		return
	}
	block, err := sess.InitMetrics(r.Context(), req.Experiment, req.MetricKeys, req.Phases)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, InitMetricsResponse{Row: block.Row, PhaseColumns: block.Layout.Columns()})
}

func (s *Server) uploadMetrics(w http.ResponseWriter, r *http.Request) {
	var req MetricsRequest
	sess, ok := s.prepare(w, r, &req)
	if !ok {
		return
	}
	iter, err := cellValue(req.Iter)
	if err != nil {
		sendError(w, r, badRequest(fmt.Errorf("iter: %w", err)))
		return
	}
	row := req.Row
	if row > 0 {
		col := req.Col
		if col == 0 {
			col = 1
		}
		err = sess.UploadMetricsAt(r.Context(), req.Metrics, iter, row, col)
	} else {
		row, err = sess.UploadMetrics(r.Context(), req.Metrics, iter, req.Col)
	}
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, RowResponse{Row: row})
}

func (s *Server) beginExperiment(w http.ResponseWriter, r *http.Request) {
	var req BeginExperimentRequest
	sess, ok := s.prepare(w, r, &req)
	if !ok {
		return
	}
	if req.Experiment == "" {
		sendError(w, r, badRequest(errors.New("experiment is required")))
		return
	}
	row, err := sess.BeginExperiment(r.Context(), req.Experiment, req.Args)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, RowResponse{Row: row})
}

func (s *Server) uploadResults(w http.ResponseWriter, r *http.Request) {
	var req ResultsRequest
	sess, ok := s.prepare(w, r, &req)
	if !ok {
		return
	}
	row, col := req.Row, req.Col
	if row == 0 {
		row = 1
	}
	if col == 0 {
		col = 1
	}
	if err := sess.UploadResults(r.Context(), req.Experiment, req.Results, row, col); err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, RowResponse{Row: row})
}

func (s *Server) addRow(w http.ResponseWriter, r *http.Request) {
	var req RowRequest
	sess, ok := s.prepare(w, r, &req)
	if !ok {
		return
	}
	values, err := cellValues(req.Values)
	if err != nil {
		sendError(w, r, badRequest(err))
		return
	}
	if err := sess.AddRow(r.Context(), values); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearWorksheet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		sendError(w, r, badRequest(err))
		return
	}
	if err := sess.ClearWorksheet(r.Context()); err != nil {
		sendError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// prepare decodes the request body into req and builds the session.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request, req interface{}) (*labscribe.Session, bool) {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		sendError(w, r, badRequest(fmt.Errorf("decode body: %w", err)))
		return nil, false
	}
	sess, err := s.session(r)
	if err != nil {
		sendError(w, r, badRequest(err))
		return nil, false
	}
	return sess, true
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err} }

func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr), errors.Is(err, labscribe.ErrLayout):
		return http.StatusBadRequest
	case errors.Is(err, sheets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrAuth), errors.Is(err, sheets.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log.WithFields(log.Fields{"path": r.URL.Path, "status": status}).Warn(err)
	sendJSON(w, status, ErrorResponse{Error: err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Failed to encode response: %v", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	sendResponse(w, status, body)
}

func sendResponse(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
