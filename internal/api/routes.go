package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/drone-relay/drc/internal/mailbox"
)

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	apiV1 := "/api/v1"

	// Service banner and health need no credential.
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	if s.authMiddleware == nil {
		mux.HandleFunc(apiV1+"/position", s.handlePosition)
		mux.HandleFunc(apiV1+"/command", s.handleCommand)
		mux.HandleFunc(apiV1+"/status", s.handleStatus)
		return
	}

	mux.HandleFunc(apiV1+"/position", s.authMiddleware.RequireAuth(s.handlePosition))
	mux.HandleFunc(apiV1+"/command", s.authMiddleware.RequireAuth(s.handleCommand))
	mux.HandleFunc(apiV1+"/status", s.authMiddleware.RequireAuth(s.handleStatus))
}

// handlePosition handles GET/POST /position.
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleReadPosition(w, r)
	case http.MethodPost:
		s.handleWritePosition(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET and POST methods are allowed", nil)
	}
}

// handleWritePosition handles POST /position: the vehicle reporting a new
// target fix.
func (s *Server) handleWritePosition(w http.ResponseWriter, r *http.Request) {
	// Strict JSON: unknown fields and trailing data are rejected, and a
	// non-numeric lat/lon/accuracy fails decoding, which is the same
	// InvalidPayload outcome as a missing field.
	var req struct {
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
		Accuracy  *float64 `json:"accuracy"`
		RequestID string   `json:"requestId"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD",
			"Malformed position payload", nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD",
			"Trailing data after JSON object", nil)
		return
	}

	rec, err := s.position.Write(mailbox.TargetInput{
		Lat:       req.Lat,
		Lon:       req.Lon,
		AccuracyM: req.Accuracy,
		RequestID: req.RequestID,
	})
	if err != nil {
		WriteMailboxError(w, err)
		return
	}

	if s.auditLog != nil {
		s.auditLog.LogAction(r.Context(), "writePosition", map[string]interface{}{
			"lat":       rec.Lat,
			"lon":       rec.Lon,
			"accuracyM": rec.AccuracyM,
			"requestId": rec.RequestID,
		}, nil)
	}

	WriteSuccess(w, map[string]interface{}{"stored": rec})
}

// handleReadPosition handles GET /position: the console polling the last
// known target.
func (s *Server) handleReadPosition(w http.ResponseWriter, r *http.Request) {
	rec, age, err := s.position.Read()
	if err != nil {
		WriteMailboxError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"target":     rec,
		"ageSeconds": age,
	})
}

// handleCommand handles GET/POST /command.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleReadCommand(w, r)
	case http.MethodPost:
		s.handleWriteCommand(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET and POST methods are allowed", nil)
	}
}

// handleWriteCommand handles POST /command: the console issuing a
// maneuver. The slot is overwritten unconditionally; there is no queueing
// and no acknowledgment of the previous command.
func (s *Server) handleWriteCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Malformed JSON or unknown fields", nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Trailing data after JSON object", nil)
		return
	}

	cmd := mailbox.Command(req.Command)
	if err := s.command.Write(cmd); err != nil {
		WriteMailboxError(w, err)
		return
	}

	if s.auditLog != nil {
		s.auditLog.LogAction(r.Context(), "writeCommand", map[string]interface{}{
			"command": string(cmd),
		}, nil)
	}

	WriteSuccess(w, map[string]interface{}{"command": string(cmd)})
}

// handleReadCommand handles GET /command: the vehicle polling for a
// pending maneuver. Reading never consumes the slot; "no command pending"
// is a success with a null payload, never an error.
func (s *Server) handleReadCommand(w http.ResponseWriter, r *http.Request) {
	cmd, age, pending, err := s.command.Read()
	if err != nil {
		WriteMailboxError(w, err)
		return
	}
	if !pending {
		WriteSuccess(w, nil)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"command":    string(cmd),
		"ageSeconds": age,
	})
}

// handleStatus handles GET/POST /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleReadStatus(w, r)
	case http.MethodPost:
		s.handleAppendStatus(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET and POST methods are allowed", nil)
	}
}

// handleAppendStatus handles POST /status: the vehicle pushing a free-text
// status message. An absent or empty message is a no-op success.
func (s *Server) handleAppendStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Malformed JSON or unknown fields", nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Trailing data after JSON object", nil)
		return
	}

	if req.Message == "" {
		WriteSuccess(w, nil)
		return
	}

	entry, err := s.status.Append(req.Message)
	if err != nil {
		WriteMailboxError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{"entry": entry})
}

// handleReadStatus handles GET /status?limit=N: the console fetching the
// recent feed, newest first.
func (s *Server) handleReadStatus(w http.ResponseWriter, r *http.Request) {
	limit := s.statusReadDefault
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
				"limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	entries, err := s.status.Recent(limit)
	if err != nil {
		WriteMailboxError(w, err)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleRoot handles GET /: the service banner.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
		return
	}
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"service": "drc",
		"version": Version,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	uptime := 0.0
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Seconds()
	}

	subsystems := map[string]bool{
		"storage":  s.store != nil && s.store.Ping() == nil,
		"position": s.position != nil,
		"command":  s.command != nil,
		"status":   s.status != nil,
	}

	overallStatus := "ok"
	for _, healthy := range subsystems {
		if !healthy {
			overallStatus = "degraded"
		}
	}

	health := map[string]interface{}{
		"status":     overallStatus,
		"uptimeSec":  uptime,
		"version":    Version,
		"subsystems": subsystems,
	}

	if overallStatus == "ok" {
		WriteSuccess(w, health)
		return
	}
	WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
		"One or more subsystems are unavailable", health)
}
