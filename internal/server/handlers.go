package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/config"
	"github.com/blue-onyx-go/blueonyx/internal/detecterr"
	"github.com/blue-onyx-go/blueonyx/internal/queue"
	"github.com/blue-onyx-go/blueonyx/internal/worker"
)

// detectionHandler implements POST /v1/vision/detection (§4.9).
func (s *Server) detectionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := newRequestID()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, requestID, "request body exceeds the configured upload limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, requestID, "request body is not a valid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, requestID, "missing required \"image\" multipart field")
		return
	}
	defer func() { _ = file.Close() }()

	jpegBytes := make([]byte, 0, 64*1024)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			jpegBytes = append(jpegBytes, buf[:n]...)
		}
		if readErr != nil {
			break
		}
	}
	uploadSizeBytes.Observe(float64(len(jpegBytes)))

	var override *float64
	if raw := r.FormValue("min_confidence"); raw != "" {
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil || v < 0 || v > 1 {
			s.writeError(w, http.StatusBadRequest, requestID, "min_confidence must be a float in [0,1]")
			return
		}
		override = &v
	}

	item := &queue.Item{
		RequestID:  requestID,
		JPEG:       jpegBytes,
		Threshold:  override,
		EnqueuedAt: time.Now(),
		Reply:      queue.NewReplySink(),
	}

	if !s.queue.TryEnqueue(item) {
		s.recordDropped()
		detectionRequestsTotal.WithLabelValues("busy").Inc()
		s.writeBusyOrTimeout(w, http.StatusServiceUnavailable, requestID, "server busy: request queue is full")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	reply, ok := item.Reply.Wait(ctx.Done())
	if !ok {
		s.recordDropped()
		detectionRequestsTotal.WithLabelValues("timeout").Inc()
		s.writeBusyOrTimeout(w, http.StatusRequestTimeout, requestID, "request timed out waiting for a detection result")
		return
	}

	if reply.Err != nil {
		s.writeDetectorError(w, requestID, reply.Err)
		return
	}

	resp, ok := reply.Result.(worker.Response)
	if !ok {
		s.recordDropped()
		s.writeError(w, http.StatusInternalServerError, requestID, "internal error: malformed worker reply")
		return
	}

	detectionRequestsTotal.WithLabelValues("success").Inc()
	detectionInferenceDuration.Observe(resp.InferenceMs / 1000.0)
	detectionCount.Observe(float64(len(resp.Detections)))

	predictions := make([]PredictionView, len(resp.Detections))
	for i, d := range resp.Detections {
		predictions[i] = PredictionView{
			Label:      d.Label,
			Confidence: d.Confidence,
			XMin:       d.XMin,
			YMin:       d.YMin,
			XMax:       d.XMax,
			YMax:       d.YMax,
		}
	}

	message := ""
	if len(predictions) == 0 {
		message = fmt.Sprintf("no detections at or above effective threshold %.2f", resp.EffectiveThreshold)
	}

	s.writeDetectionResponse(w, http.StatusOK, DetectionResponse{
		Success:             true,
		Predictions:         predictions,
		Count:               len(predictions),
		Message:             message,
		InferenceMs:         resp.InferenceMs,
		ProcessMs:           resp.ProcessMs,
		AnalysisRoundTripMs: resp.AnalysisRoundMs,
		RequestID:           requestID,
	})
}

// writeDetectorError maps a *detecterr.Error surfaced from the worker onto
// the HTTP status table of spec §7. Every call site reaches here only
// after TryEnqueue succeeded, so every such item is counted as dropped
// (§7, §8's `successful_requests + dropped_requests = total_enqueue_attempts`
// invariant) even when the failure — malformed or unsupported image,
// inference failure — is only discovered inside the worker, well after
// the handler's own enqueue-time bookkeeping.
func (s *Server) writeDetectorError(w http.ResponseWriter, requestID string, err error) {
	s.recordDropped()

	kind, ok := detecterr.KindOf(err)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, requestID, err.Error())
		return
	}

	switch kind {
	case detecterr.KindMalformedImage, detecterr.KindUnsupportedFormat:
		detectionRequestsTotal.WithLabelValues("malformed").Inc()
		s.writeError(w, http.StatusBadRequest, requestID, err.Error())
	case detecterr.KindPayloadTooLarge:
		s.writeError(w, http.StatusRequestEntityTooLarge, requestID, err.Error())
	case detecterr.KindInferenceFailure:
		detectionRequestsTotal.WithLabelValues("inference_failure").Inc()
		s.writeError(w, http.StatusInternalServerError, requestID, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, requestID, err.Error())
	}
}

func (s *Server) recordDropped() {
	if s.stats != nil {
		s.stats.RecordDropped()
	}
}

// writeBusyOrTimeout writes a success=false DetectionResponse for the
// queue-full and per-request-deadline paths, which never reach the
// detector and so carry no detector-side error Kind.
func (s *Server) writeBusyOrTimeout(w http.ResponseWriter, status int, requestID, message string) {
	s.writeError(w, status, requestID, message)
}

func (s *Server) writeError(w http.ResponseWriter, status int, requestID, message string) {
	s.writeDetectionResponse(w, status, DetectionResponse{
		Success:   false,
		Message:   message,
		RequestID: requestID,
	})
}

// writeDetectionResponse stamps the four wire-contract constant fields
// (§6: moduleId, moduleName, code, command) onto resp before encoding, so
// every call site only has to fill in the fields that actually vary.
func (s *Server) writeDetectionResponse(w http.ResponseWriter, status int, resp DetectionResponse) {
	resp.ModuleID = blueOnyxModuleID
	resp.ModuleName = blueOnyxModuleName
	resp.Command = detectCommand
	resp.Code = status
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// statsHandler implements GET /stats: a JSON snapshot of the statistics
// aggregator (§4.10).
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "statistics not available"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// indexHandler implements GET / : a minimal static index page.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexPageHTML(s.detectorFamily()))
}

// testHandler implements GET /test: an HTML form exercising the detection
// endpoint from the browser.
func (s *Server) testHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, testPageHTML)
}

func (s *Server) detectorFamily() string {
	if s.detector == nil {
		return "unknown"
	}
	return s.detector.Family()
}

// faviconHandler implements GET /favicon.ico by serving the embedded SVG
// icon (spec §4.9's "embedded static assets").
func (s *Server) faviconHandler(w http.ResponseWriter, r *http.Request) {
	data, err := staticFS.Open("favicon.svg")
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	defer func() { _ = data.Close() }()
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = io.Copy(w, data)
}

// configHandler implements GET|POST /config (§6): read the running
// configuration, or validate and persist an updated one. An update with
// restart_on_config_change set only records the restart request; it does
// not shut the server down.
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.cfgMu.RLock()
		cfg := s.cfg
		s.cfgMu.RUnlock()
		s.writeJSON(w, http.StatusOK, cfg)
	case http.MethodPost:
		s.handleConfigUpdate(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var updated config.Config
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := updated.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	if s.configPath != "" {
		if err := config.PersistEffectiveConfig(&updated, s.configPath); err != nil {
			http.Error(w, fmt.Sprintf("failed to persist configuration: %v", err), http.StatusInternalServerError)
			return
		}
	}

	s.cfgMu.Lock()
	s.cfg = updated
	restart := updated.Server.RestartOnConfigChange
	s.restartRequested = restart
	s.cfgMu.Unlock()

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"message": "configuration persisted",
		"restart": restart,
	})
}

// RestartRequested reports whether the most recent /config update asked
// for a respawn, consulted by the CLI layer after Shutdown returns.
func (s *Server) RestartRequested() bool {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.restartRequested
}
