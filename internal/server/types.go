// Package server implements the HTTP front end described in spec §4.9: the
// detection endpoint, status/stats pages, and the config read/update route,
// all built on the standard library's net/http with the teacher's
// middleware/metrics layering reused wholesale.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/config"
	"github.com/blue-onyx-go/blueonyx/internal/queue"
	"github.com/blue-onyx-go/blueonyx/internal/stats"
)

// Detector is the part of the detector the server calls directly:
// Family() for the index page. Detection itself reaches the detector only
// through the request queue and the worker.
type Detector interface {
	Family() string
}

// Server holds the HTTP front end's dependencies: the bounded request
// queue it enqueues onto, the statistics aggregator it reads/updates, and
// the live configuration it serves from GET /config.
type Server struct {
	queue      *queue.Queue
	stats      *stats.Stats
	detector   Detector
	corsOrigin string

	requestTimeout time.Duration
	maxUploadBytes int64

	cfgMu      sync.RWMutex
	cfg        config.Config
	configPath string

	// restartRequested is set by the /config handler when
	// restart_on_config_change triggers a respawn; the CLI layer reads it
	// after Shutdown returns to decide the process exit code.
	restartRequested bool
}

// New builds a Server bound to q and st, serving cfg as its initial
// configuration.
func New(cfg config.Config, q *queue.Queue, st *stats.Stats, det Detector, configPath string) *Server {
	return &Server{
		queue:          q,
		stats:          st,
		detector:       det,
		corsOrigin:     cfg.Server.CORSOrigin,
		requestTimeout: durationFromSeconds(cfg.RequestTimeoutSec),
		maxUploadBytes: cfg.Server.MaxUploadMB * 1024 * 1024,
		cfg:            cfg,
		configPath:     configPath,
	}
}

func durationFromSeconds(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// blueOnyxModuleID and blueOnyxModuleName identify this service in every
// detection reply, matching the /v1/vision/detection wire contract (§6)
// that real clients key off of.
const (
	blueOnyxModuleID   = "blue_onyx"
	blueOnyxModuleName = "Blue Onyx"
	detectCommand      = "detect"
)

// DetectionResponse is the wire shape of POST /v1/vision/detection's reply
// (spec §6's "Detection wire format"). Field names and casing follow that
// contract exactly, since an external client parses this JSON verbatim.
type DetectionResponse struct {
	Success             bool             `json:"success"`
	Predictions         []PredictionView `json:"predictions"`
	Count               int              `json:"count"`
	Message             string           `json:"message"`
	InferenceMs         float64          `json:"inferenceMs"`
	ProcessMs           float64          `json:"processMs"`
	AnalysisRoundTripMs float64          `json:"analysisRoundTripMs"`
	ModuleID            string           `json:"moduleId"`
	ModuleName          string           `json:"moduleName"`
	Code                int              `json:"code"`
	Command             string           `json:"command"`
	RequestID           string           `json:"requestId"`
}

// PredictionView is one detection in the wire response.
type PredictionView struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	XMin       float64 `json:"x_min"`
	YMin       float64 `json:"y_min"`
	XMax       float64 `json:"x_max"`
	YMax       float64 `json:"y_max"`
}

// newRequestID mints an opaque, universally-unique-enough request
// identifier without pulling in a UUID library the teacher never imports
// directly: 16 bytes of crypto/rand, hex-encoded.
func newRequestID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
