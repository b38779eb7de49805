package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-enhanced-svg/pkg/config"
	"github.com/df07/go-enhanced-svg/pkg/dedupe"
	"github.com/df07/go-enhanced-svg/pkg/importer"
	"github.com/df07/go-enhanced-svg/pkg/layout"
	"github.com/df07/go-enhanced-svg/pkg/loaders"
	"github.com/df07/go-enhanced-svg/pkg/logging"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

// maxUploadBytes bounds uploaded SVG documents
const maxUploadBytes = 32 << 20

// Server exposes one scene over HTTP. Every request that touches the scene
// holds mu for its whole duration.
type Server struct {
	port     int
	config   config.Config
	logger   *zap.Logger
	console  *consoleHub
	mu       sync.Mutex
	scene    *scene.Scene
	importer *importer.Importer
	layout   *layout.Controller
}

// NewServer creates a web server with an empty scene
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := newConsoleHub(256)
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger = logging.Tee(logger, logging.NewConsoleCore(level, hub.in))

	pre, err := cfg.Preprocessor()
	if err != nil {
		return nil, err
	}

	sc := scene.New()
	im := importer.New(sc, loaders.NewSVGImporter(logger.Named("svg")), importer.Options{
		ScaleFactor: cfg.Import.ScaleFactor,
		TempDir:     cfg.Import.TempDir,
	}, logger.Named("importer"))
	if pre != nil {
		im.WithPreprocessor(pre)
	}

	return &Server{
		port:     cfg.Server.Port,
		config:   cfg,
		logger:   logger,
		console:  hub,
		scene:    sc,
		importer: im,
		layout:   layout.NewController(sc, logger.Named("layout")),
	}, nil
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/files", s.handleFiles)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/scene", s.handleScene)
	mux.HandleFunc("GET /api/materials", s.handleMaterials)
	mux.HandleFunc("GET /api/materials/{name}", s.handleMaterial)
	mux.HandleFunc("GET /api/elevation", s.handleGetElevation)
	mux.HandleFunc("PUT /api/elevation", s.handlePutElevation)
	mux.HandleFunc("GET /api/console", s.handleConsole)
	return mux
}

// Start starts the web server and blocks until ctx is cancelled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	go s.console.run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting web server", zap.String("url", fmt.Sprintf("http://localhost:%d", s.port)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ImportRequest is the JSON body of a path-based import
type ImportRequest struct {
	Path    string `json:"path"`
	Variant string `json:"variant"` // empty uses the configured variant
}

// ImportResponse describes a finished import
type ImportResponse struct {
	Group     scene.GroupSnapshot `json:"group"`
	Variant   string              `json:"variant"`
	ElapsedMs float64             `json:"elapsedMs"`
	Trace     []string            `json:"trace"`
	Stats     *dedupe.Stats       `json:"stats,omitempty"`
	Warning   string              `json:"warning,omitempty"`
	Elevation []Assignment        `json:"elevation,omitempty"`
}

// Assignment is one object's elevation
type Assignment struct {
	Object string  `json:"object"`
	Z      float64 `json:"z"`
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFiles lists the SVG documents of the configured library directory.
// Each filePath can be posted to /api/import as a JSON request.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if s.config.Server.Library == "" {
		writeError(w, http.StatusNotFound, "no SVG library configured")
		return
	}
	files, err := loaders.DiscoverSVG(s.config.Server.Library)
	if err != nil {
		s.logger.Error("Failed to list SVG library", zap.String("dir", s.config.Server.Library), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if files == nil {
		files = []loaders.SVGInfo{}
	}
	writeJSON(w, http.StatusOK, files)
}

// handleImport imports either a server-side path (JSON body) or an uploaded
// document (any other content type, file name in ?name=)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := s.parseImportRequest(w, r)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	variantName := req.Variant
	if variantName == "" {
		variantName = s.config.Import.Variant
	}
	variant, err := importer.ParseVariant(variantName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.importer.Import(r.Context(), importer.Request{Path: req.Path, Variant: variant})
	if err != nil {
		writeError(w, importStatus(err), err.Error())
		return
	}

	resp := ImportResponse{
		Group:     scene.SnapshotGroup(res.Group),
		Variant:   res.Variant.String(),
		ElapsedMs: float64(res.Elapsed.Microseconds()) / 1000,
		Stats:     res.Stats,
	}
	for _, st := range res.Trace {
		resp.Trace = append(resp.Trace, st.String())
	}
	if res.SweepErr != nil {
		resp.Warning = res.SweepErr.Error()
	}

	// A configured target name wins; otherwise the newest group is stacked.
	if s.config.Elevation.Target == "" || s.config.Elevation.Target == res.Group.Name() {
		resp.Elevation = toAssignments(s.layout.Set(layout.ElevationConfig{Target: res.Group, Step: s.stepLocked()}))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stepLocked() float64 {
	if s.layout.Config().Target != nil {
		return s.layout.Config().Step
	}
	return s.config.Elevation.Step
}

func (s *Server) parseImportRequest(w http.ResponseWriter, r *http.Request) (ImportRequest, func(), error) {
	var req ImportRequest
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, fmt.Errorf("invalid request: %w", err)
		}
		return req, nil, nil
	}

	name := filepath.Base(r.URL.Query().Get("name"))
	if name == "." || name == string(filepath.Separator) {
		return req, nil, errors.New("missing ?name= for uploaded document")
	}
	req.Variant = r.URL.Query().Get("variant")

	dir, err := os.MkdirTemp(s.config.Import.TempDir, "enhanced-svg-upload-*")
	if err != nil {
		return req, nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		return req, cleanup, fmt.Errorf("failed to read upload: %w", err)
	}
	req.Path = filepath.Join(dir, name)
	if err := os.WriteFile(req.Path, data, 0o600); err != nil {
		return req, cleanup, fmt.Errorf("failed to store upload: %w", err)
	}
	return req, cleanup, nil
}

// importStatus maps import errors to HTTP status codes
func importStatus(err error) int {
	switch {
	case importer.IsWarning(err):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrPreprocessorUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleScene returns a snapshot of the whole scene
func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.scene.Snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// ElevationRequest is the body of PUT /api/elevation
type ElevationRequest struct {
	Group string   `json:"group"` // empty clears the target
	Step  *float64 `json:"step"`  // nil keeps the current step
}

// ElevationResponse describes the current elevation configuration
type ElevationResponse struct {
	Group       string       `json:"group,omitempty"`
	Step        float64      `json:"step"`
	Assignments []Assignment `json:"assignments"`
}

func (s *Server) handleGetElevation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.layout.Config()
	resp := ElevationResponse{Step: cfg.Step, Assignments: []Assignment{}}
	if cfg.Target != nil && s.scene.Contains(cfg.Target) {
		resp.Group = cfg.Target.Name()
		resp.Assignments = toAssignments(layout.Plan(cfg.Target.Objects(), cfg.Step))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutElevation(w http.ResponseWriter, r *http.Request) {
	var req ElevationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.layout.Config()
	if req.Step != nil {
		cfg.Step = *req.Step
	}
	cfg.Target = nil
	if req.Group != "" {
		g, ok := s.scene.Group(req.Group)
		if !ok {
			writeError(w, http.StatusNotFound, "Unknown group: "+req.Group)
			return
		}
		cfg.Target = g
	}

	resp := ElevationResponse{
		Group:       req.Group,
		Step:        cfg.Step,
		Assignments: toAssignments(s.layout.Set(cfg)),
	}
	writeJSON(w, http.StatusOK, resp)
}

func toAssignments(plan []layout.Assignment) []Assignment {
	out := make([]Assignment, 0, len(plan))
	for _, a := range plan {
		out = append(out, Assignment{Object: a.Object.Name(), Z: a.Z})
	}
	return out
}

// handleConsole streams log messages via SSE until the client disconnects
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages, unsubscribe := s.console.subscribe(32)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := sendSSEEvent(w, "console", string(data)); err != nil {
				return
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// sendSSEEvent sends a generic SSE event
func sendSSEEvent(w http.ResponseWriter, event, data string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming not supported")
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
