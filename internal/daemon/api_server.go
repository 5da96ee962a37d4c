package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"batchdl/internal/api"
	"batchdl/internal/logging"
	"batchdl/internal/pipeline"
	"batchdl/internal/services"
	"batchdl/internal/submission"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

const unauthorizedBody = "error: unauthorized"

// maxRequestBody bounds a form-encoded download request.
const maxRequestBody = 1 << 20

type apiServer struct {
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService
	handler  http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}

	token := func() string { return d.config().Server.APIToken }
	mux := http.NewServeMux()
	mux.HandleFunc("/download_request", authMiddleware(token, srv.rejectPlain, srv.handleDownloadRequest))
	mux.HandleFunc("/download/", srv.handleDownload)
	mux.HandleFunc("/api/status", authMiddleware(token, srv.rejectJSON, srv.handleStatus))
	mux.HandleFunc("/api/queue", authMiddleware(token, srv.rejectJSON, srv.handleQueue))
	mux.HandleFunc("/api/queue/", authMiddleware(token, srv.rejectJSON, srv.handleQueueItem))
	srv.handler = withRequestID(mux)
	return srv
}

// Handler exposes the daemon HTTP routes.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context, bind string) error {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		s.logger.Info("api server disabled", logging.String(logging.FieldEventType, "api_disabled"))
		return nil
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleDownloadRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeText(w, http.StatusMethodNotAllowed, "error: method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		s.writeText(w, http.StatusBadRequest, "error: bad request - malformed form body")
		return
	}

	cfg := s.daemon.config()
	username := strings.TrimSpace(r.Header.Get(cfg.Server.RemoteUserHeader))
	if username == "" {
		s.rejectPlain(w, r)
		return
	}
	user, err := s.daemon.accounts.UserByUsername(r.Context(), username)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "principal lookup failed", "principal_lookup_failed",
			logging.Error(err),
			logging.String("username", username),
			logging.String(logging.FieldErrorHint, "check paths.registry_path"),
		)
		s.writeText(w, http.StatusInternalServerError, submission.Response{Status: submission.StatusInternalError}.String())
		return
	}
	if user == nil {
		s.rejectPlain(w, r)
		return
	}

	resp := s.daemon.encoder.SubmitEncoded(r.Context(), *user, string(body))
	s.writeText(w, statusCode(resp.Status), resp.String())
}

func statusCode(status submission.Status) int {
	switch status {
	case submission.StatusSuccess:
		return http.StatusOK
	case submission.StatusBadRequest:
		return http.StatusBadRequest
	case submission.StatusForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeText(w, http.StatusMethodNotAllowed, "error: method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/download/")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, pipeline.SidecarExtension) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.daemon.config().Paths.PublicDir, name))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
	})
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	views, err := s.queueSvc.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueListResponse{Jobs: views})
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	if raw == "" || strings.Contains(raw, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job sequence")
		return
	}
	view, err := s.queueSvc.Describe(r.Context(), seq)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) rejectPlain(w http.ResponseWriter, _ *http.Request) {
	s.writeText(w, http.StatusUnauthorized, unauthorizedBody)
}

func (s *apiServer) rejectJSON(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusUnauthorized, "unauthorized")
}

func (s *apiServer) writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
