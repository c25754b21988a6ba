package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cardscan/internal/api"
	"cardscan/internal/card"
	"cardscan/internal/config"
	"cardscan/internal/ledger"
	"cardscan/internal/logging"
	"cardscan/internal/scan"
	"cardscan/internal/services"
)

const (
	// uploadFormField is the multipart field carrying card images.
	uploadFormField = "files"
	// maxUploadBytes bounds one scan request body.
	maxUploadBytes = 64 << 20
	// maxUploadMemory is held in memory before multipart parts spill to disk.
	maxUploadMemory = 32 << 20
	// maxConfirmBytes bounds one confirm request body.
	maxConfirmBytes = 4 << 20

	headerScanSubmitted = "X-Scan-Submitted"
	headerScanFailed    = "X-Scan-Failed"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cards  *api.CardService

	mu       sync.Mutex
	listener net.Listener
	handler  http.Handler
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   cfg.Bind(),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		cards:  d.cards,
	}

	token := cfg.Server.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("/scan-batch", authMiddleware(token, srv.handleScanBatch))
	mux.HandleFunc("/add-batch", authMiddleware(token, srv.handleAddBatch))
	mux.HandleFunc("/api/scan", authMiddleware(token, srv.handleScan))
	mux.HandleFunc("/api/cards", authMiddleware(token, srv.handleCards))
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/cache", authMiddleware(token, srv.handleCache))
	srv.handler = mux

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleScanBatch keeps the original endpoint shape: a bare array of the
// cards that resolved, with failures reported only through counts.
func (s *apiServer) handleScanBatch(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.scan(w, r)
	if !ok {
		return
	}
	w.Header().Set(headerScanSubmitted, strconv.Itoa(resp.Submitted))
	w.Header().Set(headerScanFailed, strconv.Itoa(resp.Failed))
	s.writeJSON(w, http.StatusOK, resp.Cards())
}

func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.scan(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) scan(w http.ResponseWriter, r *http.Request) (api.ScanResponse, bool) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return api.ScanResponse{}, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart upload: %v", err))
		return api.ScanResponse{}, false
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := r.MultipartForm.File[uploadFormField]
	if len(headers) > s.cards.MaxBatchSize() {
		s.writeServiceError(w, fmt.Errorf("%w: %d files submitted, limit is %d",
			services.ErrBatchTooLarge, len(headers), s.cards.MaxBatchSize()))
		return api.ScanResponse{}, false
	}

	images := make([]scan.Image, 0, len(headers))
	for _, header := range headers {
		data, err := readUpload(header)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read %s: %v", header.Filename, err))
			return api.ScanResponse{}, false
		}
		images = append(images, scan.Image{Filename: header.Filename, Data: data})
	}

	resp, err := s.cards.Scan(r.Context(), images)
	if err != nil {
		s.writeServiceError(w, err)
		return api.ScanResponse{}, false
	}
	return resp, true
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (s *apiServer) handleAddBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfirmBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read request body: %v", err))
		return
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		s.writeError(w, http.StatusBadRequest, "request body must be a JSON array of cards")
		return
	}
	candidates := make([]card.Candidate, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal(item, &candidates[i]); err != nil {
			candidates[i] = card.Malformed(err)
		}
	}

	results, err := s.cards.Confirm(r.Context(), candidates)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *apiServer) handleCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter := ledger.Filter{}
	for column, values := range r.URL.Query() {
		if len(values) > 0 {
			filter[column] = values[0]
		}
	}
	rows, err := s.cards.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.cards.CacheEntries())
	case http.MethodDelete:
		removed, err := s.cards.ClearCache()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.CacheClearResponse{Removed: removed})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrBatchTooLarge),
		errors.Is(err, services.ErrInvalidRecord),
		errors.Is(err, ledger.ErrUnknownColumn):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	kind := services.Kind(err)
	if errors.Is(err, ledger.ErrUnknownColumn) {
		kind = "unknown_column"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", logging.ErrorKind(err), logging.Error(err))
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Kind: kind})
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
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
