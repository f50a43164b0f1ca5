// Package api exposes the HTTP interface for the paper library service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wgilpin/paperstore/internal/config"
	"github.com/wgilpin/paperstore/internal/enrich"
	"github.com/wgilpin/paperstore/internal/ingest"
	"github.com/wgilpin/paperstore/internal/metrics"
	"github.com/wgilpin/paperstore/internal/paper"
)

// Server wires HTTP handlers to the ingestor, store and enrichment job.
type Server struct {
	router     chi.Router
	store      paper.Store
	blobs      paper.BlobStore
	ingestor   *ingest.Ingestor
	enrichment *enrich.Controller
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store paper.Store,
	blobs paper.BlobStore,
	ingestor *ingest.Ingestor,
	enrichment *enrich.Controller,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:      store,
		blobs:      blobs,
		ingestor:   ingestor,
		enrichment: enrichment,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.ServerTimeout()))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/papers", func(r chi.Router) {
			r.Post("/", s.submitPaper)
			r.Get("/", s.searchPapers)
			r.Route("/{paper_id}", func(r chi.Router) {
				r.Get("/", s.getPaper)
				r.Delete("/", s.deletePaper)
				r.Patch("/note", s.updateNote)
				r.Get("/pdf", s.redirectToPDF)
			})
		})
		r.Route("/enrichment", func(r chi.Router) {
			r.Post("/start", s.startEnrichment)
			r.Post("/stop", s.stopEnrichment)
			r.Get("/status", s.enrichmentStatus)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRequest struct {
	URL string `json:"url"`
}

func (s *Server) submitPaper(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	p, err := s.ingestor.Ingest(r.Context(), req.URL)
	if err != nil {
		s.writeIngestError(w, req.URL, err)
		return
	}
	writeJSON(s.logger, w, http.StatusCreated, p)
}

// writeIngestError maps the ingestion error taxonomy onto stable HTTP
// statuses so the UI can distinguish "already have this" from upstream
// failures.
func (s *Server) writeIngestError(w http.ResponseWriter, url string, err error) {
	var (
		fetchErr  *paper.FetchError
		uploadErr *paper.UploadError
	)
	switch {
	case errors.Is(err, paper.ErrDuplicate):
		s.writeError(w, http.StatusConflict, "paper already in library")
	case errors.Is(err, paper.ErrUnsupportedURL):
		s.writeError(w, http.StatusUnprocessableEntity, "unsupported url")
	case errors.Is(err, paper.ErrMetadataIncomplete):
		s.writeError(w, http.StatusUnprocessableEntity, "no usable title found in document")
	case errors.As(err, &fetchErr):
		s.writeError(w, http.StatusBadGateway, "could not fetch document")
	case errors.As(err, &uploadErr):
		s.writeError(w, http.StatusBadGateway, "could not archive document")
	default:
		s.logger.Error("ingest failed", zap.String("url", url), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type searchResponse struct {
	Papers []paper.Paper `json:"papers"`
	Total  int           `json:"total"`
	Page   int           `json:"page"`
}

func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	sort := paper.SortAddedAt
	switch q.Get("sort") {
	case "", string(paper.SortAddedAt):
	case string(paper.SortTitle):
		sort = paper.SortTitle
	default:
		s.writeError(w, http.StatusBadRequest, "invalid sort")
		return
	}

	params := paper.SearchParams{
		Query: q.Get("q"),
		Sort:  sort,
		Page:  page,
		Tag:   q.Get("tag"),
	}
	papers, total, err := s.store.Search(r.Context(), params)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	metrics.ObserveSearch()
	writeJSON(s.logger, w, http.StatusOK, searchResponse{Papers: papers, Total: total, Page: page})
}

type paperResponse struct {
	Paper paper.Paper `json:"paper"`
	Note  paper.Note  `json:"note"`
}

func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paper_id")
	p, note, err := s.store.GetPaper(r.Context(), id)
	if err != nil {
		if errors.Is(err, paper.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		s.logger.Error("get paper failed", zap.String("paper_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, paperResponse{Paper: p, Note: note})
}

func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paper_id")
	p, err := s.store.DeletePaper(r.Context(), id)
	if err != nil {
		if errors.Is(err, paper.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		s.logger.Error("delete paper failed", zap.String("paper_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// The record is the source of truth; an orphaned blob is acceptable.
	if err := s.blobs.Delete(r.Context(), p.FileRef); err != nil {
		s.logger.Warn("archived file delete failed",
			zap.String("paper_id", id), zap.String("file_ref", p.FileRef), zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

type noteRequest struct {
	Content *string `json:"content"`
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paper_id")
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == nil {
		s.writeError(w, http.StatusBadRequest, "missing content")
		return
	}
	note, err := s.store.UpdateNote(r.Context(), id, *req.Content)
	if err != nil {
		if errors.Is(err, paper.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		s.logger.Error("update note failed", zap.String("paper_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, note)
}

func (s *Server) redirectToPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paper_id")
	p, _, err := s.store.GetPaper(r.Context(), id)
	if err != nil {
		if errors.Is(err, paper.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.Redirect(w, r, p.ViewURL, http.StatusFound)
}

func (s *Server) startEnrichment(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, s.enrichment.Start())
}

func (s *Server) stopEnrichment(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, s.enrichment.Stop())
}

func (s *Server) enrichmentStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, s.enrichment.Status())
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, map[string]string{"error": msg})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			duration := time.Since(start)
			metrics.ObserveHTTPRequest(r.Method, routePattern(r), ww.status, duration)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", duration.Milliseconds()),
			)
		})
	}
}

// routePattern reports the chi route template so metrics stay low
// cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeJSON(logger, w, http.StatusInternalServerError,
						map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key != expected {
				writeJSON(zap.NewNop(), w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
