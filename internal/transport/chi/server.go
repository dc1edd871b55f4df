package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/finrag/internal/domain"
	logpkg "github.com/kailas-cloud/finrag/internal/logger"
	healthuc "github.com/kailas-cloud/finrag/internal/usecase/health"
	"github.com/kailas-cloud/finrag/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/finrag/internal/usecase/search"
)

// ServiceName is reported by the GET / banner.
const ServiceName = "finrag document API"

// DefaultMaxUploadBytes caps a multipart upload request body.
const DefaultMaxUploadBytes int64 = 32 << 20

const multipartMemory = 8 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the finrag HTTP API.
type Server struct {
	collections    Collections
	search         Searcher
	ingest         Ingester
	health         HealthChecker
	vector         domain.VectorConfig
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. vector is reported by the banner.
func NewServer(
	collections Collections,
	search Searcher,
	ingester Ingester,
	health HealthChecker,
	vector domain.VectorConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		collections:    collections,
		search:         search,
		ingest:         ingester,
		health:         health,
		vector:         vector,
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrChunkNotFound, http.StatusNotFound, ErrorResponseCodeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		detailHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusBadRequest, ErrorResponseCodeUnsupportedFileType),
		sentinelHandler(domain.ErrNoContent, http.StatusBadRequest, ErrorResponseCodeNoContent),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrorResponseCodeStoreUnavailable),
	}
	return s
}

// WithMaxUploadBytes caps the request body of POST /upload.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := "healthy"
	if report.Status != healthuc.Healthy {
		status = string(report.Status)
	}

	writeJSON(w, http.StatusOK, RootResponse{
		Message:           ServiceName,
		Status:            status,
		EmbeddingModel:    s.vector.Model,
		EmbeddingProvider: s.vector.Provider,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	components := make(map[string]ComponentHealth, len(report.Checks))
	for name, c := range report.Checks {
		checks[name] = string(c.Result)
		components[name] = ComponentHealth{
			Status:    string(c.Result),
			LatencyMS: c.Latency.Milliseconds(),
			Error:     c.Error,
		}
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:     string(report.Status),
		Checks:     checks,
		Components: components,
	})
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.collections.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToDTO(st))
}

// SearchDocuments handles POST /search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sreq := searchuc.Request{Query: req.Query, IncludeMetadata: true}
	if req.NResults != nil {
		if *req.NResults < 1 {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "n_results must be at least 1")
			return
		}
		sreq.NResults = *req.NResults
	}
	if req.IncludeMetadata != nil {
		sreq.IncludeMetadata = *req.IncludeMetadata
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, sreq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = searchResultToDTO(&results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:        req.Query,
		Results:      items,
		TotalResults: len(items),
	})
}

// UploadDocuments handles POST /upload (multipart field "files").
func (s *Server) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorResponseCodePayloadTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "No files provided")
		return
	}

	uploads := make([]ingest.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, h := range headers {
		if h.Filename == "" {
			continue
		}
		f, err := h.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Cannot read upload "+h.Filename)
			return
		}
		files = append(files, f)
		uploads = append(uploads, ingest.Upload{Filename: h.Filename, Body: f})
	}
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "No valid files to process")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.ingest.IngestUploads(ctx, uploads)
	if err != nil {
		s.handleIngestError(w, r, report, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, reportToDTO(report))
}

// IngestDirectory handles POST /ingest-directory.
func (s *Server) IngestDirectory(w http.ResponseWriter, r *http.Request, params IngestDirectoryParams) {
	if params.DirectoryPath == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "directory_path is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	report, err := s.ingest.IngestDirectory(ctx, params.DirectoryPath)
	if err != nil {
		s.handleIngestError(w, r, report, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, reportToDTO(report))
}

// ResetCollection handles DELETE /reset.
func (s *Server) ResetCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Reset(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResponse{Success: true, Message: "Collection reset successfully"})
}

// GetDocument handles GET /documents/{document_id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	c, err := s.collections.Get(r.Context(), documentID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chunkToDTO(&c))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func successMessage(docs, chunks int) string {
	return fmt.Sprintf("Successfully processed %d documents with %d chunks", docs, chunks)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
		w.Header().Set("X-Embedding-Calls", strconv.Itoa(usage.Calls()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrChunkNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidRequest,
		domain.ErrUnsupportedFileType,
		domain.ErrNoContent,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// detailHandler is sentinelHandler for caller-input errors: the full message
// names the offending field, so it is returned as is.
func detailHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

// handleIngestError adds the per-file errors to a no-content failure.
func (s *Server) handleIngestError(w http.ResponseWriter, r *http.Request, report ingest.Report, err error) {
	if !errors.Is(err, domain.ErrNoContent) {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context(), s.logger).Warn("domain error",
		zap.Error(err),
		zap.Strings("file_errors", report.Errors),
	)

	msg := "No content could be extracted. No supported files found."
	if len(report.Errors) > 0 {
		msg = "No content could be extracted. See errors."
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    ErrorResponseCodeNoContent,
		Message: msg,
		Errors:  report.Errors,
	})
}
