package chi

import (
	"github.com/kailas-cloud/finrag/internal/domain"
	"github.com/kailas-cloud/finrag/internal/domain/chunk"
	"github.com/kailas-cloud/finrag/internal/domain/search/result"
	"github.com/kailas-cloud/finrag/internal/usecase/ingest"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized           ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotFound               ErrorResponseCode = "not_found"
	ErrorResponseCodeDocumentNotFound       ErrorResponseCode = "document_not_found"
	ErrorResponseCodeUnsupportedFileType    ErrorResponseCode = "unsupported_file_type"
	ErrorResponseCodeNoContent              ErrorResponseCode = "no_content"
	ErrorResponseCodePayloadTooLarge        ErrorResponseCode = "payload_too_large"
	ErrorResponseCodeRateLimited            ErrorResponseCode = "rate_limited"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeStoreUnavailable       ErrorResponseCode = "store_unavailable"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
	Errors  []string          `json:"errors,omitempty"`
}

// RootResponse is the service banner served on GET /.
type RootResponse struct {
	Message           string `json:"message"`
	Status            string `json:"status"`
	EmbeddingModel    string `json:"embedding_model"`
	EmbeddingProvider string `json:"embedding_provider"`
}

// HealthResponse reports per-component health.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Checks     map[string]string          `json:"checks"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth is the detail of one probe.
type ComponentHealth struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// CollectionStatsResponse is the body of GET /stats.
type CollectionStatsResponse struct {
	CollectionName      string `json:"collection_name"`
	DocumentCount       int    `json:"document_count"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query           string `json:"query"`
	NResults        *int   `json:"n_results,omitempty"`
	IncludeMetadata *bool  `json:"include_metadata,omitempty"`
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata chunk.Metadata `json:"metadata,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query        string             `json:"query"`
	Results      []SearchResultItem `json:"results"`
	TotalResults int                `json:"total_results"`
}

// DocumentInfo summarizes one ingested file.
type DocumentInfo struct {
	Filename      string         `json:"filename"`
	Size          int64          `json:"size"`
	ChunksCreated int            `json:"chunks_created"`
	Metadata      chunk.Metadata `json:"metadata"`
}

// IngestionResponse is the body of a successful upload or directory ingestion.
type IngestionResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Documents []DocumentInfo `json:"documents"`
	Errors    []string       `json:"errors,omitempty"`
}

// ResetResponse is the body of DELETE /reset.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DocumentResponse is the body of GET /documents/{document_id}.
type DocumentResponse struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata chunk.Metadata `json:"metadata"`
}

// IngestDirectoryParams are the bound query parameters of POST /ingest-directory.
type IngestDirectoryParams struct {
	DirectoryPath string
}

func statsToDTO(st domain.CollectionStats) CollectionStatsResponse {
	return CollectionStatsResponse{
		CollectionName:      st.Name,
		DocumentCount:       st.DocumentCount,
		EmbeddingModel:      st.EmbeddingModel,
		EmbeddingDimensions: st.EmbeddingDimensions,
	}
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	item := SearchResultItem{
		ID:      r.ID(),
		Content: r.Content(),
		Score:   r.Score(),
	}
	if md := r.Metadata(); len(md) > 0 {
		item.Metadata = md
	}
	return item
}

func reportToDTO(r ingest.Report) IngestionResponse {
	docs := make([]DocumentInfo, len(r.Documents))
	for i, d := range r.Documents {
		docs[i] = DocumentInfo{
			Filename:      d.Filename,
			Size:          d.Size,
			ChunksCreated: d.ChunksCreated,
			Metadata:      d.Metadata,
		}
	}
	return IngestionResponse{
		Success:   true,
		Message:   successMessage(len(docs), r.ChunkCount),
		Documents: docs,
		Errors:    r.Errors,
	}
}

func chunkToDTO(c *chunk.DocumentChunk) DocumentResponse {
	return DocumentResponse{
		ID:       c.ID(),
		Content:  c.Content(),
		Metadata: c.Metadata(),
	}
}
