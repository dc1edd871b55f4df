package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerOptions configures the router built by HandlerWithOptions.
type ServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a query or path parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// Handler builds the API router on a fresh chi router.
func Handler(s *Server) http.Handler {
	return HandlerWithOptions(s, ServerOptions{})
}

// HandlerWithOptions mounts every API route on opts.BaseRouter.
func HandlerWithOptions(s *Server, opts ServerOptions) http.Handler {
	r := opts.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	errorHandler := opts.ErrorHandlerFunc
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}

	wrapper := paramBinder{server: s, errorHandler: errorHandler}

	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/stats", s.GetStats)
	r.Post("/search", s.SearchDocuments)
	r.Post("/upload", s.UploadDocuments)
	r.Post("/ingest-directory", wrapper.IngestDirectory)
	r.Delete("/reset", s.ResetCollection)
	r.Get("/documents/{document_id}", wrapper.GetDocument)

	return r
}

// paramBinder decodes query and path parameters before calling the Server.
type paramBinder struct {
	server       *Server
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
}

func (p paramBinder) IngestDirectory(w http.ResponseWriter, r *http.Request) {
	var params IngestDirectoryParams

	err := runtime.BindQueryParameter("form", true, true, "directory_path", r.URL.Query(), &params.DirectoryPath)
	if err != nil {
		p.errorHandler(w, r, &InvalidParamFormatError{ParamName: "directory_path", Err: err})
		return
	}

	p.server.IngestDirectory(w, r, params)
}

func (p paramBinder) GetDocument(w http.ResponseWriter, r *http.Request) {
	var documentID string

	err := runtime.BindStyledParameterWithOptions("simple", "document_id", chi.URLParam(r, "document_id"),
		&documentID, runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		p.errorHandler(w, r, &InvalidParamFormatError{ParamName: "document_id", Err: err})
		return
	}

	p.server.GetDocument(w, r, documentID)
}
