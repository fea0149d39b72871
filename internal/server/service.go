package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/freightdata/tariff-extractor/internal/common"
	"github.com/freightdata/tariff-extractor/internal/export"
	"github.com/freightdata/tariff-extractor/internal/pipeline"
	"github.com/freightdata/tariff-extractor/internal/repository"
)

// SourceFetcher is the scraper collaborator that drops a country's tariff
// PDFs into the pipeline's input directory. The production implementation
// lives outside this module.
type SourceFetcher interface {
	FetchCountry(ctx context.Context, country string) error
}

// NoopFetcher assumes documents are already on disk.
type NoopFetcher struct {
	Logger *slog.Logger
}

func (n NoopFetcher) FetchCountry(_ context.Context, country string) error {
	if n.Logger != nil {
		n.Logger.Info("fetch.noop", "country", country, "hint", "expecting documents already under the input directory")
	}
	return nil
}

// Service exposes the upstream HTTP surface over the pipeline and store.
type Service struct {
	logger  *slog.Logger
	pipe    *pipeline.Pipeline
	repo    repository.TariffRepository
	export  *export.Service
	fetcher SourceFetcher
}

func NewService(
	logger *slog.Logger,
	pipe *pipeline.Pipeline,
	repo repository.TariffRepository,
	exp *export.Service,
	fetcher SourceFetcher,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		fetcher = NoopFetcher{Logger: logger}
	}
	return &Service{
		logger:  logger,
		pipe:    pipe,
		repo:    repo,
		export:  exp,
		fetcher: fetcher,
	}
}

// Routes builds the HTTP mux for the service.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /fetch", s.handleFetch)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.withRequestID(mux)
}

// withRequestID tags every request with an id for log correlation.
func (s *Service) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		ctx := common.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-ID", reqID)
		s.logger.Info("http.request", "req_id", reqID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
