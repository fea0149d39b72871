package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/freightdata/tariff-extractor/internal/common"
	"github.com/freightdata/tariff-extractor/internal/tariff"
)

type uploadResponse struct {
	InsertedRecords int    `json:"inserted_records"`
	RunID           string `json:"run_id"`
	SoftFailures    int    `json:"soft_failures"`
}

type fetchResponse struct {
	Records []tariff.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleUpload triggers scrape + extract + store for one country.
func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "country query parameter is required"})
		return
	}

	if err := s.fetcher.FetchCountry(ctx, country); err != nil {
		s.logger.Error("upload.fetch_failed", "req_id", common.RequestIDFromContext(ctx), "country", country, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: fmt.Sprintf("fetch documents: %v", err)})
		return
	}

	rep, err := s.pipe.Run(ctx, country)
	if err != nil {
		s.logger.Error("upload.run_failed", "req_id", common.RequestIDFromContext(ctx), "country", country, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		InsertedRecords: rep.RecordsUpserted,
		RunID:           rep.RunID.String(),
		SoftFailures:    rep.SoftFailureCount(),
	})
}

// handleFetch returns stored records, optionally for one country.
func (s *Service) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := strings.TrimSpace(r.URL.Query().Get("country"))

	var (
		recs []tariff.Record
		err  error
	)
	if country != "" {
		recs, err = s.repo.QueryByCountry(ctx, country)
	} else {
		recs, err = s.repo.FetchAll(ctx)
	}
	if err != nil {
		s.logger.Error("fetch.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []tariff.Record{}
	}
	writeJSON(w, http.StatusOK, fetchResponse{Records: recs})
}

// handleExport streams the stored records as an XLSX workbook.
func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	country := strings.TrimSpace(r.URL.Query().Get("country"))

	b, err := s.export.ExportTariffsXLSX(ctx, country)
	if err != nil {
		s.logger.Error("export.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="tariffs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		s.logger.Warn("export.write_failed", "error", err)
	}
}

func (s *Service) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http.encode_response_failed", "error", err)
	}
}
