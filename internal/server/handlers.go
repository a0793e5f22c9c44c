package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pagetext-io/pagetext/internal/document"
	"github.com/pagetext-io/pagetext/internal/raster"
	"github.com/pagetext-io/pagetext/internal/report"
	"github.com/pagetext-io/pagetext/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding health response", "error", err)
	}
}

// extractHandler accepts a document upload and returns the assembled
// DocumentResult. The document travels as a multipart "document" field;
// render parameters come from optional form values.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeError(w, "failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		s.writeError(w, "no document file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	cfg, err := s.renderConfigFromForm(r)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	result, err := s.pipeline.Process(ctx, data, cfg)
	extractDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		extractRequestsTotal.WithLabelValues("error").Inc()
		s.writeProcessError(w, err)
		return
	}

	extractRequestsTotal.WithLabelValues(string(result.OverallStatus)).Inc()
	for _, pg := range result.Pages {
		pagesProcessed.WithLabelValues(string(pg.Status)).Inc()
	}

	response := ExtractResponse{Success: true, Result: result}
	if r.FormValue("labs") == "true" {
		response.Labs = report.Extract(result.PlainText())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding extract response", "error", err)
	}
}

// renderConfigFromForm merges request overrides onto the server defaults.
func (s *Server) renderConfigFromForm(r *http.Request) (document.RenderConfig, error) {
	cfg := s.defaultRender
	if v := r.FormValue("dpi"); v != "" {
		dpi, err := strconv.Atoi(v)
		if err != nil || dpi <= 0 {
			return cfg, errors.New("invalid dpi value")
		}
		cfg.TargetDPI = dpi
	}
	if v := r.FormValue("color_mode"); v != "" {
		cfg.ColorMode = document.ColorMode(v)
	}
	if v := r.FormValue("language"); v != "" {
		cfg.Language = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeProcessError maps pipeline errors onto HTTP status codes: invalid
// input is the client's fault, everything else is ours.
func (s *Server) writeProcessError(w http.ResponseWriter, err error) {
	var validationErr *document.ValidationError
	var renderErr *raster.RenderError
	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, validationErr.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &renderErr):
		s.writeError(w, renderErr.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, "processing timed out", http.StatusGatewayTimeout)
	default:
		s.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ExtractResponse{Success: false, Error: message}); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}
