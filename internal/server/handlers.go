package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"

	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/feedback"
	"github.com/veridose/boxscan/internal/pipeline"
	"github.com/veridose/boxscan/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// scanHandler runs the pipeline over an uploaded photograph.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeScanError(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeScanError(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeScanError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.writeScanError(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.writeScanError(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
	defer cancel()

	start := time.Now()
	result, err := s.pipeline.Process(ctx, img, s.session)
	if err != nil {
		scanRequestsTotal.WithLabelValues("error").Inc()
		slog.Error("Scan failed", "error", err)
		s.writeScanError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	scanRequestsTotal.WithLabelValues("ok").Inc()
	scanDuration.Observe(time.Since(start).Seconds())
	scanRegionsDetected.Observe(float64(len(result.Regions)))
	for _, region := range result.Regions {
		scanActions.WithLabelValues(string(region.Action)).Inc()
	}

	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: result})
}

// correctionsHandler accepts an operator correction and forwards it.
func (s *Server) correctionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeScanError(w, "Invalid correction payload", http.StatusBadRequest)
		return
	}
	if req.CorrectID == "" || req.RegionID == "" {
		s.writeScanError(w, "region_id and correct_id are required", http.StatusBadRequest)
		return
	}

	err := s.pipeline.ApplyCorrection(r.Context(), s.session, pipeline.Correction{
		RegionID:     req.RegionID,
		Kind:         feedback.Kind(req.Kind),
		ExtractedKey: req.ExtractedKey,
		SelectedID:   req.SelectedID,
		CorrectID:    req.CorrectID,
		CorrectName:  req.CorrectName,
	})
	if err != nil {
		slog.Error("Correction forwarding failed", "error", err)
		s.writeScanError(w, "Failed to forward correction", http.StatusBadGateway)
		return
	}
	correctionsTotal.WithLabelValues(req.Kind).Inc()
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// statsHandler reports session counters.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Stats())
}

// optimizeHandler runs visual index maintenance. Exclusive with live
// scans at the index level, so this endpoint is expected to be called
// during quiet periods.
func (s *Server) optimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.index == nil {
		s.writeJSON(w, http.StatusConflict, OptimizeResponse{Error: "no visual index configured"})
		return
	}
	removed, err := s.index.Optimize(r.Context())
	if err != nil {
		slog.Error("Index optimization failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, OptimizeResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, OptimizeResponse{Success: true, Removed: removed})
}

// enrollHandler registers a confirmed drug image with the visual index
// so later scans can cross-reference it. Like optimize, this is a
// maintenance operation kept off the hot scanning path.
func (s *Server) enrollHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.index == nil {
		s.writeJSON(w, http.StatusConflict, EnrollResponse{Error: "no visual index configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeJSON(w, http.StatusBadRequest, EnrollResponse{Error: "Failed to parse form data"})
		return
	}
	drugID := r.FormValue("drug_id")
	drugName := r.FormValue("drug_name")
	if drugID == "" || drugName == "" {
		s.writeJSON(w, http.StatusBadRequest, EnrollResponse{Error: "drug_id and drug_name are required"})
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, EnrollResponse{Error: "No image file provided"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, EnrollResponse{Error: "Failed to read image data"})
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, EnrollResponse{Error: "Invalid image format"})
		return
	}

	vec, err := feature.Extract(img)
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, EnrollResponse{Error: err.Error()})
		return
	}
	id, err := s.index.Add(r.Context(), feature.Record{
		DrugID:   drugID,
		DrugName: drugName,
		Vector:   vec,
	})
	if err != nil {
		slog.Error("Index enrollment failed", "error", err, "drug_id", drugID)
		s.writeJSON(w, http.StatusInternalServerError, EnrollResponse{Error: err.Error()})
		return
	}
	enrollmentsTotal.Inc()
	s.writeJSON(w, http.StatusOK, EnrollResponse{Success: true, ID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeScanError(w http.ResponseWriter, msg string, status int) {
	s.writeJSON(w, status, ScanResponse{Success: false, Error: msg})
}
