package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/pipeline"
)

// stubPipeline returns a fixed result and records correction calls.
type stubPipeline struct {
	result      *pipeline.MultiDrugResult
	processErr  error
	corrections []pipeline.Correction
}

func (s *stubPipeline) Process(_ context.Context, _ image.Image, session *pipeline.Session) (*pipeline.MultiDrugResult, error) {
	if s.processErr != nil {
		return nil, s.processErr
	}
	res := s.result
	if res == nil {
		res = &pipeline.MultiDrugResult{}
	}
	if session != nil {
		res.SessionID = session.ID
	}
	return res, nil
}

func (s *stubPipeline) ApplyCorrection(_ context.Context, _ *pipeline.Session, c pipeline.Correction) error {
	s.corrections = append(s.corrections, c)
	return nil
}

type stubIndex struct {
	removed  int
	enrolled []feature.Record
}

func (s *stubIndex) Add(_ context.Context, rec feature.Record) (string, error) {
	s.enrolled = append(s.enrolled, rec)
	return "rec-1", nil
}

func (s *stubIndex) Optimize(context.Context) (int, error) { return s.removed, nil }

func newTestServer(p scanPipeline, idx indexMaintainer) *Server {
	return NewServer(Config{Host: "localhost", Port: 8080}, p, idx)
}

func pngUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.White)
	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, img))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "box.png")
	require.NoError(t, err)
	_, err = part.Write(imgBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.healthHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestScanHandler(t *testing.T) {
	stub := &stubPipeline{result: &pipeline.MultiDrugResult{
		Drugs: []pipeline.DrugDetection{{DrugID: "drug-1", Name: "Ibuprofen", Confidence: 100}},
	}}
	srv := newTestServer(stub, nil)

	body, contentType := pngUpload(t)
	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.scanHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	require.Len(t, resp.Result.Drugs, 1)
	assert.Equal(t, "Ibuprofen", resp.Result.Drugs[0].Name)
}

func TestScanHandlerRejectsGet(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/scan", nil)
	rec := httptest.NewRecorder()

	srv.scanHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScanHandlerRejectsMissingFile(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/scan", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.scanHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorrectionsHandler(t *testing.T) {
	stub := &stubPipeline{}
	srv := newTestServer(stub, nil)

	payload := `{"region_id":"r1","kind":"wrong_drug","correct_id":"drug-1","correct_name":"Ibuprofen"}`
	req := httptest.NewRequest(http.MethodPost, "/corrections", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	srv.correctionsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.corrections, 1)
	assert.Equal(t, "drug-1", stub.corrections[0].CorrectID)
	assert.Equal(t, "r1", stub.corrections[0].RegionID)
}

func TestCorrectionsHandlerValidates(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/corrections", strings.NewReader(`{"kind":"confirmed"}`))
	rec := httptest.NewRecorder()

	srv.correctionsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandler(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	srv.statsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats pipeline.SessionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.NotEmpty(t, stats.SessionID)
	assert.Zero(t, stats.Scans)
}

func enrollUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x += 4 {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.White)
		}
	}
	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, img))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("image", "confirmed.png")
	require.NoError(t, err)
	_, err = part.Write(imgBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestEnrollHandler(t *testing.T) {
	idx := &stubIndex{}
	srv := newTestServer(&stubPipeline{}, idx)

	body, contentType := enrollUpload(t, map[string]string{
		"drug_id":   "drug-1",
		"drug_name": "Ibuprofen",
	})
	req := httptest.NewRequest(http.MethodPost, "/index/enroll", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.enrollHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp EnrollResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "rec-1", resp.ID)

	require.Len(t, idx.enrolled, 1)
	assert.Equal(t, "drug-1", idx.enrolled[0].DrugID)
	assert.Equal(t, "Ibuprofen", idx.enrolled[0].DrugName)
	assert.False(t, idx.enrolled[0].Vector.IsZero())
}

func TestEnrollHandlerRequiresDrugFields(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, &stubIndex{})

	body, contentType := enrollUpload(t, map[string]string{"drug_id": "drug-1"})
	req := httptest.NewRequest(http.MethodPost, "/index/enroll", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.enrollHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollHandlerWithoutIndex(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/index/enroll", nil)
	rec := httptest.NewRecorder()

	srv.enrollHandler(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOptimizeHandler(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, &stubIndex{removed: 3})
	req := httptest.NewRequest(http.MethodPost, "/index/optimize", nil)
	rec := httptest.NewRecorder()

	srv.optimizeHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Removed)
}

func TestOptimizeHandlerWithoutIndex(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/index/optimize", nil)
	rec := httptest.NewRecorder()

	srv.optimizeHandler(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
