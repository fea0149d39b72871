package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightdata/tariff-extractor/internal/common"
)

func writeImageFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-png-but-bytes"), 0o644))
	return path
}

func TestHTTPDetectorDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/detect", r.URL.Path)

		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.ImageB64)
		assert.InDelta(t, 0.25, req.ConfThrs, 1e-9)
		assert.InDelta(t, 0.45, req.IoUThrs, 1e-9)

		_ = json.NewEncoder(w).Encode(detectResponse{
			Detections: []Region{
				{X1: 1, Y1: 2, X2: 30, Y2: 40, Confidence: 0.91, ClassID: 3},
				{X1: 5, Y1: 5, X2: 20, Y2: 20, Confidence: 0.33, ClassID: 0},
			},
		})
	}))
	defer srv.Close()

	det := NewHTTPDetector(Config{BaseURL: srv.URL, ConfThreshold: 0.25, IoUThreshold: 0.45}, nil)
	regions, err := det.Detect(context.Background(), writeImageFixture(t))
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, 3, regions[0].ClassID)
	assert.InDelta(t, 0.91, regions[0].Confidence, 1e-9)
}

func TestHTTPDetectorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	det := NewHTTPDetector(Config{BaseURL: srv.URL}, nil)
	_, err := det.Detect(context.Background(), writeImageFixture(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDetectionFailed)
}

func TestHTTPDetectorServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(detectResponse{Error: "inference failed"})
	}))
	defer srv.Close()

	det := NewHTTPDetector(Config{BaseURL: srv.URL}, nil)
	_, err := det.Detect(context.Background(), writeImageFixture(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDetectionFailed)
	assert.Contains(t, err.Error(), "inference failed")
}

func TestHTTPDetectorMissingImage(t *testing.T) {
	det := NewHTTPDetector(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := det.Detect(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, common.ErrDetectionFailed)
}

func TestHTTPDetectorHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	det := NewHTTPDetector(Config{BaseURL: srv.URL}, nil)
	assert.NoError(t, det.Healthy(context.Background()))

	down := NewHTTPDetector(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	assert.Error(t, down.Healthy(context.Background()))
}
