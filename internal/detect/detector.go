package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freightdata/tariff-extractor/internal/common"
)

// Region is one raw detector output in page pixel space.
type Region struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Detector is the object-detection capability the pipeline depends on.
// Implementations are loaded once at startup and reused; calls may block for
// the duration of model inference.
type Detector interface {
	Detect(ctx context.Context, imagePath string) ([]Region, error)
}

type Config struct {
	BaseURL       string
	ConfThreshold float64
	IoUThreshold  float64
	Timeout       time.Duration
}

// HTTPDetector talks to a detection inference service
// (POST {base}/detect with the page raster and thresholds).
type HTTPDetector struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewHTTPDetector(cfg Config, logger *slog.Logger) *HTTPDetector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTTPDetector{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type detectRequest struct {
	ImageB64 string  `json:"image_b64"`
	ConfThrs float64 `json:"conf_thrs"`
	IoUThrs  float64 `json:"iou_thrs"`
}

type detectResponse struct {
	Detections []Region `json:"detections"`
	Error      string   `json:"error,omitempty"`
}

// Healthy probes the inference service once at startup. A failure here is a
// configuration-time error and aborts the run before any document is touched.
func (d *HTTPDetector) Healthy(ctx context.Context) error {
	url := strings.TrimRight(d.cfg.BaseURL, "/") + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("detector unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("detector health status %d", resp.StatusCode)
	}
	return nil
}

func (d *HTTPDetector) Detect(ctx context.Context, imagePath string) ([]Region, error) {
	reqID := uuid.New().String()
	start := time.Now()

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read page image: %v", common.ErrDetectionFailed, err)
	}

	body, err := json.Marshal(detectRequest{
		ImageB64: base64.StdEncoding.EncodeToString(raw),
		ConfThrs: d.cfg.ConfThreshold,
		IoUThrs:  d.cfg.IoUThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", common.ErrDetectionFailed, err)
	}

	url := strings.TrimRight(d.cfg.BaseURL, "/") + "/detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", common.ErrDetectionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	d.logger.Info("detect.request", "req_id", reqID, "image", imagePath, "bytes", len(body))

	resp, err := d.http.Do(req)
	if err != nil {
		d.logger.Error("detect.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %v", common.ErrDetectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawResp, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		d.logger.Error("detect.http_error", "req_id", reqID, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", common.ErrDetectionFailed, resp.StatusCode)
	}

	var out detectResponse
	if err := json.Unmarshal(rawResp, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", common.ErrDetectionFailed, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", common.ErrDetectionFailed, out.Error)
	}

	d.logger.Info("detect.response",
		"req_id", reqID,
		"regions", len(out.Detections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Detections, nil
}
