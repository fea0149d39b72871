package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/freightdata/tariff-extractor/internal/common"
	"github.com/freightdata/tariff-extractor/internal/llm"
)

// chatResponse is the subset of the chat/completions reply we read.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ParseTables implements llm.TableParser with one synchronous vision call per
// region. Transport faults map to ErrExtractionFailed; absent or unparseable
// replies map to ErrEmptyResponse/ErrMalformedResponse. All are soft for the
// region that produced them.
func (c *Client) ParseTables(ctx context.Context, req llm.ParseRequest) ([]llm.RawRecord, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"source", req.Source,
		"page", req.PageIndex,
		"instance", req.InstanceIndex,
	)

	dataURL, mimeType, err := llm.ReadAsDataURL(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionFailed, err)
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": c.cfg.Prompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var raw []byte
	err = retry.Do(
		func() error {
			var status int
			var sendErr error
			raw, status, sendErr = llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
			if sendErr != nil && status/100 == 4 {
				// client errors won't heal on retry
				return retry.Unrecoverable(sendErr)
			}
			return sendErr
		},
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(2*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		// SendJSON errors already carry ErrExtractionFailed
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", common.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: api error: %s", common.ErrExtractionFailed, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, common.ErrEmptyResponse
	}

	records, err := llm.DecodeRecords(resp.Choices[0].Message.Content, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "source", req.Source, "page", req.PageIndex, "instance", req.InstanceIndex, "error", err)
		return nil, err
	}

	// schema-gate each row; failures are dropped here, coercion is the
	// normalizer's job
	valid := records[:0]
	for i, rec := range records {
		if err := llm.ValidateRecord(c.schema, rec); err != nil {
			c.logger.Warn("llm.extract.schema_reject", "req_id", rid, "row", i, "error", err)
			continue
		}
		valid = append(valid, rec)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"mime", mimeType,
		"rows", len(valid),
		"rejected", len(records)-len(valid),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return valid, nil
}
