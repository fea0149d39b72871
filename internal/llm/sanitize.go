package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/freightdata/tariff-extractor/internal/common"
)

// StripCodeFence removes an optional markdown code fence around the model's
// reply. Replies commonly arrive as ```json\n[...]\n```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// canonicalKeys maps the spelling variants models produce to the fixed field
// contract. Unknown keys are dropped.
var canonicalKeys = map[string]string{
	"country":        "Country",
	"type":           "Type",
	"direction":      "Type",
	"liner_name":     "Liner_Name",
	"liner name":     "Liner_Name",
	"liner":          "Liner_Name",
	"port":           "Port",
	"equipment_type": "Equipment_Type",
	"equipment type": "Equipment_Type",
	"equipment":      "Equipment_Type",
	"currency":       "Currency",
	"free_days":      "Free_days",
	"free days":      "Free_days",
	"freedays":       "Free_days",
	"bucket_1":       "Bucket_1",
	"bucket 1":       "Bucket_1",
	"bucket_2":       "Bucket_2",
	"bucket 2":       "Bucket_2",
	"bucket_3":       "Bucket_3",
	"bucket 3":       "Bucket_3",
}

// DecodeRecords parses a model reply into raw tariff rows.
// The reply is expected to be a single JSON array of field maps; a bare
// object is tolerated and treated as a one-element array.
func DecodeRecords(reply string, logger *slog.Logger) ([]RawRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	body := StripCodeFence(reply)
	if body == "" {
		return nil, common.ErrEmptyResponse
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		// lenient: a single object instead of an array
		var one map[string]any
		if err2 := json.Unmarshal([]byte(body), &one); err2 != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
		}
		rows = []map[string]any{one}
	}
	// a bare `null` or `[]` body decodes cleanly to zero rows; report it so
	// the region shows up as a soft failure instead of vanishing
	if len(rows) == 0 {
		return nil, common.ErrEmptyResponse
	}

	out := make([]RawRecord, 0, len(rows))
	for _, row := range rows {
		rec := make(RawRecord, len(row))
		var dropped []string
		for k, v := range row {
			canon, ok := canonicalKeys[strings.ToLower(strings.TrimSpace(k))]
			if !ok {
				dropped = append(dropped, k)
				continue
			}
			// don't overwrite an already-present canonical key
			if _, exists := rec[canon]; !exists {
				rec[canon] = v
			}
		}
		if len(dropped) > 0 {
			logger.Warn("llm.decode.dropped_keys", "keys", dropped)
		}
		out = append(out, rec)
	}
	return out, nil
}
