package tariff

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/freightdata/tariff-extractor/constants"
	"github.com/freightdata/tariff-extractor/internal/common"
)

// Normalize coerces one raw field map into the canonical record shape.
// Failures are per-record: an error here means this row is dropped, never
// that a batch aborts.
func Normalize(raw map[string]any) (Record, error) {
	var rec Record

	country, err := requiredString(raw, "Country")
	if err != nil {
		return rec, err
	}
	dirRaw, err := requiredString(raw, "Type")
	if err != nil {
		return rec, err
	}
	direction, ok := constants.ParseDirection(dirRaw)
	if !ok {
		return rec, fmt.Errorf("%w: unrecognized direction %q", common.ErrInvalidRecord, dirRaw)
	}
	equipment, err := requiredString(raw, "Equipment_Type")
	if err != nil {
		return rec, err
	}
	currency, err := requiredString(raw, "Currency")
	if err != nil {
		return rec, err
	}

	freeDays, ok, err := coerceInt(raw["Free_days"])
	if err != nil {
		return rec, fmt.Errorf("%w: Free_days: %v", common.ErrInvalidRecord, err)
	}
	if !ok {
		return rec, fmt.Errorf("%w: Free_days is required", common.ErrInvalidRecord)
	}
	if freeDays < 0 {
		return rec, fmt.Errorf("%w: Free_days must be >= 0, got %d", common.ErrInvalidRecord, freeDays)
	}

	rec = Record{
		Country:       country,
		Direction:     direction,
		LinerName:     optionalString(raw["Liner_Name"]),
		Port:          optionalString(raw["Port"]),
		EquipmentType: equipment,
		Currency:      strings.ToUpper(currency),
		FreeDays:      freeDays,
	}

	for _, b := range []struct {
		key string
		dst **int
	}{
		{"Bucket_1", &rec.Bucket1},
		{"Bucket_2", &rec.Bucket2},
		{"Bucket_3", &rec.Bucket3},
	} {
		v, ok, err := coerceInt(raw[b.key])
		if err != nil {
			return Record{}, fmt.Errorf("%w: %s: %v", common.ErrInvalidRecord, b.key, err)
		}
		if ok {
			val := v
			*b.dst = &val
		}
	}

	return rec, nil
}

// NormalizeAll applies Normalize independently to every raw row and returns
// the subset that validated plus the count of dropped rows.
func NormalizeAll(raws []map[string]any, logger *slog.Logger) ([]Record, int) {
	if logger == nil {
		logger = slog.Default()
	}
	records := make([]Record, 0, len(raws))
	dropped := 0
	for i, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			logger.Warn("normalize.record_dropped", "row", i, "error", err)
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

func requiredString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %s is required", common.ErrInvalidRecord, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", common.ErrInvalidRecord, key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", common.ErrInvalidRecord, key)
	}
	return s, nil
}

// optionalString maps empty or absent raw values to nil, never to "".
func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// coerceInt interprets the empty sentinels (nil, "", "null") as absent and
// coerces anything else to an integer. A non-coercible non-empty value is an
// error, which invalidates the whole record.
func coerceInt(v any) (val int, present bool, err error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return t, true, nil
	case int64:
		return int(t), true, nil
	case float64:
		if t != math.Trunc(t) {
			return 0, false, fmt.Errorf("not an integer: %v", t)
		}
		return int(t), true, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return 0, false, nil
		}
		n, perr := strconv.Atoi(s)
		if perr != nil {
			// tolerate "150.0" style replies
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) {
				return 0, false, fmt.Errorf("not an integer: %q", s)
			}
			return int(f), true, nil
		}
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported type %T", v)
	}
}
