package tariff

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/freightdata/tariff-extractor/constants"
)

// Record represents one validated shipping-tariff row for data transfer
// between layers. Immutable once validated; identity is the ordered tuple of
// its business fields.
type Record struct {
	Country       string              `json:"country"`
	Direction     constants.Direction `json:"direction"`
	LinerName     *string             `json:"liner_name,omitempty"`
	Port          *string             `json:"port,omitempty"`
	EquipmentType string              `json:"equipment_type"`
	Currency      string              `json:"currency"`
	FreeDays      int                 `json:"free_days"`
	Bucket1       *int                `json:"bucket_1,omitempty"`
	Bucket2       *int                `json:"bucket_2,omitempty"`
	Bucket3       *int                `json:"bucket_3,omitempty"`
}

// DedupKey derives the stable store identity from the ordered business
// tuple. Two extractions with identical field values collapse to one row.
func (r Record) DedupKey() string {
	parts := []string{
		r.Country,
		string(r.Direction),
		strOrNull(r.LinerName),
		strOrNull(r.Port),
		r.EquipmentType,
		r.Currency,
		strconv.Itoa(r.FreeDays),
		intOrNull(r.Bucket1),
		intOrNull(r.Bucket2),
		intOrNull(r.Bucket3),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func strOrNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}

func intOrNull(i *int) string {
	if i == nil {
		return "null"
	}
	return strconv.Itoa(*i)
}
