package constants

import (
	"strings"
)

// Direction is the canonical shipping direction for a tariff record.
type Direction string

// Stable values (store these exact strings in DB).
const (
	DirectionInbound  Direction = "IB"
	DirectionOutbound Direction = "OB"
)

// directionSynonyms maps the spellings tariff documents actually use
// to the canonical enum.
var directionSynonyms = map[string]Direction{
	"ib":       DirectionInbound,
	"inbound":  DirectionInbound,
	"import":   DirectionInbound,
	"in":       DirectionInbound,
	"ob":       DirectionOutbound,
	"outbound": DirectionOutbound,
	"export":   DirectionOutbound,
	"out":      DirectionOutbound,
}

// ParseDirection canonicalizes a free-text direction label.
func ParseDirection(input string) (Direction, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	d, ok := directionSynonyms[normalized]
	return d, ok
}
