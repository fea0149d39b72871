package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"IB", DirectionInbound, true},
		{"ib", DirectionInbound, true},
		{" Inbound ", DirectionInbound, true},
		{"IMPORT", DirectionInbound, true},
		{"OB", DirectionOutbound, true},
		{"export", DirectionOutbound, true},
		{"out", DirectionOutbound, true},
		{"", "", false},
		{"sideways", "", false},
	}
	for _, c := range cases {
		got, ok := ParseDirection(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF(".pdf"))
	assert.True(t, IsPDF("PDF"))
	assert.False(t, IsPDF(".png"))
	assert.False(t, IsPDF(""))
}
