package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSession(t *testing.T) {
	p := newTestParser()

	s, err := p.ParseSession([]string{`"Altis"`, "40.0", "20.0", `"Siege of Kavala"`})
	require.NoError(t, err)

	assert.Equal(t, "Altis", s.WorldName)
	assert.Equal(t, "Siege of Kavala", s.MissionName)
	assert.Equal(t, 40.0, s.Latitude)
	assert.Equal(t, 20.0, s.Longitude)
	// EPSG:3857 of 20E 40N
	assert.InDelta(t, 2226389.8, s.Location.X, 1.0)
	assert.InDelta(t, 4865942.3, s.Location.Y, 1.0)
	assert.False(t, s.StartTime.IsZero())
}

func TestParseSession_Errors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input []string
	}{
		{"insufficient", []string{"Altis", "40", "20"}},
		{"empty world", []string{"", "40", "20", "m"}},
		{"bad latitude", []string{"Altis", "north", "20", "m"}},
		{"latitude out of range", []string{"Altis", "91", "20", "m"}},
		{"longitude out of range", []string{"Altis", "40", "-181", "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseSession(tt.input)
			assert.Error(t, err)
		})
	}
}
