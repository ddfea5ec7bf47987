package parser

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	p := NewParser(slog.Default())
	return p
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)
	assert.NotNil(t, NewParser(nil).logger)
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"float", "12.5", 12.5, false},
		{"spaces", " 3 ", 3, false},
		{"negative", "-1.25", -1.25, false},
		{"empty", "", 0, true},
		{"nan", "NaN", 0, true},
		{"inf", "+Inf", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFixArgs(t *testing.T) {
	data := []string{`"a"`, `"say ""hi"" now"`}

	require.NoError(t, fixArgs(data, 2))
	assert.Equal(t, []string{"a", `say "hi" now`}, data)

	err := fixArgs([]string{"a"}, 2)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}
