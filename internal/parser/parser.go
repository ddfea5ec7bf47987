// Package parser converts host command arguments into core types.
// Every function is pure: no world access, no storage, no callbacks.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/siegelimit/internal/util"
)

// ErrInsufficientData is returned when a command carries fewer arguments than required.
var ErrInsufficientData = errors.New("insufficient data fields")

// Parser provides pure []string -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// fixArgs unquotes host strings in place and checks the argument count.
func fixArgs(data []string, need int) error {
	if len(data) < need {
		return fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(data), need)
	}
	for i, v := range data {
		data[i] = util.CleanArg(v)
	}
	return nil
}

// parseFloat parses a host number. SQF numbers may carry surrounding spaces.
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

func requireNonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is empty", field)
	}
	return nil
}
