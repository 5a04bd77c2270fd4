package config

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/screa/salty/pkg/types"
)

// Validation errors wrapped by ConfigError.
var (
	ErrInvalidHex     = errors.New("invalid hex string")
	ErrInvalidLength  = errors.New("invalid length")
	ErrEmptyPattern   = errors.New("pattern cannot be empty")
	ErrPatternTooLong = errors.New("pattern is too long")
)

// ConfigError describes a field that failed validation. Expected is the
// required byte length (the maximum, for the pattern) and Actual the length
// that was decoded, or zero when the input was not valid hex.
type ConfigError struct {
	Field    string
	Input    string
	Expected int
	Actual   int
	Err      error
}

func (e *ConfigError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidHex):
		return fmt.Sprintf("invalid hex string for %s: '%s'", e.Field, e.Input)
	case errors.Is(e.Err, ErrEmptyPattern):
		return "pattern cannot be empty"
	case errors.Is(e.Err, ErrPatternTooLong):
		return fmt.Sprintf("pattern is too long (%d bytes), maximum address length is %d bytes",
			e.Actual, e.Expected)
	}
	return fmt.Sprintf("invalid length for %s: expected %d bytes, got %d bytes",
		e.Field, e.Expected, e.Actual)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseConfig validates raw textual input and converts it into a MinerConfig.
func ParseConfig(raw types.RawConfig) (*types.MinerConfig, error) {
	var cfg types.MinerConfig

	if err := parseFixedHex(raw.Factory, "factory", cfg.Factory[:]); err != nil {
		return nil, err
	}
	if err := parseFixedHex(raw.Caller, "caller", cfg.Caller[:]); err != nil {
		return nil, err
	}
	if err := parseFixedHex(raw.Codehash, "codehash", cfg.Codehash[:]); err != nil {
		return nil, err
	}

	pattern, err := parsePattern(raw.Pattern)
	if err != nil {
		return nil, err
	}

	cfg.Worksize = raw.Worksize
	cfg.Pattern = pattern
	cfg.PatternLen = len(pattern)
	return &cfg, nil
}

// parseFixedHex decodes input into out, which must be filled exactly.
func parseFixedHex(input, field string, out []byte) error {
	data, err := hex.DecodeString(strip0x(input))
	if err != nil {
		return &ConfigError{Field: field, Input: input, Expected: len(out), Err: ErrInvalidHex}
	}
	if len(data) != len(out) {
		return &ConfigError{
			Field:    field,
			Input:    input,
			Expected: len(out),
			Actual:   len(data),
			Err:      ErrInvalidLength,
		}
	}
	copy(out, data)
	return nil
}

func parsePattern(input string) ([]byte, error) {
	s := strip0x(input)
	if s == "" {
		return nil, &ConfigError{Field: "pattern", Input: input, Expected: types.MaxPatternLen, Err: ErrEmptyPattern}
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, &ConfigError{Field: "pattern", Input: input, Expected: types.MaxPatternLen, Err: ErrInvalidHex}
	}
	if len(data) > types.MaxPatternLen {
		return nil, &ConfigError{
			Field:    "pattern",
			Input:    input,
			Expected: types.MaxPatternLen,
			Actual:   len(data),
			Err:      ErrPatternTooLong,
		}
	}
	return data, nil
}

// strip0x removes a single 0x or 0X prefix.
func strip0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
