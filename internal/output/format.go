// Package output resolves which format samara commands write and
// provides the JSON printer. Text is the default; scripts and sessions
// opt into JSON with --format json or SAMARA_OUTPUT_FORMAT.
package output

import (
	"encoding/json"
	"os"
	"strings"
)

// Format represents an output format.
type Format string

const (
	// FormatText is human-oriented text output.
	FormatText Format = "text"
	// FormatJSON is machine-readable JSON output.
	FormatJSON Format = "json"
)

// EnvFormat overrides the default format when no flag is given.
const EnvFormat = "SAMARA_OUTPUT_FORMAT"

// IsJSON reports whether f is the JSON format.
func (f Format) IsJSON() bool {
	return f == FormatJSON
}

// ResolveFormat determines the output format from a flag value and the
// environment. Priority: explicit flag, then SAMARA_OUTPUT_FORMAT, then
// text. Unrecognized values fall through to the next source.
func ResolveFormat(flagValue string) Format {
	if f, ok := parseFormat(flagValue); ok {
		return f
	}
	if f, ok := parseFormat(os.Getenv(EnvFormat)); ok {
		return f
	}
	return FormatText
}

func parseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "text":
		return FormatText, true
	case "json":
		return FormatJSON, true
	}
	return "", false
}

// IsJSON reports whether the environment selects JSON output.
func IsJSON() bool {
	return ResolveFormat("") == FormatJSON
}

// PrintJSON writes the value as indented JSON to stdout.
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintJSONLines writes each value as one compact JSON line, the same
// framing the stream itself uses. Encoding stops at the first error.
func PrintJSONLines[T any](values []T) error {
	enc := json.NewEncoder(os.Stdout)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}
