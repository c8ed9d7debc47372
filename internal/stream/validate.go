package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// LineIssue collects the problems found on one stream line.
type LineIssue struct {
	Line     int      `json:"line"`
	ID       string   `json:"id,omitempty"`
	Problems []string `json:"problems"`
}

// requiredFields are the string fields every event must carry.
var requiredFields = []string{
	"schema_version", "id", "timestamp", "surface", "type", "direction", "summary",
}

// ValidateEvent checks a decoded event object against the schema and
// returns every problem found. Validation works on the raw map so wrong
// JSON types are reported instead of silently coerced or dropped.
func ValidateEvent(raw map[string]any) []string {
	var problems []string

	strField := func(name string) (string, bool) {
		v, ok := raw[name]
		if !ok || v == nil {
			problems = append(problems, fmt.Sprintf("missing required field: %s", name))
			return "", false
		}
		s, ok := v.(string)
		if !ok {
			problems = append(problems, fmt.Sprintf("field %s must be a string", name))
			return "", false
		}
		if s == "" {
			problems = append(problems, fmt.Sprintf("field %s must not be empty", name))
			return "", false
		}
		return s, true
	}

	if v, ok := strField("schema_version"); ok && v != SchemaVersion {
		problems = append(problems, fmt.Sprintf("unsupported schema_version: %s", v))
	}
	strField("id")
	if ts, ok := strField("timestamp"); ok {
		if _, err := time.Parse(time.RFC3339, ts); err != nil {
			problems = append(problems, fmt.Sprintf("invalid timestamp: %s", ts))
		}
	}
	if v, ok := strField("surface"); ok && !ValidSurface(v) {
		problems = append(problems, fmt.Sprintf("invalid surface: %s", v))
	}
	if v, ok := strField("type"); ok && !ValidType(v) {
		problems = append(problems, fmt.Sprintf("invalid type: %s", v))
	}
	if v, ok := strField("direction"); ok && !ValidDirection(v) {
		problems = append(problems, fmt.Sprintf("invalid direction: %s", v))
	}
	strField("summary")

	if v, ok := raw["distilled"]; ok && v != nil {
		if _, isBool := v.(bool); !isBool {
			problems = append(problems, "field distilled must be a boolean")
		}
	}
	for _, name := range []string{"session_id", "content"} {
		if v, ok := raw[name]; ok && v != nil {
			if _, isStr := v.(string); !isStr {
				problems = append(problems, fmt.Sprintf("field %s must be a string", name))
			}
		}
	}
	if v, ok := raw["metadata"]; ok && v != nil {
		if _, isMap := v.(map[string]any); !isMap {
			problems = append(problems, "field metadata must be an object")
		}
	}

	return problems
}

// ValidateFile checks every line of a stream file. Returns the issues
// found and the number of non-blank lines examined. Line numbers are
// physical (1-based, blanks included) so they match an editor's view.
func ValidateFile(path string) ([]LineIssue, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var issues []LineIssue
	total := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			issues = append(issues, LineIssue{
				Line:     lineNo,
				Problems: []string{fmt.Sprintf("invalid JSON: %v", err)},
			})
			continue
		}

		problems := ValidateEvent(raw)
		if len(problems) == 0 {
			continue
		}
		id, _ := raw["id"].(string)
		issues = append(issues, LineIssue{Line: lineNo, ID: id, Problems: problems})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return issues, total, nil
}
