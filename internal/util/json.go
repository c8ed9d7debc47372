package util

import (
	"encoding/json"
	"os"
)

// ReadJSONFile loads path into v, reporting success. Missing and
// malformed files both read as absent; state and cache readers treat
// either as "no data" rather than an error.
func ReadJSONFile(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
