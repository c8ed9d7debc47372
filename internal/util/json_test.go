package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()

	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	if ReadJSONFile(filepath.Join(dir, "absent.json"), &p) {
		t.Fatal("missing file reported as read")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ReadJSONFile(bad, &p) {
		t.Fatal("malformed file reported as read")
	}

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(`{"name":"ok"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if !ReadJSONFile(good, &p) || p.Name != "ok" {
		t.Fatalf("got %+v", p)
	}
}
