package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteImage writes a stand-in image file whose bytes encode label, so stub
// recognizers can map uploads back to the card they represent.
func WriteImage(t testing.TB, dir, name, label string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(label), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
