package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
}

func usage(t *testing.T, paths ...string) int64 {
	t.Helper()
	n, err := DiskUsageBytes(paths...)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "db.sqlite")
	writeTestFile(t, file, "hello")

	sub := filepath.Join(dir, "index")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(sub, "a"), "ab")
	writeTestFile(t, filepath.Join(sub, "b"), "c")

	if got := usage(t, file); got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}
	if got := usage(t, sub); got != 3 {
		t.Errorf("directory: got %d bytes, want 3", got)
	}
	if got := usage(t, file, sub); got != 8 {
		t.Errorf("file and directory: got %d bytes, want 8", got)
	}
	if got := usage(t, file, filepath.Join(dir, "missing"), sub); got != 8 {
		t.Errorf("missing path skipped: got %d bytes, want 8", got)
	}
	if got := usage(t, "", file); got != 5 {
		t.Errorf("empty path skipped: got %d bytes, want 5", got)
	}
}
