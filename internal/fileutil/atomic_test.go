package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "ledger.json")
	testData := []byte("hello world")

	if err := WriteFileAtomic(testFile, testData, 0o600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("File content mismatch: got %q, want %q", string(data), string(testData))
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("File permissions mismatch: got %o, want %o", info.Mode().Perm(), 0o600)
	}

	assertOnlyFile(t, tmpDir, "ledger.json")
}

func TestWriteFileAtomicOverwrite(t *testing.T) {
	t.Parallel()

	testFile := filepath.Join(t.TempDir(), "test.txt")

	if err := WriteFileAtomic(testFile, []byte("initial"), 0o644); err != nil {
		t.Fatalf("Initial write failed: %v", err)
	}
	if err := WriteFileAtomic(testFile, []byte("updated content"), 0o644); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "updated content" {
		t.Errorf("File content mismatch: got %q", string(data))
	}
}

func TestWriteAtomicCreatesParentDirs(t *testing.T) {
	t.Parallel()

	testFile := filepath.Join(t.TempDir(), "a", "b", "state.json")
	if err := WriteFileAtomic(testFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if _, err := os.Stat(testFile); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestWriteAtomicParentIsFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(filepath.Join(blocker, "test.txt"), []byte("data"), 0o644); err == nil {
		t.Error("Expected error when the parent path is a file")
	}
}

func TestWriteAtomicFailedWriteKeepsOriginal(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "state.json")
	if err := WriteFileAtomic(testFile, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteAtomic(testFile, 0o644, func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	data, _ := os.ReadFile(testFile)
	if string(data) != "original" {
		t.Errorf("original file clobbered: %q", data)
	}
	assertOnlyFile(t, tmpDir, "state.json")
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	type record struct {
		Balance int      `json:"balance"`
		Rounds  []string `json:"rounds"`
	}

	testFile := filepath.Join(t.TempDir(), "state.json")

	var missing record
	found, err := ReadJSON(testFile, &missing)
	if err != nil || found {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}

	want := record{Balance: 1075, Rounds: []string{"r1", "r2"}}
	if err := WriteJSONAtomic(testFile, want); err != nil {
		t.Fatalf("WriteJSONAtomic failed: %v", err)
	}

	var got record
	found, err = ReadJSON(testFile, &got)
	if err != nil || !found {
		t.Fatalf("ReadJSON: found=%v err=%v", found, err)
	}
	if got.Balance != want.Balance || len(got.Rounds) != 2 {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestReadJSONCorrupt(t *testing.T) {
	t.Parallel()

	testFile := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(testFile, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if _, err := ReadJSON(testFile, &v); err == nil {
		t.Error("expected decode error")
	}
}

func assertOnlyFile(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != name {
			t.Errorf("Unexpected file in directory: %s", entry.Name())
		}
	}
}
