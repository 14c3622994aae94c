package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("unable to open report archive: %v", err)
	}
	defer zr.Close()

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open archive entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read archive entry %s: %v", f.Name, err)
		}
		out[f.Name] = data
	}
	return out
}

func TestReportNilSafe(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report: %v", err)
	}
	if n := r.Name(); n != "" {
		t.Errorf("Name on nil report: %q", n)
	}
	r.Store("a", "b")
	r.StoreData("c", []byte("d"))
	if err := r.StoreCopy("e", "f"); err != nil {
		t.Errorf("StoreCopy on nil report: %v", err)
	}
}

func TestReportCloseWithoutFile(t *testing.T) {
	r := &Report{entries: make(map[string]item)}
	if err := r.Close(); err != nil {
		t.Errorf("Close without file: %v", err)
	}
}

func TestReportArchive(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(src, []byte("source content"), 0644); err != nil {
		t.Fatal(err)
	}

	conf := &ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	r.Store("input.txt", src)
	r.StoreData("notes/result.txt", []byte("blob content"))
	r.Store("missing.txt", filepath.Join(dir, "nonexistent"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readArchive(t, conf.Destination)

	if _, ok := entries["MANIFEST"]; !ok {
		t.Error("archive has no MANIFEST")
	}
	if got := string(entries["input.txt"]); got != "source content" {
		t.Errorf("stored file content: %q", got)
	}
	if got := string(entries["notes/result.txt"]); got != "blob content" {
		t.Errorf("stored data content: %q", got)
	}
	if _, ok := entries["missing.txt"]; ok {
		t.Error("entry for absent file should be skipped")
	}
}

func TestReportStoreCopySnapshot(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "volatile.txt")
	if err := os.WriteFile(src, []byte("before"), 0644); err != nil {
		t.Fatal(err)
	}

	conf := &ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if err := r.StoreCopy("volatile.txt", src); err != nil {
		t.Fatalf("StoreCopy: %v", err)
	}

	// change the source after the snapshot was taken
	if err := os.WriteFile(src, []byte("after"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readArchive(t, conf.Destination)
	if got := string(entries["volatile.txt"]); got != "before" {
		t.Errorf("snapshot content = %q, want pre-modification content", got)
	}
}

func TestReportStoreConflictPanics(t *testing.T) {
	r := &Report{entries: make(map[string]item)}
	r.Store("name", "/some/path")
	r.Store("name", "/some/path") // same path is fine

	defer func() {
		if recover() == nil {
			t.Error("expected panic when overwriting entry with a different path")
		}
	}()
	r.Store("name", "/other/path")
}
