package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bxc/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates an empty report backed by the configured destination,
// falling back to a temp file when the destination cannot be created.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	r := &Report{entries: make(map[string]item)}

	f, err := os.Create(conf.Destination)
	if err != nil {
		f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip")
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	r.file = f
	return r, nil
}

type item struct {
	original string
	actual   string
	stamp    time.Time
	data     []byte
}

// Report collects files and data blobs to be archived together for
// troubleshooting. All methods are safe on a nil receiver, a nil report
// simply means no report was requested. Not safe for concurrent use.
type Report struct {
	entries map[string]item
	file    *os.File
}

// Close writes out the archive and releases the underlying file.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()
	return r.finalize()
}

// Name returns the absolute path of the report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store records a path to be read and archived during Close. Registering a
// different path under an existing name is a programming error.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}

	if old, exists := r.entries[name]; exists && old.original != path {
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old.original, path))
	}

	e := item{original: path, actual: path}
	if p, err := filepath.Abs(path); err == nil {
		e.actual = p
	}
	r.entries[name] = e
}

// StoreData records a blob to be archived under the given name during Close.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}

	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("Attempt to overwrite data in the report for [%s]", name))
	}

	r.entries[name] = item{data: data, stamp: time.Now()}
}

// StoreCopy snapshots a file or directory into a temporary location right
// away, so later modifications do not leak into the report. Repeated names
// are versioned with a timestamp instead of rejected.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}

	e := item{stamp: time.Now(), original: path}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	e.actual = absPath

	if _, exists := r.entries[name]; exists {
		name = fmt.Sprintf("%s-%d", name, e.stamp.UnixNano())
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-rpt-")
	if err != nil {
		return err
	}

	info, err := os.Stat(e.actual)
	if err != nil {
		return err
	}
	switch {
	case info.Mode().IsRegular():
		where, err := snapshotFile(dir, e.actual, info.ModTime())
		if err != nil {
			return err
		}
		e.actual = where
	case info.Mode().IsDir():
		if err := snapshotDir(dir, e.actual); err != nil {
			return err
		}
		e.actual = dir
	}

	r.entries[name] = e
	return nil
}

func snapshotFile(dir, src string, modTime time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, filepath.Base(src))

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	if err = out.Sync(); err != nil {
		return "", err
	}
	out.Close()

	// keep the source timestamp, it matters when reading the report
	if err := os.Chtimes(dst, modTime, modTime); err != nil {
		return "", err
	}
	return dst, nil
}

func snapshotDir(dir, src string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			// links, sockets and such have no place in a report
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		newpath := filepath.Join(dir, rel)

		if _, err := snapshotFile(filepath.Dir(newpath), path, info.ModTime()); err != nil {
			return err
		}
		return nil
	})
}

// finalize writes the archive: a MANIFEST first, then every entry in
// manifest order. Files that disappeared since Store are skipped.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)
	defer arc.Close()

	names, manifest := buildManifest(r.entries)
	if err := archiveFile(arc, "MANIFEST", time.Now(), manifest); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if len(e.data) > 0 {
			if err := archiveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}

		info, err := os.Stat(e.actual)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			in, err := os.Open(e.actual)
			if err != nil {
				return err
			}
			if err := archiveFile(arc, name, info.ModTime(), in); err != nil {
				in.Close()
				return err
			}
			in.Close()
		case info.Mode().IsDir():
			if err := archiveDir(arc, name, e.actual); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildManifest(entries map[string]item) ([]string, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	if len(entries) == 0 {
		return nil, buf
	}

	now := time.Now()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := entries[k]
		if e.stamp.IsZero() {
			e.stamp = now
		}
		fmt.Fprintf(buf, "%s\t%s\t%s : %s\n", e.stamp.UTC().Format(time.UnixDate), k, e.original, e.actual)
	}
	return keys, buf
}

func archiveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return nil
}

func archiveDir(dst *zip.Writer, name, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(filepath.Join(name, rel))

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		return archiveFile(dst, rel, info.ModTime(), in)
	})
}
