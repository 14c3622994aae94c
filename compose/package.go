package compose

import (
	"archive/zip"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// PackageDocumentName is the XML entry name inside an export package.
const PackageDocumentName = "document.xml"

// WritePackage stores the rendered document and its attachments in a zip
// archive at path. The archive is assembled in a temporary file and moved
// into place so a failed export never leaves a half written package.
func WritePackage(path, xml string, attachments map[string][]byte, overwrite bool, log *zap.Logger) error {
	if err := checkDestination(path, overwrite); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.zip")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	zw := zip.NewWriter(tmp)
	if err := writeZipEntry(zw, PackageDocumentName, []byte(xml)); err != nil {
		return err
	}

	// natural order keeps image-2 before image-10 and archives reproducible
	names := slices.Collect(maps.Keys(attachments))
	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		if err := writeZipEntry(zw, name, attachments[name]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to finalize package: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close package: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("unable to move package into place: %w", err)
	}
	log.Debug("Package written", zap.String("path", path), zap.Int("attachments", len(attachments)))
	return nil
}

// WriteXML stores a bare XML document without packaging. Used when a
// document has no attachments or when the caller asked for plain .xml.
func WriteXML(path, xml string, overwrite bool, log *zap.Logger) error {
	if err := checkDestination(path, overwrite); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(xml), 0644); err != nil {
		return fmt.Errorf("unable to write document: %w", err)
	}
	log.Debug("Document written", zap.String("path", path))
	return nil
}

func checkDestination(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("destination %q already exists (use overwrite to replace)", path)
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create package entry %q: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("unable to write package entry %q: %w", name, err)
	}
	return nil
}
