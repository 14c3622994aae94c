// Package common keeps enumerations shared between configuration and
// conversion code so that neither has to depend on the other.
package common

import (
	"fmt"
	"strings"
)

// OutputFmt selects the output schema.
type OutputFmt int

const (
	// OutputFmtJATS - journal article oriented schema (front/body/back).
	OutputFmtJATS OutputFmt = iota
	// OutputFmtBITS - book oriented schema (book-meta/book-body/book-back).
	OutputFmtBITS
)

func (o OutputFmt) String() string {
	switch o {
	case OutputFmtJATS:
		return "jats"
	case OutputFmtBITS:
		return "bits"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtJATS, OutputFmtBITS:
		return ".xml"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// OutputFmtNames returns names of all supported output formats.
func OutputFmtNames() []string {
	return []string{OutputFmtJATS.String(), OutputFmtBITS.String()}
}

// ParseOutputFmt converts textual format name to OutputFmt.
func ParseOutputFmt(name string) (OutputFmt, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "jats", "article":
		return OutputFmtJATS, nil
	case "bits", "book":
		return OutputFmtBITS, nil
	default:
		return 0, fmt.Errorf("unknown output format %q", name)
	}
}
