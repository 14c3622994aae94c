package compose

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"bxc/block"
	"bxc/common"
)

// templateValues holds variables available to the output name template.
type templateValues struct {
	Title      string
	ID         string
	Authors    []string
	Year       string
	Language   string
	Format     string
	SourceFile string
}

// expandOutputNameTemplate expands the user template with document
// metadata. An empty string is returned on any trouble so the caller can
// fall back to default naming.
func expandOutputNameTemplate(tmpl string, meta block.DocumentMeta, srcName string, format common.OutputFmt) (string, error) {
	t, err := template.New("output_name_template").Funcs(sprig.FuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("unable to parse output name template: %w", err)
	}
	values := &templateValues{
		Title:      meta.Title,
		ID:         meta.ID,
		Authors:    meta.Authors,
		Year:       meta.Year,
		Language:   meta.Language,
		Format:     format.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(srcName), filepath.Ext(srcName)),
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("unable to expand output name template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
