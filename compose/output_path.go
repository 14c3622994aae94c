package compose

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"bxc/block"
	"bxc/common"
	"bxc/config"
	"bxc/state"
)

// buildOutputPath constructs the destination path for an export. When dst
// already names a file (.xml or .zip) it wins as is. Otherwise dst is a
// directory and the file name comes from either the configured template or
// the source file name, transliterated if requested.
func buildOutputPath(meta block.DocumentMeta, src, dst, ext string, format common.OutputFmt, env *state.LocalEnv) string {
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".xml", ".zip":
		return dst
	}

	name := ""
	if tmpl := env.Cfg.Document.OutputNameTemplate; tmpl != "" {
		expanded, err := expandOutputNameTemplate(tmpl, meta, src, format)
		if err != nil {
			env.Log.Warn("Output name template failed, using default name", zap.Error(err))
		} else {
			name = expanded
		}
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	if env.Cfg.Document.FileNameTransliterate {
		name = slug.Make(name)
	}
	return filepath.Join(dst, config.CleanFileName(name)+ext)
}
