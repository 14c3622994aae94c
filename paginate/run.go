package paginate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bxc/block"
	"bxc/state"
)

// Run implements the paginate subcommand: recompute page break markers for
// a document snapshot and write the reflowed snapshot back out.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("paginate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		ext := filepath.Ext(src)
		dst = strings.TrimSuffix(src, ext) + ".paged" + ext
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	env.Overwrite = cmd.Bool("overwrite")

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read document snapshot: %w", err)
	}
	doc, err := block.ParseDocument(data, log)
	if err != nil {
		return err
	}
	registry, err := block.LoadRegistry(env.Cfg.Document.StylesPath, log)
	if err != nil {
		return err
	}

	var measure MeasureFunc
	if path := cmd.String("measures"); len(path) > 0 {
		m, err := LoadTableMeasurer(path)
		if err != nil {
			return err
		}
		measure = m.Measure
	} else {
		log.Warn("No measures file supplied, using built-in line metrics")
		measure = defaultMeasurer().Measure
	}

	geometry := env.Cfg.Document.Page
	startPage := geometry.StartPage
	if cmd.IsSet("start-page") {
		startPage = cmd.Int("start-page")
	}

	eng := &Engine{
		Geometry:  geometry,
		Measure:   measure,
		Registry:  registry,
		Log:       log,
		StartPage: startPage,
		BodyStyle: env.Cfg.Document.FallbackStyle,
	}
	res, err := eng.Paginate(doc.Blocks)
	if err != nil {
		return err
	}
	if len(res.Overflowed) > 0 {
		log.Warn("Some blocks are taller than a page", zap.Ints("ids", res.Overflowed))
	}

	out := &block.Document{Meta: doc.Meta, Blocks: res.Blocks}
	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to serialize snapshot: %w", err)
	}
	if !env.Overwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("destination already exists: %s", dst)
		}
	}
	if err := os.WriteFile(dst, buf, 0644); err != nil {
		return fmt.Errorf("unable to write snapshot: %w", err)
	}

	log.Info("Pagination complete", zap.String("output", dst), zap.Int("pages", res.Pages), zap.Int("blocks", len(res.Blocks)))
	return nil
}

// defaultMeasurer approximates a 16px body font when no metrics table is
// supplied on the command line.
func defaultMeasurer() *TableMeasurer {
	return &TableMeasurer{
		Default: StyleMetrics{LineHeight: 24, CharsPerLine: 80, MarginBottom: 12},
		Styles: map[string]StyleMetrics{
			"heading-1": {LineHeight: 40, CharsPerLine: 40, MarginTop: 24, MarginBottom: 16},
			"heading-2": {LineHeight: 32, CharsPerLine: 50, MarginTop: 20, MarginBottom: 12},
			"heading-3": {LineHeight: 28, CharsPerLine: 60, MarginTop: 16, MarginBottom: 10},
			"table":     {FixedHeight: 240},
			"image":     {FixedHeight: 320},
		},
	}
}
