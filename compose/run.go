package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bxc/block"
	"bxc/common"
	"bxc/state"
)

// Run implements the export subcommand: read a document snapshot, project
// it into the requested schema and write the result.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

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
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	format, err := common.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to jats", zap.Error(err))
		format = common.OutputFmtJATS
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

	log.Info("Projecting document", zap.Stringer("format", format), zap.Int("blocks", len(doc.Blocks)))

	proj := &Projector{
		Format:   format,
		Registry: registry,
		Images:   env.Cfg.Document.Images,
		Log:      log,
	}
	res, err := proj.Project(doc)
	if err != nil {
		return err
	}
	if len(res.Skipped) > 0 {
		log.Warn("Some blocks were not exported", zap.Int("count", len(res.Skipped)))
	}
	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("projection/%s.txt", format), []byte(res.String()))
	}

	xml, err := Render(res.Doc, log)
	if err != nil {
		return err
	}

	ext := format.Ext()
	if len(res.Attachments) > 0 {
		ext = ".zip"
	}
	outPath := buildOutputPath(doc.Meta, src, dst, ext, format, env)

	if filepath.Ext(outPath) == ".zip" {
		err = WritePackage(outPath, xml, res.Attachments, env.Overwrite, log)
	} else {
		if len(res.Attachments) > 0 {
			log.Warn("Plain XML destination requested, attachments are dropped", zap.Int("count", len(res.Attachments)))
		}
		err = WriteXML(outPath, xml, env.Overwrite, log)
	}
	if err != nil {
		return err
	}

	log.Info("Export complete", zap.String("output", outPath), zap.Int("footnotes", len(res.Footnotes)), zap.Int("attachments", len(res.Attachments)), zap.Int("skipped", len(res.Skipped)))
	return nil
}
