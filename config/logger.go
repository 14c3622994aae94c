package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"bxc/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// Prepare builds the program logger. Console output is split: errors go to
// stderr, everything else to stdout, each stream colorized when it is a
// terminal. File output is optional and, when a debug report is active,
// forced to full verbosity so the report always has a complete log.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {

	consoleCoreLP := zapcore.NewNopCore()
	consoleCoreHP := zapcore.NewNopCore()
	if minLevel, enabled := logMinLevel(conf.ConsoleLogger.Level); enabled {
		consoleCoreLP = zapcore.NewCore(
			consoleEncoderFor(os.Stdout, false),
			zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return minLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(
			consoleEncoderFor(os.Stderr, true),
			zapcore.Lock(os.Stderr),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			}))
	}

	levelRequested := conf.FileLogger.Level
	modeRequested := conf.FileLogger.Mode
	if rpt != nil {
		// report wants everything, user preferences do not apply
		levelRequested = "debug"
		modeRequested = "overwrite"
	}

	fileCore := zapcore.NewNopCore()
	var redirected string
	if level, enabled := logMinLevel(levelRequested); enabled {
		capturePanicLog(conf.FileLogger.Destination, modeRequested, rpt)

		fileEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		if f, err := openLogFile(conf.FileLogger.Destination, modeRequested); err == nil {
			fileCore = zapcore.NewCore(fileEncoder, zapcore.Lock(f), zap.NewAtomicLevelAt(level))
			rpt.Store("final.log", f.Name())
		} else if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err == nil {
			redirected = f.Name()
			fileCore = zapcore.NewCore(fileEncoder, zapcore.Lock(f), zap.NewAtomicLevelAt(level))
			rpt.Store("final.log", redirected)
		} else {
			return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
	}

	log := zap.New(zapcore.NewTee(consoleCoreHP, consoleCoreLP, fileCore), zap.AddCaller())
	if len(redirected) != 0 {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

func logMinLevel(level string) (zapcore.Level, bool) {
	switch level {
	case "normal":
		return zapcore.InfoLevel, true
	case "debug":
		return zapcore.DebugLevel, true
	default:
		return zapcore.InvalidLevel, false
	}
}

func consoleEncoderFor(stream *os.File, filterVerbose bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if filterVerbose {
		return shortErrEncoder{zapcore.NewConsoleEncoder(ec)}
	}
	return zapcore.NewConsoleEncoder(ec)
}

func openLogFile(fname, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(fname, flags, 0644)
}

// capturePanicLog points the runtime crash output at a file next to the
// regular log (or a temp file) so panics survive even when stderr is gone.
func capturePanicLog(dst, mode string, rpt *Report) {
	var ef *os.File
	if f, err := openLogFile(filepath.Join(filepath.Dir(dst), misc.GetAppName()+"-panic.log"), mode); err == nil {
		ef = f
	} else if f, err := os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err == nil {
		ef = f
	} else {
		// nowhere to put it, keep going without capture
		return
	}
	debug.SetCrashOutput(ef, debug.CrashOptions{})
	rpt.Store("panic.log", ef.Name())
	ef.Close()
}

// shortErrEncoder drops verbose error representations from stderr output,
// the full text still lands in the file log.
type shortErrEncoder struct {
	zapcore.Encoder
}

func (c shortErrEncoder) Clone() zapcore.Encoder {
	return shortErrEncoder{c.Encoder.Clone()}
}

func (c shortErrEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			e := f.Interface.(error)
			f.Interface = errors.New(e.Error())
		}
		out = append(out, f)
	}
	return c.Encoder.EncodeEntry(ent, out)
}
