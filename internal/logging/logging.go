// Package logging builds the zap logger used by scaffgen.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exported constants.
const (
	// FieldPackage is the import path of the package being scanned.
	FieldPackage = "pkg"
	// FieldType is the name of the type being generated.
	FieldType = "type"
	// FieldFile is the path of a written test file.
	FieldFile = "file"
)

// New returns a console logger writing to out. Verbose loggers emit debug entries.
func New(verbose bool, out io.Writer) *zap.Logger {
	core := zapcore.NewCore(buildEncoder(), zapcore.AddSync(out), level(verbose))

	return zap.New(core)
}

// Package returns log with the package field set.
func Package(log *zap.Logger, pkgPath string) *zap.Logger {
	return log.With(zap.String(FieldPackage, pkgPath))
}

// Type returns log with the type field set.
func Type(log *zap.Logger, typeName string) *zap.Logger {
	return log.With(zap.String(FieldType, typeName))
}

func buildEncoder() zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	return zapcore.NewConsoleEncoder(encoderConfig)
}

func level(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}

	return zapcore.InfoLevel
}
