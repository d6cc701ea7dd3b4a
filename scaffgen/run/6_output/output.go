package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/toejough/go-reorder"
	"go.uber.org/zap"

	"github.com/toejough/scaffgen/internal/logging"
)

// Exported constants.
const (
	// FileSuffix is appended to a holder name to form the generated file name.
	FileSuffix = "_test.go"
)

// Writer creates the output directory and the generated files in it.
type Writer interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// FileName returns the generated file name for a holder: <Holder>_test.go.
func FileName(holder string) string {
	return holder + FileSuffix
}

// PrepareDir creates dir and any missing parents. An existing directory is not an error.
func PrepareDir(dir string, fileWriter Writer) error {
	const outputDirPermissions = 0o750

	err := fileWriter.MkdirAll(dir, outputDirPermissions)
	if err != nil {
		return fmt.Errorf("error creating output directory %s: %w", dir, err)
	}

	return nil
}

// WriteTestFile writes code to dir/<holder>_test.go, replacing any previous file, and returns the
// written path. With reorderCode set, declarations are first put in canonical order; a reorder
// failure is logged and the code is written as rendered.
func WriteTestFile(
	dir, holder, code string, reorderCode bool, fileWriter Writer, log *zap.Logger,
) (string, error) {
	const generatedFilePermissions = 0o600

	path := filepath.Join(dir, FileName(holder))
	log = log.With(zap.String(logging.FieldFile, path))

	if reorderCode {
		reordered, err := reorder.Source(code)
		if err != nil {
			log.Warn("failed to reorder generated code", zap.Error(err))
		} else {
			code = reordered
		}
	}

	err := fileWriter.WriteFile(path, []byte(code), generatedFilePermissions)
	if err != nil {
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}

	log.Debug("test script written")

	return path, nil
}
