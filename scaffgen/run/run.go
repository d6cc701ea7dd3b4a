// Package run implements the main logic for the scaffgen tool in a testable way.
package run

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/toejough/scaffgen/internal/logging"
	load "github.com/toejough/scaffgen/scaffgen/run/2_load"
	detect "github.com/toejough/scaffgen/scaffgen/run/3_detect"
	output "github.com/toejough/scaffgen/scaffgen/run/6_output"
)

// Exported constants.
const (
	// DefaultOutputDir is the output directory, relative to the working directory, used when
	// neither --out nor SCAFFGEN_OUT is set.
	DefaultOutputDir = "GeneratedTests"
	// EnvConfig names the environment variable that supplies --config.
	EnvConfig = "SCAFFGEN_CONFIG"
	// EnvOut names the environment variable that supplies --out.
	EnvOut = "SCAFFGEN_OUT"
)

// FileSystem interface for mocking.
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

// PackageLoader resolves package patterns, relative to dir, into parsed packages.
type PackageLoader interface {
	Load(dir string, patterns []string) ([]load.Package, error)
}

// PackageName derives a test package name from an output directory: the base name, lower-cased,
// with every character that cannot appear in an identifier removed. "Generated-Tests" becomes
// "generatedtests".
func PackageName(outputDir string) string {
	base := strings.ToLower(filepath.Base(outputDir))

	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return -1
	}, base)
}

// Run executes the scaffgen tool logic. It parses args, scans the requested packages, and writes
// one test script per candidate type into the output directory, then reports that directory on
// out. Log entries go to diag, so out carries only the report line (or --help usage). getEnv and
// getwd stand in for the process environment; fileSys and pkgLoader do all I/O.
func Run(
	args []string,
	getEnv func(string) string,
	getwd func() (string, error),
	fileSys FileSystem,
	pkgLoader PackageLoader,
	out io.Writer,
	diag io.Writer,
) error {
	parsed, err := parseArgs(args, out)
	if errors.Is(err, arg.ErrHelp) {
		return nil
	}

	if err != nil {
		return err
	}

	applyEnv(&parsed, getEnv)

	cwd, err := getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	log := logging.New(parsed.Verbose, diag)

	defer func() { _ = log.Sync() }()

	mockConfig, err := loadMockConfig(resolvePath(cwd, parsed.Config), fileSys)
	if err != nil {
		return err
	}

	outputDir := resolvePath(cwd, parsed.Out)
	if outputDir == "" {
		outputDir = filepath.Join(cwd, DefaultOutputDir)
	}

	testPkg, err := testPackageName(parsed.Package, outputDir)
	if err != nil {
		return err
	}

	generator, err := NewTestScriptGenerator(mockConfig, testPkg, parsed.Reorder, fileSys, log)
	if err != nil {
		return err
	}

	err = output.PrepareDir(outputDir, fileSys)
	if err != nil {
		return err
	}

	patterns := parsed.Packages
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	pkgs, err := pkgLoader.Load(cwd, patterns)
	if err != nil {
		return fmt.Errorf("failed to load packages %v: %w", patterns, err)
	}

	if parsed.SkipBroken {
		pkgs = skipBroken(pkgs, log)
	}

	catalog, err := detect.Discover(pkgs)
	if err != nil {
		return err
	}

	for _, pkg := range pkgs {
		if !detect.IsImportable(pkg) {
			logging.Package(log, pkg.PkgPath).Debug("skipping command package")
		}
	}

	log.Debug("discovered candidate types", zap.Int("packages", len(pkgs)), zap.Int("types", len(catalog)))

	err = generator.GenerateTestScripts(catalog, outputDir)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Test scripts generated in: %s\n", outputDir)

	return nil
}

// unexported variables.
var (
	errInvalidPackageName = errors.New("invalid test package name")
)

// unexported types.

// cliArgs defines the command-line arguments for the generator.
type cliArgs struct {
	Packages   []string `arg:"positional"    help:"package patterns to scan (default .)"`
	Out        string   `arg:"--out"         help:"output directory (default <cwd>/GeneratedTests, env SCAFFGEN_OUT)"`
	Package    string   `arg:"--package"     help:"generated test package name (default derived from the output directory)"`
	Config     string   `arg:"--config"      help:"TOML file overriding the mock templates (env SCAFFGEN_CONFIG)"`
	Reorder    bool     `arg:"--reorder"     help:"reorder generated declarations canonically"`
	SkipBroken bool     `arg:"--skip-broken" help:"skip packages that fail to load instead of failing the run"`
	Verbose    bool     `arg:"-v,--verbose"  help:"log debug output"`
}

// applyEnv fills flags left unset from their environment variables.
func applyEnv(parsed *cliArgs, getEnv func(string) string) {
	if parsed.Out == "" {
		parsed.Out = getEnv(EnvOut)
	}

	if parsed.Config == "" {
		parsed.Config = getEnv(EnvConfig)
	}
}

// parseArgs parses command-line arguments into cliArgs. For --help the usage is written to out and
// arg.ErrHelp is returned.
func parseArgs(args []string, out io.Writer) (cliArgs, error) {
	var parsed cliArgs

	parser, err := arg.NewParser(arg.Config{Program: "scaffgen"}, &parsed)
	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to create argument parser: %w", err)
	}

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	err = parser.Parse(cmdArgs)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(out)

		return cliArgs{}, err
	}

	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to parse arguments: %w", err)
	}

	return parsed, nil
}

// resolvePath anchors a relative path at cwd. Empty stays empty.
func resolvePath(cwd, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(cwd, path)
}

// skipBroken drops the packages that could not be loaded, logging each at warn level.
func skipBroken(pkgs []load.Package, log *zap.Logger) []load.Package {
	usable := make([]load.Package, 0, len(pkgs))

	for _, pkg := range pkgs {
		if pkg.Err != nil {
			logging.Package(log, pkg.PkgPath).Warn("skipping package", zap.Error(pkg.Err))

			continue
		}

		usable = append(usable, pkg)
	}

	return usable
}

// testPackageName returns the explicit name when given, the name derived from outputDir otherwise.
func testPackageName(explicit, outputDir string) (string, error) {
	name := explicit
	if name == "" {
		name = PackageName(outputDir)
	}

	if !token.IsIdentifier(name) {
		return "", fmt.Errorf("%w: %q", errInvalidPackageName, name)
	}

	return name, nil
}
