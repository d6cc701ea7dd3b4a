//go:build targ

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/akedrou/textdiff"
	"github.com/toejough/go-reorder"
	"github.com/toejough/targ"
	"github.com/toejough/targ/file"
	"github.com/toejough/targ/sh"
)

// Build compiles scaffgen into bin/.
func Build() error {
	announce("build")

	if err := os.MkdirAll("bin", 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	return sh.Run("go", "build", "-o", scaffgenBinary, "./scaffgen")
}

// Check fixes what can be fixed, then runs every check.
func Check() error {
	announce("check")

	return targ.Deps(
		Tidy,
		FixImports,
		Modernize,
		CheckCoverage,
		ReorderDecls, // lint enforces declaration order
		Lint,
	)
}

// CheckCoverage fails when any function is below the coverage floor.
func CheckCoverage() error {
	announce("coverage")

	if err := targ.Deps(Test); err != nil {
		return err
	}

	report, err := output("go", "tool", "cover", "-func="+coverageFile)
	if err != nil {
		return err
	}

	funcs, err := functionCoverage(report)
	if err != nil {
		return err
	}

	for _, fc := range funcs {
		fmt.Println(fc.line)
	}

	if lowest := funcs[0]; lowest.percent < coverageFloor {
		return fmt.Errorf("%w: %.1f%% is below %.1f%%:\n  %s", errLowCoverage, lowest.percent, coverageFloor, lowest.line)
	}

	return nil
}

// CheckForFail runs the non-fixing checks, fastest first.
func CheckForFail() error {
	announce("check (no fixes)")

	return targ.Deps(
		ReorderDeclsCheck,
		LintForFail,
		TestForFail,
		Smoke,
		CheckCoverage,
	)
}

// Clean removes build and coverage output.
func Clean() {
	announce("clean")

	_ = os.Remove(coverageFile)
	_ = os.RemoveAll("bin")
}

// FixImports runs goimports over the module.
func FixImports() error {
	announce("imports")
	return sh.Run("goimports", "-w", "scaffgen", "internal", "dev")
}

// Lint runs golangci-lint with fixes.
func Lint() error {
	announce("lint")
	return sh.Run("golangci-lint", "run", "./...")
}

// LintForFail runs golangci-lint without fixes, stopping at the first issue of each kind.
func LintForFail() error {
	announce("lint (no fixes)")

	return sh.Run("golangci-lint", "run", "--fix=false", "--max-issues-per-linter=1", "--max-same-issues=1",
		"--allow-parallel-runners", "./...")
}

// Modernize applies the modernize analyzer's fixes.
func Modernize() error {
	announce("modernize")

	return sh.Run("go", "run", "golang.org/x/tools/go/analysis/passes/modernize/cmd/modernize@latest",
		"-fix", "./...")
}

// Mutate runs ooze against the unit tests.
func Mutate() error {
	announce("mutation")

	if err := targ.Deps(TestForFail); err != nil {
		return err
	}

	return sh.Run("go", "test", "-timeout=6000s", "-tags=mutation", "-ooze.v", "./dev/...", "-run=TestMutation")
}

// ReorderDecls rewrites source files into canonical declaration order.
func ReorderDecls() error {
	announce("reorder")

	changed, err := reorderSources(func(path, _, reordered string) error {
		fmt.Printf("  reordered %s\n", path)
		return os.WriteFile(path, []byte(reordered), 0o600)
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d file(s) reordered\n", changed)

	return nil
}

// ReorderDeclsCheck reports, as diffs, the files ReorderDecls would change.
func ReorderDeclsCheck() error {
	announce("reorder (check)")

	changed, err := reorderSources(func(path, current, reordered string) error {
		fmt.Println(textdiff.Unified(path+" (current)", path+" (reordered)", current, reordered))
		return nil
	})
	if err != nil {
		return err
	}

	if changed > 0 {
		return fmt.Errorf("%w: %d file(s); run 'targ reorder-decls'", errOutOfOrder, changed)
	}

	return nil
}

// Smoke runs the built binary over scaffgen's own packages and checks the output is valid Go.
func Smoke() error {
	announce("smoke")

	if err := targ.Deps(Build); err != nil {
		return err
	}

	if err := os.RemoveAll(smokeDir); err != nil {
		return fmt.Errorf("failed to clean %s: %w", smokeDir, err)
	}

	if err := sh.Run(scaffgenBinary, "--out", filepath.Join(smokeDir, "GeneratedTests"), "./scaffgen/..."); err != nil {
		return err
	}

	// The mocks referenced by the scaffolding need go generate, so only syntax is checked.
	unformatted, err := output("gofmt", "-l", smokeDir)
	if err != nil {
		return err
	}

	if unformatted != "" {
		return fmt.Errorf("%w:\n%s", errUnformattedScaffold, unformatted)
	}

	return nil
}

// Test runs the unit tests with race detection and writes coverage.out.
func Test() error {
	announce("test")

	return sh.Run("go", "test", "-timeout=2m", "-race", "-count=1",
		"-coverprofile="+coverageFile, "-coverpkg=./scaffgen/...,./internal/...", "./...")
}

// TestForFail runs the unit tests, stopping at the first failure.
func TestForFail() error {
	announce("test (fail fast)")
	return sh.Run("go", "test", "-timeout=30s", "-failfast", "./...")
}

// Tidy runs go mod tidy.
func Tidy() error {
	announce("tidy")
	return sh.Run("go", "mod", "tidy")
}

// Watch re-runs Check on every relevant change.
func Watch(ctx context.Context) error {
	announce("watch")

	return file.Watch(ctx, []string{"**/*.go", "**/*.toml"}, file.WatchOptions{}, func(changes file.ChangeSet) error {
		if !hasRelevantChanges(changes) {
			return nil
		}

		targ.ResetDeps()

		if err := Check(); err != nil {
			fmt.Println("check failed, still watching")
		} else {
			fmt.Println("check passed, still watching")
		}

		return nil
	})
}

const (
	coverageFile   = "coverage.out"
	coverageFloor  = 80.0
	scaffgenBinary = "./bin/scaffgen"
	smokeDir       = "bin/smoke"
)

var (
	errLowCoverage         = errors.New("function coverage too low")
	errNoCoverage          = errors.New("no coverage data")
	errOutOfOrder          = errors.New("declarations out of order")
	errUnformattedScaffold = errors.New("scaffgen wrote unformatted files")
)

type funcCoverage struct {
	line    string
	percent float64
}

func announce(target string) {
	fmt.Printf("==> %s\n", target)
}

// functionCoverage parses `go tool cover -func` output, lowest coverage first. main.go and the
// total line are left out.
func functionCoverage(report string) ([]funcCoverage, error) {
	percentPattern := regexp.MustCompile(`(\d+\.\d)%$`)

	var funcs []funcCoverage

	for line := range strings.SplitSeq(report, "\n") {
		if strings.Contains(line, "/main.go:") || strings.HasPrefix(line, "total:") {
			continue
		}

		match := percentPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		percent, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad coverage line %q: %w", line, err)
		}

		funcs = append(funcs, funcCoverage{line: line, percent: percent})
	}

	if len(funcs) == 0 {
		return nil, errNoCoverage
	}

	slices.SortStableFunc(funcs, func(a, b funcCoverage) int {
		return cmpFloat(a.percent, b.percent)
	})

	return funcs, nil
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// hasRelevantChanges ignores the files Check itself produces.
func hasRelevantChanges(changes file.ChangeSet) bool {
	all := slices.Concat(changes.Added, changes.Removed, changes.Modified)

	return slices.ContainsFunc(all, func(path string) bool {
		return !strings.HasPrefix(path, "bin/") && !strings.HasSuffix(path, coverageFile)
	})
}

func isGeneratedFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 200)

	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return bytes.Contains(head[:n], []byte("Code generated")), nil
}

// output runs a command and returns its stdout; stderr passes through.
func output(command string, args ...string) (string, error) {
	var stdout bytes.Buffer

	cmd := exec.Command(command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	return strings.TrimSuffix(stdout.String(), "\n"), err
}

// reorderSources runs go-reorder over every hand-written source file and calls onChange for the
// ones whose order would change. It returns how many changed.
func reorderSources(onChange func(path, current, reordered string) error) (int, error) {
	paths, err := sourceFiles()
	if err != nil {
		return 0, err
	}

	changed := 0

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return changed, fmt.Errorf("failed to read %s: %w", path, err)
		}

		reordered, err := reorder.Source(string(content))
		if err != nil {
			fmt.Printf("  skipping %s: %v\n", path, err)

			continue
		}

		if reordered == string(content) {
			continue
		}

		changed++

		if err := onChange(path, string(content), reordered); err != nil {
			return changed, err
		}
	}

	return changed, nil
}

// sourceFiles lists the module's hand-written Go files. Hidden and underscore directories, bin/
// and generated files are skipped.
func sourceFiles() ([]string, error) {
	var paths []string

	err := filepath.WalkDir(".", func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			name := entry.Name()
			if path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "bin") {
				return filepath.SkipDir
			}

			return nil
		}

		if filepath.Ext(path) != ".go" {
			return nil
		}

		generated, err := isGeneratedFile(path)
		if err != nil || generated {
			return err
		}

		paths = append(paths, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list Go files: %w", err)
	}

	return paths, nil
}
