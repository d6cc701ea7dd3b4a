// scaffgen is a tool to generate test scaffolding for Go packages.
// To use it, install it with `go install github.com/toejough/scaffgen/scaffgen@latest` and run it in a module:
// `scaffgen ./...` writes one <Type>Tests_test.go file into ./GeneratedTests for every exported concrete type with
// exported methods. Each file holds one test per method, with the type's constructor dependencies mocked (imptest
// mocks by default; see --config) and default arguments filled in. The tests are a starting point: fill in the
// assertions.
package main

import (
	"fmt"
	"os"

	"github.com/toejough/scaffgen/scaffgen/run"
	load "github.com/toejough/scaffgen/scaffgen/run/2_load"
)

// main is the entry point of the scaffgen tool.
func main() {
	if os.Args == nil {
		return
	}

	err := run.Run(os.Args, os.Getenv, os.Getwd, &realFileSystem{}, &realPackageLoader{}, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// realFileSystem implements FileSystem using os package.
type realFileSystem struct{}

// MkdirAll creates path and any missing parents.
func (fs *realFileSystem) MkdirAll(path string, perm os.FileMode) error {
	err := os.MkdirAll(path, perm)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// ReadFile reads the file named by name and returns the contents.
func (fs *realFileSystem) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}

	return data, nil
}

// WriteFile creates or truncates the file named by name and writes data to it. The file is closed
// before WriteFile returns.
func (fs *realFileSystem) WriteFile(name string, data []byte, perm os.FileMode) (err error) {
	file, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", name, err)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file %s: %w", name, closeErr)
		}
	}()

	_, err = file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", name, err)
	}

	return nil
}

// realPackageLoader implements PackageLoader using go/packages and DST parsing.
type realPackageLoader struct{}

// Load resolves patterns relative to dir and parses each matching package.
func (pl *realPackageLoader) Load(dir string, patterns []string) ([]load.Package, error) {
	pkgs, err := load.Packages(dir, patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages in %s: %w", dir, err)
	}

	return pkgs, nil
}
