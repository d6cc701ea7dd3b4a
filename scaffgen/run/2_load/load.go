// Package load resolves package patterns and parses their sources into DST.
package load

import (
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"golang.org/x/tools/go/packages"
)

// Package is one loaded Go package. Test files are never included: scaffolding is generated for
// the code under test, not for existing tests.
type Package struct {
	Name    string
	PkgPath string
	Dir     string
	// Files and FileNames are parallel and sorted by file name.
	Files     []*dst.File
	FileNames []string
	Fset      *token.FileSet
	// Err is set when the package could not be listed or one of its files failed to parse.
	Err error
}

// Packages resolves patterns relative to dir and parses the non-test Go files of every match.
// Packages are returned sorted by import path so that discovery order is stable across runs.
// Problems with individual packages are recorded on Package.Err; only a failure of the whole
// listing is returned as an error.
func Packages(dir string, patterns []string) ([]Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
		Dir:  dir,
	}

	listed, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages %v: %w", patterns, err)
	}

	if len(listed) == 0 {
		return nil, fmt.Errorf("%w: %v", errNoPackagesFound, patterns)
	}

	slices.SortFunc(listed, func(a, b *packages.Package) int {
		return strings.Compare(a.PkgPath, b.PkgPath)
	})

	loaded := make([]Package, 0, len(listed))

	for _, pkg := range listed {
		loaded = append(loaded, parsePackage(pkg))
	}

	return loaded, nil
}

// ParseFiles parses the given Go files into a Package. It is used for packages whose file list is
// already known, and by parsePackage once go/packages has resolved one. A package with only test
// files loads without error and with no files.
func ParseFiles(name, pkgPath string, goFiles []string) Package {
	pkg := Package{
		Name:    name,
		PkgPath: pkgPath,
		Fset:    token.NewFileSet(),
	}

	sorted := slices.Clone(goFiles)
	slices.Sort(sorted)

	if len(sorted) > 0 {
		pkg.Dir = filepath.Dir(sorted[0])
	}

	dec := decorator.NewDecorator(pkg.Fset)

	for _, goFile := range sorted {
		if strings.HasSuffix(goFile, "_test.go") {
			continue
		}

		dstFile, err := dec.ParseFile(goFile, nil, 0)
		if err != nil {
			pkg.Err = fmt.Errorf("failed to parse %s: %w", goFile, err)
			return pkg
		}

		pkg.Files = append(pkg.Files, dstFile)
		pkg.FileNames = append(pkg.FileNames, goFile)
	}

	return pkg
}

func parsePackage(listed *packages.Package) Package {
	if len(listed.Errors) > 0 {
		errs := make([]error, 0, len(listed.Errors))
		for _, listErr := range listed.Errors {
			errs = append(errs, listErr)
		}

		return Package{
			Name:    listed.Name,
			PkgPath: listed.PkgPath,
			Err:     fmt.Errorf("%w: %s: %w", errPackageErrors, listed.PkgPath, errors.Join(errs...)),
		}
	}

	return ParseFiles(listed.Name, listed.PkgPath, listed.GoFiles)
}

// unexported variables.
var (
	errNoPackagesFound = errors.New("no packages found")
	errPackageErrors   = errors.New("package errors")
)
