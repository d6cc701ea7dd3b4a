// Package detect discovers the types that test scaffolding is generated for.
package detect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dave/dst"
	astutil "github.com/toejough/scaffgen/scaffgen/run/0_util"
	load "github.com/toejough/scaffgen/scaffgen/run/2_load"
)

// Exported variables.
var (
	// ErrPackageUnreadable is returned when a package could not be listed or parsed.
	ErrPackageUnreadable = errors.New("package could not be introspected")
)

// Catalog is the ordered list of types to generate test files for.
type Catalog []TypeDescriptor

// ConstructorDescriptor describes the primary constructor of a type: the package-level New...
// function returning the type (or a pointer to it) with the most parameters.
type ConstructorDescriptor struct {
	Name    string
	Params  []ParameterDescriptor
	Results int
}

// MethodDescriptor describes one exported method declared directly on a type.
type MethodDescriptor struct {
	Name    string
	Params  []ParameterDescriptor
	Results int
}

// ParameterDescriptor is one parameter of a constructor or method. Type is the declared type as
// written in the source package; for variadic parameters it is the element type.
type ParameterDescriptor struct {
	Name     string
	Type     dst.Expr
	Variadic bool
}

// TypeDescriptor is a concrete type with at least one exported method of its own.
type TypeDescriptor struct {
	Name    string
	PkgName string
	PkgPath string
	Methods []MethodDescriptor
	// IsStruct is false for named non-struct types such as "type Celsius float64".
	IsStruct bool
	// Constructor is nil when the package declares no constructor for the type.
	Constructor *ConstructorDescriptor
}

// Discover builds the catalog for the given packages. Packages are visited in the order given and
// types in declaration order, so the result is deterministic for a fixed input. A package that
// failed to load aborts discovery. Command packages are skipped: see IsImportable.
func Discover(pkgs []load.Package) (Catalog, error) {
	var catalog Catalog

	for _, pkg := range pkgs {
		if pkg.Err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrPackageUnreadable, pkg.PkgPath, pkg.Err)
		}

		if !IsImportable(pkg) {
			continue
		}

		catalog = append(catalog, DiscoverPackage(pkg)...)
	}

	return catalog, nil
}

// DiscoverPackage returns the candidate types declared in a single package.
func DiscoverPackage(pkg load.Package) Catalog {
	types := concreteTypes(pkg.Files)
	methods := declaredMethods(pkg.Files)
	constructors := primaryConstructors(pkg.Files)

	catalog := make(Catalog, 0, len(types))

	for _, concrete := range types {
		own := methods[concrete.name]
		if len(own) == 0 {
			continue
		}

		catalog = append(catalog, TypeDescriptor{
			Name:        concrete.name,
			PkgName:     pkg.Name,
			PkgPath:     pkg.PkgPath,
			Methods:     own,
			IsStruct:    concrete.isStruct,
			Constructor: constructors[concrete.name],
		})
	}

	return catalog
}

// IsImportable reports whether pkg can be imported by a generated test package. Go forbids
// importing package main, so its types never get scaffolding.
func IsImportable(pkg load.Package) bool {
	return pkg.Name != mainPackage
}

// Parameters expands a parameter list into one descriptor per parameter. Grouped names
// ("a, b int") yield one descriptor each; unnamed and blank parameters are named arg<N>.
func Parameters(fields *dst.FieldList) []ParameterDescriptor {
	if fields == nil {
		return nil
	}

	var params []ParameterDescriptor

	for _, field := range fields.List {
		paramType := field.Type
		variadic := false

		if ellipsis, ok := paramType.(*dst.Ellipsis); ok {
			paramType = ellipsis.Elt
			variadic = true
		}

		if len(field.Names) == 0 {
			params = append(params, ParameterDescriptor{
				Name:     fmt.Sprintf("arg%d", len(params)+1),
				Type:     paramType,
				Variadic: variadic,
			})

			continue
		}

		for _, name := range field.Names {
			paramName := name.Name
			if paramName == "_" {
				paramName = fmt.Sprintf("arg%d", len(params)+1)
			}

			params = append(params, ParameterDescriptor{Name: paramName, Type: paramType, Variadic: variadic})
		}
	}

	return params
}

// unexported constants.
const (
	constructorPrefix = "New"
	mainPackage       = "main"
)

// unexported types.
type concreteType struct {
	name     string
	isStruct bool
}

// concreteTypes returns the exported, non-generic, non-interface, non-alias types in declaration
// order.
func concreteTypes(files []*dst.File) []concreteType {
	var types []concreteType

	for _, file := range files {
		for _, decl := range file.Decls {
			genDecl, ok := decl.(*dst.GenDecl)
			if !ok {
				continue
			}

			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*dst.TypeSpec)
				if !ok || !isConcrete(typeSpec) {
					continue
				}

				_, isStruct := typeSpec.Type.(*dst.StructType)
				types = append(types, concreteType{name: typeSpec.Name.Name, isStruct: isStruct})
			}
		}
	}

	return types
}

// declaredMethods maps receiver type names to their exported methods, in declaration order.
// Methods promoted from embedded fields are not declared on the type and are not included.
func declaredMethods(files []*dst.File) map[string][]MethodDescriptor {
	methods := make(map[string][]MethodDescriptor)

	for _, file := range files {
		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*dst.FuncDecl)
			if !ok || funcDecl.Recv == nil || len(funcDecl.Recv.List) == 0 {
				continue
			}

			if !astutil.IsExportedIdent(funcDecl.Name.Name) {
				continue
			}

			recvName := receiverTypeName(funcDecl.Recv.List[0].Type)
			methods[recvName] = append(methods[recvName], MethodDescriptor{
				Name:    funcDecl.Name.Name,
				Params:  Parameters(funcDecl.Type.Params),
				Results: countFields(funcDecl.Type.Results),
			})
		}
	}

	return methods
}

// primaryConstructors maps type names to their constructor with the most parameters. On a tie
// the first constructor in declaration order wins.
func primaryConstructors(files []*dst.File) map[string]*ConstructorDescriptor {
	constructors := make(map[string]*ConstructorDescriptor)

	for _, file := range files {
		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*dst.FuncDecl)
			if !ok || !isConstructor(funcDecl) {
				continue
			}

			typeName := receiverTypeName(funcDecl.Type.Results.List[0].Type)
			params := Parameters(funcDecl.Type.Params)

			current, exists := constructors[typeName]
			if exists && len(current.Params) >= len(params) {
				continue
			}

			constructors[typeName] = &ConstructorDescriptor{
				Name:    funcDecl.Name.Name,
				Params:  params,
				Results: countFields(funcDecl.Type.Results),
			}
		}
	}

	return constructors
}

func countFields(fields *dst.FieldList) int {
	if fields == nil {
		return 0
	}

	count := 0

	for _, field := range fields.List {
		if len(field.Names) == 0 {
			count++
			continue
		}

		count += len(field.Names)
	}

	return count
}

func isConcrete(typeSpec *dst.TypeSpec) bool {
	if typeSpec.Assign || !astutil.IsExportedIdent(typeSpec.Name.Name) {
		return false
	}

	if typeSpec.TypeParams != nil && len(typeSpec.TypeParams.List) > 0 {
		return false
	}

	_, isInterface := typeSpec.Type.(*dst.InterfaceType)

	return !isInterface
}

// isConstructor reports whether funcDecl is an exported, non-generic New... function whose first
// result is a named local type or a pointer to one.
func isConstructor(funcDecl *dst.FuncDecl) bool {
	if funcDecl.Recv != nil || !strings.HasPrefix(funcDecl.Name.Name, constructorPrefix) {
		return false
	}

	if funcDecl.Type.TypeParams != nil && len(funcDecl.Type.TypeParams.List) > 0 {
		return false
	}

	results := funcDecl.Type.Results
	if results == nil || len(results.List) == 0 {
		return false
	}

	return receiverTypeName(results.List[0].Type) != ""
}

// receiverTypeName returns the local type name of T, *T, T[P] or *T[P]; "" for anything else.
func receiverTypeName(expr dst.Expr) string {
	switch typedExpr := expr.(type) {
	case *dst.StarExpr:
		return receiverTypeName(typedExpr.X)
	case *dst.Ident:
		return typedExpr.Name
	case *dst.IndexExpr:
		return receiverTypeName(typedExpr.X)
	case *dst.IndexListExpr:
		return receiverTypeName(typedExpr.X)
	case *dst.ParenExpr:
		return receiverTypeName(typedExpr.X)
	default:
		return ""
	}
}
