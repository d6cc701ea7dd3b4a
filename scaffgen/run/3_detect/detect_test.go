package detect_test

import (
	"errors"
	"go/token"
	"testing"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	. "github.com/onsi/gomega" //nolint:revive // Dot import intentional for Gomega matcher DSL

	astutil "github.com/toejough/scaffgen/scaffgen/run/0_util"
	load "github.com/toejough/scaffgen/scaffgen/run/2_load"
	detect "github.com/toejough/scaffgen/scaffgen/run/3_detect"
)

func TestDiscoverPackage_FiltersCandidates(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	pkg := packageFromSource(t, "shapes", `package shapes

type Shape interface {
	Area() float64
}

type Square struct {
	side int
}

func (s *Square) Area() float64 { return float64(s.side * s.side) }

func (s *Square) scale(n int) {}

type hidden struct{}

func (h hidden) Visible() {}

type Point = Square

type Box[T any] struct{ v T }

func (b *Box[T]) Get() T { return b.v }

type Base struct{}

func (Base) Name() string { return "base" }

type Derived struct {
	Base
}

type Quiet struct{}

func (Quiet) private() {}
`)

	catalog := detect.DiscoverPackage(pkg)

	g.Expect(typeNames(catalog)).To(Equal([]string{"Square", "Base"}))
	g.Expect(catalog[0].PkgName).To(Equal("shapes"))
	g.Expect(catalog[0].PkgPath).To(Equal("example.com/shapes"))
	g.Expect(methodNames(catalog[0])).To(Equal([]string{"Area"}))
}

func TestDiscoverPackage_MethodsKeepDeclarationOrderAcrossFiles(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	pkg := packageFromSource(t, "widget",
		`package widget

type Widget struct{}

func (w *Widget) Zeta() {}

func (w *Widget) Alpha() {}
`,
		`package widget

func (w Widget) Middle() {}
`)

	catalog := detect.DiscoverPackage(pkg)

	g.Expect(catalog).To(HaveLen(1))
	g.Expect(methodNames(catalog[0])).To(Equal([]string{"Zeta", "Alpha", "Middle"}))
}

func TestDiscoverPackage_PrimaryConstructorHasMostParams(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	pkg := packageFromSource(t, "widget", `package widget

type Logger interface{ Log(string) }

type Widget struct{}

func NewWidget() *Widget { return &Widget{} }

func NewWidgetWithLogger(logger Logger, name string) (*Widget, error) { return &Widget{}, nil }

func NewWidgetWithOther(a, b int) *Widget { return &Widget{} }

func NewGeneric[T any](v T) *Widget { return &Widget{} }

func Make(a, b, c int) *Widget { return &Widget{} }

func (w *Widget) Compute(n int) int { return n }
`)

	catalog := detect.DiscoverPackage(pkg)

	g.Expect(catalog).To(HaveLen(1))

	ctor := catalog[0].Constructor
	g.Expect(ctor).NotTo(BeNil())
	g.Expect(ctor.Name).To(Equal("NewWidgetWithLogger"))
	g.Expect(ctor.Results).To(Equal(2))
	g.Expect(ctor.Params).To(HaveLen(2))
	g.Expect(ctor.Params[0].Name).To(Equal("logger"))
	g.Expect(astutil.TypeString(ctor.Params[0].Type, "")).To(Equal("Logger"))
	g.Expect(ctor.Params[1].Name).To(Equal("name"))
}

func TestDiscoverPackage_NoConstructor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	pkg := packageFromSource(t, "widget", `package widget

type Widget struct{}

func NewOther() *Other { return nil }

type Other struct{}

func (w Widget) Run() {}
`)

	catalog := detect.DiscoverPackage(pkg)

	g.Expect(catalog).To(HaveLen(1))
	g.Expect(catalog[0].Constructor).To(BeNil())
}

func TestDiscoverPackage_RecordsStructKind(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	pkg := packageFromSource(t, "temp", `package temp

type Celsius float64

func (c Celsius) Fahrenheit() float64 { return float64(c)*9/5 + 32 }

type Gauge struct{}

func (g *Gauge) Read() Celsius { return 0 }
`)

	catalog := detect.DiscoverPackage(pkg)

	g.Expect(typeNames(catalog)).To(Equal([]string{"Celsius", "Gauge"}))
	g.Expect(catalog[0].IsStruct).To(BeFalse())
	g.Expect(catalog[1].IsStruct).To(BeTrue())
}

func TestDiscover_UnreadablePackageIsFatal(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	good := packageFromSource(t, "widget", "package widget\n\ntype W struct{}\n\nfunc (W) Run() {}\n")
	broken := load.Package{Name: "broken", PkgPath: "example.com/broken", Err: errors.New("boom")}

	_, err := detect.Discover([]load.Package{good, broken})

	g.Expect(err).To(MatchError(detect.ErrPackageUnreadable))
	g.Expect(err.Error()).To(ContainSubstring("example.com/broken"))
}

func TestDiscover_SkipsMainPackages(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	command := packageFromSource(t, "main", "package main\n\ntype Server struct{}\n\nfunc (s *Server) Serve() {}\n\nfunc main() {}\n")
	library := packageFromSource(t, "widget", "package widget\n\ntype W struct{}\n\nfunc (W) Run() {}\n")

	catalog, err := detect.Discover([]load.Package{command, library})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(typeNames(catalog)).To(Equal([]string{"W"}))
	g.Expect(detect.IsImportable(command)).To(BeFalse())
	g.Expect(detect.IsImportable(library)).To(BeTrue())
}

func TestDiscover_ConcatenatesPackagesInOrder(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	first := packageFromSource(t, "alpha", "package alpha\n\ntype A struct{}\n\nfunc (A) Run() {}\n")
	second := packageFromSource(t, "beta", "package beta\n\ntype B struct{}\n\nfunc (B) Run() {}\n")

	catalog, err := detect.Discover([]load.Package{first, second})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(typeNames(catalog)).To(Equal([]string{"A", "B"}))
}

func TestParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		signature    string
		wantNames    []string
		wantTypes    []string
		wantVariadic []bool
	}{
		{
			name:         "grouped names expand",
			signature:    "func(a, b int, c string)",
			wantNames:    []string{"a", "b", "c"},
			wantTypes:    []string{"int", "int", "string"},
			wantVariadic: []bool{false, false, false},
		},
		{
			name:         "unnamed parameters are numbered",
			signature:    "func(int, string)",
			wantNames:    []string{"arg1", "arg2"},
			wantTypes:    []string{"int", "string"},
			wantVariadic: []bool{false, false},
		},
		{
			name:         "blank identifier is numbered by position",
			signature:    "func(x int, _ bool)",
			wantNames:    []string{"x", "arg2"},
			wantTypes:    []string{"int", "bool"},
			wantVariadic: []bool{false, false},
		},
		{
			name:         "variadic uses element type",
			signature:    "func(prefix string, opts ...Option)",
			wantNames:    []string{"prefix", "opts"},
			wantTypes:    []string{"string", "Option"},
			wantVariadic: []bool{false, true},
		},
		{
			name:      "no parameters",
			signature: "func()",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			funcType := parseFuncType(t, testCase.signature)
			params := detect.Parameters(funcType.Params)

			g.Expect(params).To(HaveLen(len(testCase.wantNames)))

			for i, param := range params {
				g.Expect(param.Name).To(Equal(testCase.wantNames[i]))
				g.Expect(astutil.TypeString(param.Type, "")).To(Equal(testCase.wantTypes[i]))
				g.Expect(param.Variadic).To(Equal(testCase.wantVariadic[i]))
			}
		})
	}
}

func TestParameters_Nil(t *testing.T) {
	t.Parallel()

	if params := detect.Parameters(nil); params != nil {
		t.Errorf("Parameters(nil) = %v, want nil", params)
	}
}

func methodNames(typeDesc detect.TypeDescriptor) []string {
	names := make([]string, len(typeDesc.Methods))
	for i, method := range typeDesc.Methods {
		names[i] = method.Name
	}

	return names
}

func packageFromSource(t *testing.T, name string, sources ...string) load.Package {
	t.Helper()

	fset := token.NewFileSet()
	dec := decorator.NewDecorator(fset)
	pkg := load.Package{Name: name, PkgPath: "example.com/" + name, Fset: fset}

	for _, src := range sources {
		file, err := dec.Parse(src)
		if err != nil {
			t.Fatalf("failed to parse source: %v", err)
		}

		pkg.Files = append(pkg.Files, file)
	}

	return pkg
}

func parseFuncType(t *testing.T, signature string) *dst.FuncType {
	t.Helper()

	file, err := decorator.Parse("package p\n\nvar f " + signature + "\n")
	if err != nil {
		t.Fatalf("failed to parse signature %q: %v", signature, err)
	}

	genDecl, ok := file.Decls[0].(*dst.GenDecl)
	if !ok {
		t.Fatalf("expected GenDecl for %q", signature)
	}

	valueSpec, ok := genDecl.Specs[0].(*dst.ValueSpec)
	if !ok {
		t.Fatalf("expected ValueSpec for %q", signature)
	}

	funcType, ok := valueSpec.Type.(*dst.FuncType)
	if !ok {
		t.Fatalf("expected FuncType for %q", signature)
	}

	return funcType
}

func typeNames(catalog detect.Catalog) []string {
	names := make([]string, len(catalog))
	for i, typeDesc := range catalog {
		names[i] = typeDesc.Name
	}

	return names
}
