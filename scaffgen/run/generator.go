package run

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/toejough/scaffgen/internal/logging"
	detect "github.com/toejough/scaffgen/scaffgen/run/3_detect"
	generate "github.com/toejough/scaffgen/scaffgen/run/5_generate"
	output "github.com/toejough/scaffgen/scaffgen/run/6_output"
)

// TestScriptGenerator writes one test script per discovered type.
type TestScriptGenerator struct {
	registry    *generate.TemplateRegistry
	testPkg     string
	reorderCode bool
	fileWriter  output.Writer
	log         *zap.Logger
}

// NewTestScriptGenerator validates the mock templates and returns a generator emitting package
// testPkg through fileWriter.
func NewTestScriptGenerator(
	mock generate.MockConfig, testPkg string, reorderCode bool, fileWriter output.Writer, log *zap.Logger,
) (*TestScriptGenerator, error) {
	registry, err := generate.NewTemplateRegistry(mock)
	if err != nil {
		return nil, fmt.Errorf("invalid mock config: %w", err)
	}

	return &TestScriptGenerator{
		registry:    registry,
		testPkg:     testPkg,
		reorderCode: reorderCode,
		fileWriter:  fileWriter,
		log:         log,
	}, nil
}

// GenerateTestScripts writes <TypeName>Tests_test.go into outputDir for every type in catalog, in
// catalog order. Existing files are overwritten. The first write failure stops the run; files
// already written are left in place.
func (g *TestScriptGenerator) GenerateTestScripts(catalog detect.Catalog, outputDir string) error {
	for _, typeDesc := range catalog {
		log := logging.Type(logging.Package(g.log, typeDesc.PkgPath), typeDesc.Name)

		code := generate.GenerateTestForType(g.registry, g.testPkg, typeDesc)
		if !code.Formatted {
			log.Warn("generated code did not pass gofmt, writing it unformatted")
		}

		_, err := output.WriteTestFile(outputDir, code.Holder, code.Source, g.reorderCode, g.fileWriter, log)
		if err != nil {
			return err
		}

		log.Info("generated test script", zap.Int("tests", len(typeDesc.Methods)))
	}

	return nil
}
