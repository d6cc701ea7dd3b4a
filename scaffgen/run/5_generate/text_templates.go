package generate

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// TemplateRegistry holds the parsed templates for one generation run: the fixed test file
// templates and the mock templates supplied by a MockConfig.
type TemplateRegistry struct {
	headerTmpl *template.Template
	holderTmpl *template.Template
	testTmpl   *template.Template
	// Mock templates
	mockFieldTmpl     *template.Template
	mockConstructTmpl *template.Template
	mockValueTmpl     *template.Template
	mockGenerateTmpl  *template.Template
	mockImport        string
	mockSetup         string
}

// NewTemplateRegistry parses the test file templates and the mock templates of mock. The mock
// templates are user supplied, so they are also executed once against sample data: a template
// that would fail during generation fails here, before any file is written.
func NewTemplateRegistry(mock MockConfig) (*TemplateRegistry, error) {
	registry := &TemplateRegistry{
		headerTmpl: parseTemplate("header", headerTemplate),
		holderTmpl: parseTemplate("holder", holderTemplate),
		testTmpl:   parseTemplate("test", testTemplate),
		mockImport: mock.Import,
		mockSetup:  mock.Setup,
	}

	mockTemplates := []struct {
		name    string
		content string
		target  **template.Template
	}{
		{"field", mock.Field, &registry.mockFieldTmpl},
		{"construct", mock.Construct, &registry.mockConstructTmpl},
		{"value", mock.Value, &registry.mockValueTmpl},
		{"generate", mock.Generate, &registry.mockGenerateTmpl},
	}

	for _, mockTemplate := range mockTemplates {
		if strings.TrimSpace(mockTemplate.content) == "" {
			if mockTemplate.name == "generate" {
				continue
			}

			return nil, fmt.Errorf("%w: %s", errEmptyMockTemplate, mockTemplate.name)
		}

		tmpl, err := template.New(mockTemplate.name).Option("missingkey=error").Parse(mockTemplate.content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mock %s template: %w", mockTemplate.name, err)
		}

		err = tmpl.Execute(&bytes.Buffer{}, sampleMockData)
		if err != nil {
			return nil, fmt.Errorf("failed to execute mock %s template: %w", mockTemplate.name, err)
		}

		*mockTemplate.target = tmpl
	}

	return registry, nil
}

// WriteHeader writes the package clause, imports and go:generate directives.
func (r *TemplateRegistry) WriteHeader(buf *bytes.Buffer, data fileData) {
	err := r.headerTmpl.Execute(buf, data)
	if err != nil {
		panic(fmt.Sprintf("failed to execute header template: %v", err))
	}
}

// WriteHolder writes the mock holder type and its setup function.
func (r *TemplateRegistry) WriteHolder(buf *bytes.Buffer, data fileData) {
	err := r.holderTmpl.Execute(buf, data)
	if err != nil {
		panic(fmt.Sprintf("failed to execute holder template: %v", err))
	}
}

// WriteTest writes one test function.
func (r *TemplateRegistry) WriteTest(buf *bytes.Buffer, data testData) {
	err := r.testTmpl.Execute(buf, data)
	if err != nil {
		panic(fmt.Sprintf("failed to execute test template: %v", err))
	}
}

// unexported constants.
const (
	headerTemplate = `package {{.Package}}

import (
	"testing"
{{- if .MockImport}}

	"{{.MockImport}}"
{{- end}}

	{{.PkgName}} "{{.PkgPath}}"
){{if .Generate}}
{{range .Generate}}
//go:generate {{.}}{{end}}{{end}}
`
	holderTemplate = `
// {{.Holder}} holds the mocked constructor dependencies of {{.Qualified}}.
type {{.Holder}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}}
{{- end}}
}

func new{{.Holder}}(t *testing.T) *{{.Holder}} {
{{- if .Fields}}
{{- if .MockSetup}}
	{{.MockSetup}}
{{end}}
	return &{{.Holder}}{
{{- range .Fields}}
		{{.Name}}: {{.Construct}},
{{- end}}
	}
{{- else}}
	return &{{.Holder}}{}
{{- end}}
}
`
	testTemplate = `
func Test{{.TypeName}}_{{.MethodName}}(t *testing.T) {
{{- if .UsesHolder}}
	tests := new{{.Holder}}(t)
{{end}}
	{{.Instance}} := {{.Instantiate}}
	{{if .Result}}{{.Result}} := {{end}}instance.{{.MethodName}}({{.Args}})
	// Assert here
{{- if .Result}}
	_ = result
{{- end}}
}
`
)

// unexported variables.
var (
	errEmptyMockTemplate = errors.New("mock template must not be empty")
	//nolint:gochecknoglobals // Fixed sample used to validate user templates
	sampleMockData = mockData{
		Name:      "Logger",
		Qualified: "*widget.Logger",
		Target:    "widget.Logger",
		Field:     "tests._loggerMock",
	}
)

// unexported types.

// fieldData is one mock holder field.
type fieldData struct {
	Name      string
	Type      string
	Construct string
}

// fileData is the data for the header and holder templates.
type fileData struct {
	Package    string
	MockImport string
	PkgName    string
	PkgPath    string
	Generate   []string
	Holder     string
	Qualified  string
	Fields     []fieldData
	MockSetup  string
}

// testData is the data for one test function.
type testData struct {
	TypeName    string
	MethodName  string
	Holder      string
	UsesHolder  bool
	Instance    string
	Instantiate string
	Result      string
	Args        string
}

// parseTemplate parses one of the fixed templates. They are constants, so parsing cannot fail at
// runtime.
func parseTemplate(name, content string) *template.Template {
	return template.Must(template.New(name).Parse(content))
}

// renderMock executes a validated mock template.
func renderMock(tmpl *template.Template, data mockData) string {
	var buf bytes.Buffer

	err := tmpl.Execute(&buf, data)
	if err != nil {
		panic(fmt.Sprintf("failed to execute mock %s template: %v", tmpl.Name(), err))
	}

	return buf.String()
}
