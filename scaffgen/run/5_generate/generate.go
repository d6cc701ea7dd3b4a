// Package generate renders test scaffolding for discovered types.
package generate

import (
	"bytes"
	"go/format"
	"strings"

	"github.com/elliotchance/orderedmap/v2"

	astutil "github.com/toejough/scaffgen/scaffgen/run/0_util"
	detect "github.com/toejough/scaffgen/scaffgen/run/3_detect"
)

// Exported constants.
const (
	// HolderSuffix is appended to a type name to name its test holder type and file.
	HolderSuffix = "Tests"
)

// Code is the result of generating scaffolding for one type.
type Code struct {
	// Holder is the holder type name, <TypeName>Tests.
	Holder string
	Source string
	// Formatted is false when gofmt rejected the rendered text; Source is then the raw rendering.
	Formatted bool
}

// GenerateTestForType renders the test file for one type into package testPkg. The primary
// constructor resolved during discovery is used both for the mock holder and for every test body,
// so the two always agree on the mock fields.
func GenerateTestForType(registry *TemplateRegistry, testPkg string, typeDesc detect.TypeDescriptor) Code {
	holder := typeDesc.Name + HolderSuffix
	fields := mockFields(registry, typeDesc)

	file := fileData{
		Package:   testPkg,
		PkgName:   typeDesc.PkgName,
		PkgPath:   typeDesc.PkgPath,
		Holder:    holder,
		Qualified: typeDesc.PkgName + "." + typeDesc.Name,
	}

	if len(fields) > 0 {
		file.MockImport = registry.mockImport
		file.MockSetup = registry.mockSetup
		file.Generate = generateDirectives(registry, fields)
	}

	for _, field := range fields {
		file.Fields = append(file.Fields, field.fieldData)
	}

	var buf bytes.Buffer

	registry.WriteHeader(&buf, file)

	if typeDesc.Constructor != nil {
		registry.WriteHolder(&buf, file)
	}

	instantiate, instance := instantiation(registry, typeDesc, fields)

	for _, method := range typeDesc.Methods {
		registry.WriteTest(&buf, testData{
			TypeName:    typeDesc.Name,
			MethodName:  method.Name,
			Holder:      holder,
			UsesHolder:  len(fields) > 0,
			Instance:    instance,
			Instantiate: instantiate,
			Result:      resultNames(method.Results),
			Args:        defaultArgs(method.Params),
		})
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return Code{Holder: holder, Source: buf.String()}
	}

	return Code{Holder: holder, Source: string(formatted), Formatted: true}
}

// MockFieldName returns the holder field name for a constructor parameter.
func MockFieldName(paramName string) string {
	return "_" + paramName + "Mock"
}

// unexported constants.
const (
	instanceName = "instance"
	resultName   = "result"
	holderVar    = "tests"
)

// unexported types.

// mockField is a holder field together with the data its templates were rendered from.
type mockField struct {
	fieldData

	mock mockData
}

func defaultArgs(params []detect.ParameterDescriptor) string {
	args := make([]string, len(params))
	for i, param := range params {
		args[i] = DefaultValue(param.Type)
	}

	return strings.Join(args, ", ")
}

// discardList returns name followed by one blank identifier per extra value: "name, _, _".
func discardList(name string, count int) string {
	parts := []string{name}
	for range count - 1 {
		parts = append(parts, "_")
	}

	return strings.Join(parts, ", ")
}

// generateDirectives renders one go:generate directive per distinct mocked type.
func generateDirectives(registry *TemplateRegistry, fields []mockField) []string {
	if registry.mockGenerateTmpl == nil {
		return nil
	}

	seen := make(map[string]bool)

	var directives []string

	for _, field := range fields {
		directive := renderMock(registry.mockGenerateTmpl, field.mock)
		if seen[directive] {
			continue
		}

		seen[directive] = true
		directives = append(directives, directive)
	}

	return directives
}

// instantiation returns the expression that builds the type under test and the variable list it
// is assigned to. Without a constructor the zero value is built in place.
func instantiation(
	registry *TemplateRegistry, typeDesc detect.TypeDescriptor, fields []mockField,
) (expr string, instance string) {
	qualified := typeDesc.PkgName + "." + typeDesc.Name

	ctor := typeDesc.Constructor
	if ctor == nil {
		if typeDesc.IsStruct {
			return "&" + qualified + "{}", instanceName
		}

		return "new(" + qualified + ")", instanceName
	}

	byName := make(map[string]mockField, len(fields))
	for _, field := range fields {
		byName[field.Name] = field
	}

	args := make([]string, len(ctor.Params))

	for i, param := range ctor.Params {
		field := byName[MockFieldName(param.Name)]
		data := field.mock
		data.Field = holderVar + "." + field.Name
		args[i] = renderMock(registry.mockValueTmpl, data)
	}

	expr = typeDesc.PkgName + "." + ctor.Name + "(" + strings.Join(args, ", ") + ")"

	return expr, discardList(instanceName, ctor.Results)
}

// mockFields returns one holder field per constructor parameter, in parameter order. Parameters
// sharing a name collapse into a single field that keeps the first position and the last type.
func mockFields(registry *TemplateRegistry, typeDesc detect.TypeDescriptor) []mockField {
	if typeDesc.Constructor == nil {
		return nil
	}

	ordered := orderedmap.NewOrderedMap[string, mockField]()

	for _, param := range typeDesc.Constructor.Params {
		data := newMockData(param, typeDesc.PkgName)
		name := MockFieldName(param.Name)

		ordered.Set(name, mockField{
			fieldData: fieldData{
				Name:      name,
				Type:      renderMock(registry.mockFieldTmpl, data),
				Construct: renderMock(registry.mockConstructTmpl, data),
			},
			mock: data,
		})
	}

	fields := make([]mockField, 0, ordered.Len())
	for el := ordered.Front(); el != nil; el = el.Next() {
		fields = append(fields, el.Value)
	}

	return fields
}

func newMockData(param detect.ParameterDescriptor, pkgName string) mockData {
	qualified := astutil.TypeString(param.Type, pkgName)

	return mockData{
		Name:      astutil.BaseTypeName(param.Type),
		Qualified: qualified,
		Target:    strings.TrimLeft(qualified, "*"),
	}
}

func resultNames(count int) string {
	if count == 0 {
		return ""
	}

	return discardList(resultName, count)
}
