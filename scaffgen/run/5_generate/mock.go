package generate

// MockConfig describes how generated tests build mocks for constructor dependencies. Each
// template is a text/template executed with the fields of mockData:
//
//	.Name      mock base name ("Logger" for *log.Logger)
//	.Qualified parameter type as spelled from the generated package ("*widget.Store")
//	.Target    Qualified without leading pointer stars ("widget.Store")
//	.Field     holder field expression ("tests._loggerMock"), only set for Value
type MockConfig struct {
	// Import is the mock framework import path; empty for frameworks generated in place.
	Import string `toml:"import"`
	// Setup is a statement run once at the top of the setup function, before any mock is built.
	Setup string `toml:"setup"`
	// Field is the declared type of a mock holder field.
	Field string `toml:"field"`
	// Construct builds one mock inside the setup function.
	Construct string `toml:"construct"`
	// Value turns a mock field into the constructor argument.
	Value string `toml:"value"`
	// Generate, when set, is emitted as a //go:generate directive once per mocked type.
	Generate string `toml:"generate"`
}

// DefaultMockConfig targets imptest mocks generated with "impgen --dependency".
func DefaultMockConfig() MockConfig {
	return MockConfig{
		Import:    "github.com/toejough/imptest/imptest",
		Setup:     "imp := imptest.NewImp(t)",
		Field:     "*{{.Name}}Mock",
		Construct: "Mock{{.Name}}(imp)",
		Value:     "{{.Field}}.Interface()",
		Generate:  "impgen --dependency {{.Target}}",
	}
}

// unexported types.

// mockData is the data every mock template is executed with.
type mockData struct {
	Name      string
	Qualified string
	Target    string
	Field     string
}
