package run

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	generate "github.com/toejough/scaffgen/scaffgen/run/5_generate"
)

// unexported variables.
var (
	errUnknownConfigKey = errors.New("unknown config key")
)

// unexported types.

// fileConfig is the layout of the --config TOML file.
type fileConfig struct {
	Mock generate.MockConfig `toml:"mock"`
}

// loadMockConfig returns the default mock templates overlaid with the keys set in the TOML file at
// path. An empty path means no file.
func loadMockConfig(path string, fileSys FileSystem) (generate.MockConfig, error) {
	cfg := fileConfig{Mock: generate.DefaultMockConfig()}
	if path == "" {
		return cfg.Mock, nil
	}

	data, err := fileSys.ReadFile(path)
	if err != nil {
		return generate.MockConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return generate.MockConfig{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	undecoded := meta.Undecoded()
	if len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		return generate.MockConfig{}, fmt.Errorf(
			"%w in %s: %s", errUnknownConfigKey, path, strings.Join(keys, ", "),
		)
	}

	return cfg.Mock, nil
}
