package envutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFileType is returned when the file extension is not recognized.
var ErrUnknownFileType = errors.New("env file doesn't have a known file suffix")

// LoadEnvFile loads environment variables from a file and returns them as a map.
// The format follows the file extension:
//   - .env files hold KEY=VALUE lines (parsed by godotenv)
//   - .json files hold {"env": {"KEY": "VALUE"}}
//   - .yml/.yaml files hold a top-level env mapping
func LoadEnvFile(path string) (map[string]string, error) {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, ".env"):
		return godotenv.Read(path)
	case strings.HasSuffix(name, ".json"):
		return loadStructuredFile(path, json.Unmarshal)
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return loadStructuredFile(path, yaml.Unmarshal)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileType, name)
	}
}

// LoadEnvFiles loads every file in order. Later files win on conflicting keys.
func LoadEnvFiles(paths ...string) (map[string]string, error) {
	out := make(map[string]string)

	for _, path := range paths {
		vars, err := LoadEnvFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}

		for k, v := range vars {
			out[k] = v
		}
	}

	return out, nil
}

// Apply copies vars into the process environment. Existing variables are
// only replaced when override is true. It returns the keys that were set.
func Apply(vars map[string]string, override bool) ([]string, error) {
	var set []string

	for k, v := range vars {
		if _, exists := os.LookupEnv(k); exists && !override {
			continue
		}

		if err := os.Setenv(k, v); err != nil {
			return set, fmt.Errorf("setting %s: %w", k, err)
		}

		set = append(set, k)
	}

	return set, nil
}

// structuredEnvFile is the shape shared by JSON and YAML env files.
type structuredEnvFile struct {
	Env map[string]string `json:"env" yaml:"env"`
}

func loadStructuredFile(path string, unmarshal func([]byte, any) error) (map[string]string, error) {
	bts, err := os.ReadFile(path) // #nosec G304 -- path is the intended file to load
	if err != nil {
		return nil, err
	}

	var out structuredEnvFile

	if err := unmarshal(bts, &out); err != nil {
		return nil, err
	}

	return out.Env, nil
}
