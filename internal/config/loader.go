package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads path (YAML or TOML by extension; empty means defaults only),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		var err error
		raw, err = readFile(path)
		if err != nil {
			return nil, err
		}
	}
	overlayEnv(raw, lookup)

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return raw, nil
}

func decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// EnvVars lists every supported override, e.g. GUICHE_SESSION_BACKEND.
func EnvVars() []string {
	var names []string
	walkLeaves(reflect.TypeOf(Config{}), nil, func(path []string) {
		names = append(names, envName(path))
	})
	return names
}

func overlayEnv(raw map[string]any, lookup func(string) (string, bool)) {
	walkLeaves(reflect.TypeOf(Config{}), nil, func(path []string) {
		v, ok := lookup(envName(path))
		if !ok {
			return
		}
		setPath(raw, path, v)
	})
}

func envName(path []string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.Join(path, "_"))
}

var durationType = reflect.TypeOf(time.Duration(0))

// walkLeaves visits scalar fields and string slices. Slices of structs are
// file-only.
func walkLeaves(t reflect.Type, prefix []string, visit func([]string)) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		path := append(append([]string{}, prefix...), tag)
		switch {
		case f.Type == durationType:
			visit(path)
		case f.Type.Kind() == reflect.Struct:
			walkLeaves(f.Type, path, visit)
		case f.Type.Kind() == reflect.Slice && f.Type.Elem().Kind() != reflect.String:
		default:
			visit(path)
		}
	}
}

func setPath(raw map[string]any, path []string, v string) {
	m := raw
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
}
