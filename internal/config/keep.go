package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeepConfig lists stdlib modules the reducer must never remove, optionally
// scoped per platform:
//
//	{
//	  "all": ["ssl", "sqlite3"],
//	  "darwin": ["plistlib"],
//	  "linux": {"all": ["spwd"], "aarch64": ["ctypes"]}
//	}
//
// The "all" key applies on every platform. An OS value can be an array
// (applies to all arches) or an object with keys "all" (array) and arch keys
// such as "x64" or "aarch64". A trailing "*" matches a module prefix:
// "email*" keeps email and all of its submodules.
type KeepConfig map[string]any

// LoadKeepConfig loads a keep configuration file if provided.
// Returns an empty config if filePath is empty.
func LoadKeepConfig(filePath string) (KeepConfig, error) {
	if filePath == "" {
		return KeepConfig{}, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keep file %s: %w", filePath, err)
	}
	var raw map[string]any
	switch ext := filepath.Ext(filePath); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML keep file %s: %w", filePath, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON keep file %s: %w", filePath, err)
		}
	}
	return KeepConfig(raw), nil
}

// MustKeep returns true if a module is protected from removal on the given
// OS/arch.
func (kc KeepConfig) MustKeep(module, osName, arch string) bool {
	if global, ok := kc["all"]; ok {
		if arr, ok := global.([]any); ok && matchModules(arr, module) {
			return true
		}
	}

	osVal, ok := kc[osName]
	if !ok {
		return false
	}

	switch osRules := osVal.(type) {
	case []any:
		return matchModules(osRules, module)
	case map[string]any:
		// OS-wide patterns
		if all, ok := osRules["all"]; ok {
			if arr, ok := all.([]any); ok && matchModules(arr, module) {
				return true
			}
		}
		// Arch-specific patterns
		if archArr, ok := osRules[arch]; ok {
			if arr, ok := archArr.([]any); ok && matchModules(arr, module) {
				return true
			}
		}
	}

	return false
}

func matchModules(patterns []any, module string) bool {
	for _, p := range patterns {
		s, ok := p.(string)
		if !ok || s == "" {
			continue
		}
		if s == module {
			return true
		}
		if strings.HasSuffix(s, "*") && strings.HasPrefix(module, strings.TrimSuffix(s, "*")) {
			return true
		}
	}
	return false
}
