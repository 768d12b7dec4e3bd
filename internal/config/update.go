package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
)

// settableKeys lists the keys `config set` may change.
var settableKeys = map[string]valueKind{
	"lang":                         kindString,
	"paths.bin_dir":                kindString,
	"paths.download_dir":           kindString,
	"paths.log_dir":                kindString,
	"paths.state_dir":              kindString,
	"download.engine":              kindString,
	"download.threads":             kindInt,
	"download.cookie_source":       kindString,
	"download.cookie_file":         kindString,
	"download.retries":             kindInt,
	"download.merge_output_format": kindString,
	"download.format":              kindString,
	"download.aria2_min_split":     kindString,
	"download.check_output":        kindBool,
	"installer.region":             kindString,
	"installer.mirror_prefix":      kindString,
	"installer.timeout_seconds":    kindInt,
	"installer.retries":            kindInt,
	"installer.user_agent":         kindString,
	"logging.format":               kindString,
	"logging.level":                kindString,
	"logging.retention_days":       kindInt,
}

// SettableKeys returns the keys accepted by Set in sorted order.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for key := range settableKeys {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Set stores key = value in the config file at path and returns the
// configuration the updated file produces. The file is only replaced when
// the result loads and validates. Keys the file does not set stay unset, so
// defaults and environment fallbacks keep applying to them. Comments in an
// existing file are not preserved.
func Set(path, key, value string) (*Config, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	kind, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(SettableKeys(), ", "))
	}
	typed, err := convertValue(kind, strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	raw := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	setNested(raw, strings.Split(key, "."), typed)
	updated, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	cfg, err := parse(updated)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if err := writeFileAtomic(path, updated, 0o644); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convertValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", value)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("expected true or false, got %q", value)
		}
		return b, nil
	default:
		return value, nil
	}
}

func setNested(table map[string]any, parts []string, value any) {
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			table[part] = next
		}
		table = next
	}
	table[parts[len(parts)-1]] = value
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
