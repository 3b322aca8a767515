// Package cfgfile reads the YAML/JSON side files of the harvester: the provider
// catalog and the publisher targets.
package cfgfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Read returns the file content with ${VAR} references expanded, plus its extension.
// what names the file in errors, e.g. "providers".
func Read(path, what string) ([]byte, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", fmt.Errorf("%s file path is empty", what)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s file: %w", what, err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read %s file: %w", what, err)
	}
	return []byte(os.ExpandEnv(string(raw))), filepath.Ext(path), nil
}

// Decode unmarshals data by extension. An empty extension is read as YAML,
// which also accepts JSON documents.
func Decode(data []byte, ext, what string, out any) error {
	var (
		name string
		fn   func([]byte, any) error
	)
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case "", ".yaml", ".yml":
		name, fn = "yaml", yaml.Unmarshal
	case ".json":
		name, fn = "json", json.Unmarshal
	default:
		return fmt.Errorf("%s file format %q not recognized (expected YAML or JSON)", what, ext)
	}

	if err := fn(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", name, what, err)
	}
	return nil
}

// Load reads and decodes path into out.
func Load(path, what string, out any) error {
	data, ext, err := Read(path, what)
	if err != nil {
		return err
	}
	return Decode(data, ext, what, out)
}

// Headers trims keys and values and drops empty entries. It returns nil when nothing is left.
func Headers(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ErrEmpty is returned by loaders whose file decodes but lists nothing.
var ErrEmpty = errors.New("file lists no entries")
