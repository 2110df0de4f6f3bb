package lexdef

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadYAML decodes a definition from YAML. Unknown fields are rejected.
func LoadYAML(data []byte) (*Definition, error) {
	var def Definition

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CompileError{Field: "definition", Message: "empty document"}
		}
		return nil, fmt.Errorf("decode definition: %w", err)
	}

	if def.States == nil {
		return nil, &CompileError{Field: "states", Message: "states is required"}
	}
	return &def, nil
}

// LoadFile reads a definition, choosing the decoder by extension:
// .cue for CUE, .yaml or .yml for YAML.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	var def *Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		def, err = LoadCUE(data, path)
	case ".yaml", ".yml":
		def, err = LoadYAML(data)
	default:
		return nil, fmt.Errorf("unsupported definition format %q (want .cue, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, err
	}

	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return def, nil
}
