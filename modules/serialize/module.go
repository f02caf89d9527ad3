// Package serialize provides the built-in artifact serializers. Each one
// encodes its "contents" input and hands the bytes to the artifact writer
// under the optional "filename" input, defaulting to the artifact name plus
// the format's extension.
package serialize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/taskgraph/internal/registry"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

var extensions = map[string]string{
	FormatJSON: ".json",
	FormatYAML: ".yaml",
	FormatText: ".txt",
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers serialize.json, serialize.yaml and serialize.text.
func (m *Module) Register(h *registry.Handlers) {
	for _, format := range []string{FormatJSON, FormatYAML, FormatText} {
		h.RegisterSerializer("serialize."+format, Serializer(format))
	}
}

// Serializer returns the serialize callable for format.
func Serializer(format string) registry.SerializeFunc {
	return func(ctx context.Context, w registry.ArtifactWriter, name string, inputs map[string]any) (string, error) {
		filename, err := Filename(name, format, inputs)
		if err != nil {
			return "", err
		}
		data, err := Encode(format, inputs["contents"])
		if err != nil {
			return "", err
		}
		return w.Write(ctx, filename, data)
	}
}

// Filename returns the "filename" input, or name with the format's extension.
func Filename(name, format string, inputs map[string]any) (string, error) {
	v, ok := inputs["filename"]
	if !ok || v == nil {
		return name + extensions[format], nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("input 'filename' must be a non-empty string, got %T", v)
	}
	return s, nil
}

// Encode renders v in the given format.
func Encode(format string, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return buf.Bytes(), nil

	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		return data, nil

	case FormatText:
		var s string
		switch x := v.(type) {
		case nil:
		case string:
			s = x
		case []byte:
			s = string(x)
		default:
			s = fmt.Sprint(x)
		}
		if s != "" && s[len(s)-1] != '\n' {
			s += "\n"
		}
		return []byte(s), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}
