package localstorage

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Codec converts between values and their textual payload.
type Codec interface {
	Name() string
	Marshal(v any) (string, error)
	Unmarshal(data string, v any) error
}

// JSONCodec encodes values as JSON. It is the default.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec) Unmarshal(data string, v any) error {
	return json.Unmarshal([]byte(data), v)
}

// YAMLCodec encodes values as YAML.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Marshal(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (YAMLCodec) Unmarshal(data string, v any) error {
	return yaml.Unmarshal([]byte(data), v)
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSONCodec{}, true
	case "yaml", "yml":
		return YAMLCodec{}, true
	default:
		return nil, false
	}
}
