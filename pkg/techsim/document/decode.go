// Package document decodes cast and events documents into engine specs.
// Documents may be TOML, YAML or JSON; all three are normalized to JSON and
// checked against an embedded JSON Schema before the typed decode.
package document

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/freeeve/techsim/pkg/techsim"
)

// Format is a document encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
	JSON Format = "json"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "toml", "":
		return TOML, nil
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("unsupported document format %q", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

//go:embed schema/*.json
var schemaFS embed.FS

const schemaBase = "https://techsim.local/"

var (
	schemasOnce sync.Once
	castSchema  *jsonschema.Schema
	eventSchema *jsonschema.Schema
	schemasErr  error
)

func loadSchemas() error {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		for _, name := range []string{"cast.schema.json", "events.schema.json"} {
			data, err := schemaFS.ReadFile("schema/" + name)
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(schemaBase+name, bytes.NewReader(data)); err != nil {
				schemasErr = fmt.Errorf("add schema %s: %w", name, err)
				return
			}
		}
		if castSchema, schemasErr = c.Compile(schemaBase + "cast.schema.json"); schemasErr != nil {
			return
		}
		eventSchema, schemasErr = c.Compile(schemaBase + "events.schema.json")
	})
	return schemasErr
}

// DecodeCast decodes and validates a cast document.
func DecodeCast(data []byte, f Format) (techsim.CastSpec, error) {
	var spec techsim.CastSpec
	if err := loadSchemas(); err != nil {
		return spec, err
	}
	err := decode(data, f, castSchema, &spec)
	return spec, err
}

// DecodeEvents decodes and validates an events document.
func DecodeEvents(data []byte, f Format) (techsim.EventsSpec, error) {
	var spec techsim.EventsSpec
	if err := loadSchemas(); err != nil {
		return spec, err
	}
	err := decode(data, f, eventSchema, &spec)
	return spec, err
}

// Load decodes both documents and builds an unready simulation.
func Load(cast []byte, castFormat Format, events []byte, eventsFormat Format) (*techsim.Simulation, error) {
	cs, err := DecodeCast(cast, castFormat)
	if err != nil {
		return nil, fmt.Errorf("cast: %w", err)
	}
	es, err := DecodeEvents(events, eventsFormat)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return techsim.New(cs, es)
}

// LoadFiles reads both documents from disk, picking formats by extension.
func LoadFiles(castPath, eventsPath string) (*techsim.Simulation, error) {
	cast, castFormat, err := readFile(castPath)
	if err != nil {
		return nil, err
	}
	events, eventsFormat, err := readFile(eventsPath)
	if err != nil {
		return nil, err
	}
	return Load(cast, castFormat, events, eventsFormat)
}

func readFile(path string) ([]byte, Format, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, f, nil
}

// Normalize converts a document to canonical JSON.
func Normalize(data []byte, f Format) ([]byte, error) {
	var tree any
	switch f {
	case TOML:
		if _, err := toml.Decode(string(data), &tree); err != nil {
			return nil, &techsim.ConfigError{Message: "toml: " + err.Error(), Err: err}
		}
	case YAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, &techsim.ConfigError{Message: "yaml: " + err.Error(), Err: err}
		}
	case JSON:
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, &techsim.ConfigError{Message: "json: " + err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("unsupported document format %q", f)
	}
	return json.Marshal(normalize(tree))
}

// normalize rewrites YAML's non-string map keys so the tree marshals as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = normalize(x)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[fmt.Sprint(k)] = normalize(x)
		}
		return m
	case []map[string]any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	case []any:
		for i, x := range t {
			t[i] = normalize(x)
		}
		return t
	}
	return v
}

func decode(data []byte, f Format, schema *jsonschema.Schema, out any) error {
	normalized, err := Normalize(data, f)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.UseNumber()
	var inst any
	if err := dec.Decode(&inst); err != nil {
		return &techsim.ConfigError{Message: err.Error(), Err: err}
	}
	if err := schema.Validate(inst); err != nil {
		return schemaError(err)
	}

	dec = json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &techsim.ConfigError{Message: err.Error(), Err: err}
	}
	return nil
}

// schemaError reduces a validation failure to its most specific cause.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &techsim.ConfigError{Message: err.Error(), Err: err}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &techsim.ConfigError{Path: pointerPath(ve.InstanceLocation), Message: ve.Message, Err: err}
}

// pointerPath turns a JSON pointer like /cast/0/gender into cast[0].gender.
func pointerPath(ptr string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if part == "" {
			continue
		}
		part = strings.NewReplacer("~1", "/", "~0", "~").Replace(part)
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
