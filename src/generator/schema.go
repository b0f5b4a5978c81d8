package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var generatorSpecRe = regexp.MustCompile(`^\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\((.*)\))?$`)

type FieldSpec struct {
	Name      string
	Generator string
	Args      []string
	Literal   any

	value valueFunc
}

// Schema describe los campos de un evento: cada campo es un generador ($name(args)) o un literal.
type Schema struct {
	Fields []FieldSpec
}

func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	return ParseSchemaJSON(raw)
}

func ParseSchemaJSON(raw []byte) (*Schema, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	return ParseSchema(fields)
}

// ParseSchema resuelve cada campo contra el registro de generadores. Los campos
// quedan ordenados por nombre para que la salida sea estable.
func ParseSchema(fields map[string]any) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema has no fields")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := &Schema{Fields: make([]FieldSpec, 0, len(names))}

	for _, name := range names {
		spec, err := parseField(name, fields[name])
		if err != nil {
			return nil, err
		}
		schema.Fields = append(schema.Fields, spec)
	}

	return schema, nil
}

func (s *Schema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func parseField(name string, raw any) (FieldSpec, error) {
	text, ok := raw.(string)
	if !ok {
		return literalField(name, raw), nil
	}

	m := generatorSpecRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return literalField(name, raw), nil
	}

	generator := strings.ToLower(m[1])
	args := splitArgs(m[2])

	factory, ok := registry[generator]
	if !ok {
		return FieldSpec{}, fmt.Errorf("field %s: unknown generator %q", name, generator)
	}

	value, err := factory(args)
	if err != nil {
		return FieldSpec{}, fmt.Errorf("field %s: %w", name, err)
	}

	return FieldSpec{Name: name, Generator: generator, Args: args, value: value}, nil
}

func literalField(name string, raw any) FieldSpec {
	return FieldSpec{
		Name:    name,
		Literal: raw,
		value:   func(*runtime) any { return raw },
	}
}

func splitArgs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	args := []string{}
	start := 0
	var quote rune

	for i, c := range raw {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case (c == '"' || c == '\'') && strings.TrimSpace(raw[start:i]) == "":
			// comillas solo al inicio del argumento; un apóstrofo en medio es texto
			quote = c
		case c == ',':
			args = append(args, trimArg(raw[start:i]))
			start = i + 1
		}
	}

	return append(args, trimArg(raw[start:]))
}

func trimArg(arg string) string {
	return strings.Trim(strings.TrimSpace(arg), `"'`)
}
