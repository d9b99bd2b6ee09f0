package config

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// canonicalKey maps a camelCase key (baseUrl, maxResponseTimeMs, htmlOutputPath)
// onto the snake_case name used by the struct tags. Snake_case keys pass through.
func canonicalKey(key string) string {
	runes := []rune(key)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeKeys rewrites mapping keys in n to their canonical spelling,
// walking alongside t. It rejects keys t does not declare and mappings that
// set the same option under both spellings.
func normalizeKeys(n *yaml.Node, t reflect.Type, field string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := normalizeKeys(c, t, field); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		if t.Kind() != reflect.Slice {
			return nil
		}
		for i, c := range n.Content {
			if err := normalizeKeys(c, t.Elem(), fmt.Sprintf("%s[%d]", field, i)); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		if t.Kind() != reflect.Struct {
			return nil
		}
		known := yamlFields(t)
		seen := make(map[string]string, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if key.Value == "<<" {
				continue
			}
			name := canonicalKey(key.Value)
			path := joinField(field, name)
			if prev, ok := seen[name]; ok {
				return fieldErr(path, "set as both %q and %q", prev, key.Value)
			}
			seen[name] = key.Value
			ft, ok := known[name]
			if !ok {
				return fieldErr(joinField(field, key.Value), "unknown key (line %d)", key.Line)
			}
			key.Value = name
			if err := normalizeKeys(value, ft, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func yamlFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = f.Type
	}
	return fields
}

func joinField(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
