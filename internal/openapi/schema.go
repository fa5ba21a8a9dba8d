package openapi

import (
	"sort"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/params"
	"github.com/getkin/kin-openapi/openapi3"
)

// maxSchemaDepth bounds inlining of deeply nested or recursive schemas.
const maxSchemaDepth = 12

// schemaConverter inlines $refs so every tool schema is self-contained.
// A reference already being expanded higher up the tree is cut off with a
// plain object placeholder.
type schemaConverter struct {
	active map[string]bool
}

func newSchemaConverter() *schemaConverter {
	return &schemaConverter{active: make(map[string]bool)}
}

func (c *schemaConverter) convert(ref *openapi3.SchemaRef, depth int) params.Value {
	if ref == nil || ref.Value == nil {
		return params.Object()
	}
	if ref.Ref != "" {
		if c.active[ref.Ref] || depth > maxSchemaDepth {
			return params.Object(
				params.F("type", params.String("object")),
				params.F("description", params.String("Recursive reference to "+refName(ref.Ref))),
			)
		}
		c.active[ref.Ref] = true
		defer delete(c.active, ref.Ref)
	}
	if depth > maxSchemaDepth {
		return params.Object()
	}

	s := ref.Value
	var fields []params.Field
	add := func(key string, v params.Value) {
		fields = append(fields, params.F(key, v))
	}

	if types := s.Type.Slice(); len(types) > 0 {
		if s.Nullable && !s.Type.Includes("null") {
			types = append(append([]string{}, types...), "null")
		}
		if len(types) == 1 {
			add("type", params.String(types[0]))
		} else {
			items := make([]params.Value, len(types))
			for i, t := range types {
				items[i] = params.String(t)
			}
			add("type", params.Array(items...))
		}
	}
	if s.Title != "" {
		add("title", params.String(s.Title))
	}
	if s.Description != "" {
		add("description", params.String(s.Description))
	}
	if s.Format != "" {
		add("format", params.String(s.Format))
	}
	if len(s.Enum) > 0 {
		items := make([]params.Value, len(s.Enum))
		for i, e := range s.Enum {
			items[i] = params.FromAny(e)
		}
		add("enum", params.Array(items...))
	}
	if s.Default != nil {
		add("default", params.FromAny(s.Default))
	}
	if s.Min != nil {
		add("minimum", params.Number(*s.Min))
	}
	if s.Max != nil {
		add("maximum", params.Number(*s.Max))
	}
	if s.MinLength > 0 {
		add("minLength", params.Number(float64(s.MinLength)))
	}
	if s.MaxLength != nil {
		add("maxLength", params.Number(float64(*s.MaxLength)))
	}
	if s.Pattern != "" {
		add("pattern", params.String(s.Pattern))
	}
	if s.Items != nil {
		add("items", c.convert(s.Items, depth+1))
	}
	if s.MinItems > 0 {
		add("minItems", params.Number(float64(s.MinItems)))
	}
	if s.MaxItems != nil {
		add("maxItems", params.Number(float64(*s.MaxItems)))
	}
	if len(s.Properties) > 0 {
		add("properties", c.properties(s.Properties, depth))
	}
	if len(s.Required) > 0 {
		add("required", stringArray(s.Required))
	}
	if ap := s.AdditionalProperties; ap.Schema != nil {
		add("additionalProperties", c.convert(ap.Schema, depth+1))
	} else if ap.Has != nil {
		add("additionalProperties", params.Bool(*ap.Has))
	}
	for _, group := range []struct {
		key  string
		refs openapi3.SchemaRefs
	}{{"oneOf", s.OneOf}, {"anyOf", s.AnyOf}, {"allOf", s.AllOf}} {
		if len(group.refs) == 0 {
			continue
		}
		items := make([]params.Value, 0, len(group.refs))
		for _, r := range group.refs {
			items = append(items, c.convert(r, depth+1))
		}
		add(group.key, params.Array(items...))
	}
	if s.Not != nil {
		add("not", c.convert(s.Not, depth+1))
	}

	return params.Object(fields...)
}

// properties converts a property map with keys sorted, since kin-openapi
// does not keep their declared order.
func (c *schemaConverter) properties(props openapi3.Schemas, depth int) params.Value {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]params.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, params.F(k, c.convert(props[k], depth+1)))
	}
	return params.Object(fields...)
}

// isObjectSchema reports whether ref describes an object with properties
// that can be lifted into the tool's top-level input.
func isObjectSchema(ref *openapi3.SchemaRef) bool {
	if ref == nil || ref.Value == nil {
		return false
	}
	s := ref.Value
	return (s.Type == nil || s.Type.Is("object")) && len(s.Properties) > 0
}

func stringArray(values []string) params.Value {
	items := make([]params.Value, len(values))
	for i, v := range values {
		items[i] = params.String(v)
	}
	return params.Array(items...)
}

func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
