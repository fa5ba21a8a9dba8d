package openapi

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/params"
	"github.com/getkin/kin-openapi/openapi3"
)

// MaxToolNameLength is the longest tool name clients accept.
const MaxToolNameLength = 64

// DefaultResource groups operations with neither a tag nor a usable path segment.
const DefaultResource = "API"

// BodyArg is the argument holding a request body that is not a JSON object.
const BodyArg = "body"

var (
	resourceUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	methodUnsafe   = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// Method is one invocable operation within a resource.
type Method struct {
	Name         string
	Description  string
	InputSchema  params.Value
	OutputSchema params.Value
	OperationID  string
}

// Resource is a named, ordered group of methods.
type Resource struct {
	Name    string
	Methods []Method
}

// BodyMode says how leftover arguments become the request body.
type BodyMode int

const (
	// BodyNone sends no body.
	BodyNone BodyMode = iota
	// BodyFields sends every argument that is not a parameter as a JSON object.
	BodyFields
	// BodyWrapped sends the BodyArg argument as the whole body.
	BodyWrapped
)

// Parameter is a path, query, header or cookie parameter of an operation.
type Parameter struct {
	Name     string
	In       string
	Required bool
	Explode  bool
}

// OperationRecord binds a tool to the HTTP operation it invokes.
type OperationRecord struct {
	ID          string
	Method      string
	Path        string
	Parameters  []Parameter
	Body        BodyMode
	ContentType string
	Operation   *openapi3.Operation
}

// Catalog is the immutable result of building tools from a document.
type Catalog struct {
	Resources []Resource
	Index     map[string]*OperationRecord
}

// Builder converts a Document into a Catalog.
type Builder struct{}

// Build derives one method per operation. Resources are ordered by their
// first operation, methods by declaration.
func (Builder) Build(doc *Document) (*Catalog, error) {
	if doc == nil || doc.T == nil {
		return nil, fmt.Errorf("no OpenAPI document")
	}

	cat := &Catalog{Index: make(map[string]*OperationRecord)}
	position := make(map[string]int)

	for _, ref := range doc.Operations() {
		resource := ResourceName(ref)
		method := MethodName(ref)

		id := OperationID(resource, method)
		for n := 2; cat.Index[id] != nil; n++ {
			method = MethodName(ref) + "_" + strconv.Itoa(n)
			id = OperationID(resource, method)
		}

		record, input := buildOperation(id, ref)
		cat.Index[id] = record

		idx, ok := position[resource]
		if !ok {
			idx = len(cat.Resources)
			position[resource] = idx
			cat.Resources = append(cat.Resources, Resource{Name: resource})
		}
		cat.Resources[idx].Methods = append(cat.Resources[idx].Methods, Method{
			Name:         method,
			Description:  describe(ref),
			InputSchema:  input,
			OutputSchema: outputSchema(ref.Operation),
			OperationID:  id,
		})
	}

	return cat, nil
}

// OperationID is the untruncated identifier a tool is routed by.
func OperationID(resource, method string) string {
	return resource + "-" + method
}

// DisplayName is the listed tool name: the operation id cut to 64 characters.
func DisplayName(resource, method string) string {
	return Truncate(OperationID(resource, method), MaxToolNameLength)
}

// Truncate shortens name to at most max runes.
func Truncate(name string, max int) string {
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max])
}

// ResourceName is the operation's first tag, else its first literal path
// segment, else DefaultResource.
func ResourceName(ref OperationRef) string {
	if ref.Operation != nil {
		for _, tag := range ref.Operation.Tags {
			if name := strings.Trim(resourceUnsafe.ReplaceAllString(tag, "_"), "_"); name != "" {
				return name
			}
		}
	}
	for _, seg := range strings.Split(ref.Path, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		if name := strings.Trim(resourceUnsafe.ReplaceAllString(seg, "_"), "_"); name != "" {
			return name
		}
	}
	return DefaultResource
}

// MethodName is the operationId, else "<verb>_<path segments>".
func MethodName(ref OperationRef) string {
	if ref.Operation != nil && ref.Operation.OperationID != "" {
		if name := strings.Trim(methodUnsafe.ReplaceAllString(ref.Operation.OperationID, "_"), "_"); name != "" {
			return name
		}
	}
	parts := []string{strings.ToLower(ref.Method)}
	for _, seg := range strings.Split(ref.Path, "/") {
		seg = strings.Trim(seg, "{}")
		if seg = strings.Trim(resourceUnsafe.ReplaceAllString(seg, "_"), "_"); seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "_")
}

func buildOperation(id string, ref OperationRef) (*OperationRecord, params.Value) {
	conv := newSchemaConverter()
	record := &OperationRecord{
		ID:        id,
		Method:    ref.Method,
		Path:      ref.Path,
		Operation: ref.Operation,
	}

	var props []params.Field
	var required []string
	taken := make(map[string]bool)

	for _, p := range mergeParameters(ref.PathItem, ref.Operation) {
		if taken[p.Name] {
			continue
		}
		taken[p.Name] = true

		explode := true
		if p.Explode != nil {
			explode = *p.Explode
		}
		record.Parameters = append(record.Parameters, Parameter{
			Name:     p.Name,
			In:       p.In,
			Required: p.Required || p.In == openapi3.ParameterInPath,
			Explode:  explode,
		})

		schema := conv.convert(p.Schema, 0)
		if p.Description != "" && schema.Get("description").IsAbsent() {
			schema = params.Object(append(schema.Fields(), params.F("description", params.String(p.Description)))...)
		}
		props = append(props, params.F(p.Name, schema))
		if p.Required || p.In == openapi3.ParameterInPath {
			required = append(required, p.Name)
		}
	}

	if contentType, body, bodyRequired := requestBody(ref.Operation); body != nil {
		record.ContentType = contentType
		if isObjectSchema(body) {
			record.Body = BodyFields
			lifted := conv.convert(body, 0)
			for _, f := range lifted.Get("properties").Fields() {
				if taken[f.Key] {
					continue
				}
				taken[f.Key] = true
				props = append(props, f)
			}
			for _, r := range lifted.Get("required").Items() {
				required = append(required, r.Str())
			}
		} else {
			record.Body = BodyWrapped
			props = append(props, params.F(BodyArg, conv.convert(body, 0)))
			if bodyRequired {
				required = append(required, BodyArg)
			}
		}
	}

	input := []params.Field{
		params.F("type", params.String("object")),
		params.F("properties", params.Object(props...)),
	}
	if required = dedupe(required); len(required) > 0 {
		input = append(input, params.F("required", stringArray(required)))
	}
	return record, params.Object(input...)
}

// mergeParameters returns operation parameters followed by path-level ones
// the operation does not override.
func mergeParameters(item *openapi3.PathItem, op *openapi3.Operation) []*openapi3.Parameter {
	var out []*openapi3.Parameter
	overridden := make(map[string]bool)
	if op != nil {
		for _, ref := range op.Parameters {
			if ref == nil || ref.Value == nil {
				continue
			}
			overridden[ref.Value.In+":"+ref.Value.Name] = true
			out = append(out, ref.Value)
		}
	}
	if item != nil {
		for _, ref := range item.Parameters {
			if ref == nil || ref.Value == nil || overridden[ref.Value.In+":"+ref.Value.Name] {
				continue
			}
			out = append(out, ref.Value)
		}
	}
	return out
}

// requestBody picks the JSON media type of the body, falling back to the
// first declared one.
func requestBody(op *openapi3.Operation) (string, *openapi3.SchemaRef, bool) {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return "", nil, false
	}
	rb := op.RequestBody.Value
	if len(rb.Content) == 0 {
		return "", nil, false
	}

	types := make([]string, 0, len(rb.Content))
	for ct := range rb.Content {
		types = append(types, ct)
	}
	sort.Strings(types)

	chosen := types[0]
	for _, ct := range types {
		if strings.Contains(ct, "json") {
			chosen = ct
			break
		}
	}
	media := rb.Content[chosen]
	if media == nil || media.Schema == nil {
		return chosen, &openapi3.SchemaRef{Value: &openapi3.Schema{}}, rb.Required
	}
	return chosen, media.Schema, rb.Required
}

// outputSchema is the schema of the first 2xx JSON response, if any.
func outputSchema(op *openapi3.Operation) params.Value {
	if op == nil || op.Responses == nil {
		return params.Value{}
	}
	for _, code := range sortedCodes(op.Responses) {
		if !strings.HasPrefix(code, "2") {
			continue
		}
		resp := op.Responses.Value(code)
		if resp == nil || resp.Value == nil {
			continue
		}
		types := make([]string, 0, len(resp.Value.Content))
		for ct := range resp.Value.Content {
			types = append(types, ct)
		}
		sort.Strings(types)
		for _, ct := range types {
			media := resp.Value.Content[ct]
			if strings.Contains(ct, "json") && media != nil && media.Schema != nil {
				return newSchemaConverter().convert(media.Schema, 0)
			}
		}
	}
	return params.Value{}
}

// describe is the summary or description, with documented error responses
// appended.
func describe(ref OperationRef) string {
	op := ref.Operation
	desc := strings.TrimSpace(op.Summary)
	if desc == "" {
		desc = strings.TrimSpace(op.Description)
	}
	if desc == "" {
		desc = ref.Method + " " + ref.Path
	}

	if op.Responses == nil {
		return desc
	}
	var lines []string
	for _, code := range sortedCodes(op.Responses) {
		if !strings.HasPrefix(code, "4") && !strings.HasPrefix(code, "5") {
			continue
		}
		resp := op.Responses.Value(code)
		text := ""
		if resp != nil && resp.Value != nil && resp.Value.Description != nil {
			text = *resp.Value.Description
		}
		if text == "" {
			text = http.StatusText(atoi(code))
		}
		lines = append(lines, fmt.Sprintf("%s: %s", code, text))
	}
	if len(lines) > 0 {
		desc += "\nError Responses:\n" + strings.Join(lines, "\n")
	}
	return desc
}

func sortedCodes(responses *openapi3.Responses) []string {
	m := responses.Map()
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
