// Package openapi loads OpenAPI 3 documents and turns their operations into
// an ordered tool catalog.
package openapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// methodOrder is used for path items whose declaration order is unknown.
var methodOrder = []string{
	http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete,
	http.MethodOptions, http.MethodHead, http.MethodPatch, http.MethodTrace,
}

// Document is a parsed OpenAPI document plus the order in which its paths
// and operations were declared. kin-openapi stores paths in a map, so the
// order is recovered from the source text.
type Document struct {
	*openapi3.T

	paths   []string
	methods map[string][]string
}

// OperationRef is one operation in declaration order.
type OperationRef struct {
	Path      string
	Method    string
	PathItem  *openapi3.PathItem
	Operation *openapi3.Operation
}

// NewDocument wraps a document built in code. Paths are then ordered
// lexically and methods in a fixed order.
func NewDocument(t *openapi3.T) *Document {
	return &Document{T: t}
}

// Load reads a document from a file path or an http(s) URL. Internal and
// relative file $refs are resolved.
func Load(ctx context.Context, source string) (*Document, error) {
	location, err := sourceURL(source)
	if err != nil {
		return nil, err
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	read := openapi3.ReadFromURIs(openapi3.ReadFromHTTP(http.DefaultClient), openapi3.ReadFromFile)
	data, err := read(loader, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read OpenAPI document %s: %w", source, err)
	}

	t, err := loader.LoadFromDataWithPath(data, location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document %s: %w", source, err)
	}

	doc := &Document{T: t}
	doc.recordOrder(data)
	return doc, nil
}

// Parse loads a document from memory. External $refs are not followed.
func Parse(ctx context.Context, data []byte) (*Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	t, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}

	doc := &Document{T: t}
	doc.recordOrder(data)
	return doc, nil
}

func sourceURL(source string) (*url.URL, error) {
	if source == "" {
		return nil, fmt.Errorf("no OpenAPI document configured")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("invalid OpenAPI document URL %s: %w", source, err)
		}
		return u, nil
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document path %s: %w", source, err)
	}
	return &url.URL{Path: filepath.ToSlash(abs)}, nil
}

// recordOrder walks the raw document (JSON is valid YAML) and notes the order
// of path keys and of operation keys within each path. Failure leaves the
// fallback ordering in place.
func (d *Document) recordOrder(data []byte) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return
	}
	paths := mappingValue(root.Content[0], "paths")
	if paths == nil {
		return
	}

	d.methods = make(map[string][]string)
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		d.paths = append(d.paths, path)

		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			method := strings.ToUpper(item.Content[j].Value)
			if isHTTPMethod(method) {
				d.methods[path] = append(d.methods[path], method)
			}
		}
	}
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func isHTTPMethod(m string) bool {
	for _, known := range methodOrder {
		if m == known {
			return true
		}
	}
	return m == http.MethodConnect
}

// BaseURL returns the first server URL, or "" when the document has none.
func (d *Document) BaseURL() string {
	if d == nil || d.T == nil || len(d.Servers) == 0 || d.Servers[0] == nil {
		return ""
	}
	return d.Servers[0].URL
}

// Operations lists every operation in declaration order.
func (d *Document) Operations() []OperationRef {
	if d == nil || d.T == nil || d.Paths == nil {
		return nil
	}

	items := d.Paths.Map()
	var refs []OperationRef
	seen := make(map[string]bool, len(items))

	add := func(path string) {
		item := items[path]
		if item == nil || seen[path] {
			return
		}
		seen[path] = true

		ops := item.Operations()
		emitted := make(map[string]bool, len(ops))
		candidates := make([]string, 0, len(d.methods[path])+len(methodOrder)+1)
		candidates = append(candidates, d.methods[path]...)
		candidates = append(candidates, methodOrder...)
		candidates = append(candidates, http.MethodConnect)
		for _, m := range candidates {
			op := ops[m]
			if op == nil || emitted[m] {
				continue
			}
			emitted[m] = true
			refs = append(refs, OperationRef{Path: path, Method: m, PathItem: item, Operation: op})
		}
	}

	for _, p := range d.paths {
		add(p)
	}

	rest := make([]string, 0, len(items))
	for p := range items {
		if !seen[p] {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	for _, p := range rest {
		add(p)
	}

	return refs
}
