package mcp

import (
	"github.com/bobmcallan/openapi-mcp/internal/params"
	"github.com/mark3labs/mcp-go/mcp"
)

// OutcomeKind tags how a dispatched call ended.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeUpstreamError
)

func (k OutcomeKind) String() string {
	if k == OutcomeUpstreamError {
		return "upstream_error"
	}
	return "ok"
}

// Outcome is the result of a call that reached the upstream API. Both kinds
// render as ordinary tool output; only lookup and internal failures become
// protocol errors.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	Payload    params.Value
}

// Envelope is the JSON value sent back to the caller.
func (o Outcome) Envelope() params.Value {
	if o.Kind == OutcomeUpstreamError {
		return errorEnvelope(o.Payload)
	}
	return o.Payload
}

// Result renders the outcome as a single text content block.
func (o Outcome) Result() (*mcp.CallToolResult, error) {
	raw, err := o.Envelope().MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(raw))},
	}, nil
}

// errorEnvelope puts status "error" first and copies the body's keys after
// it. A body key named status overrides the value but keeps the first slot.
// Bodies that are not objects are nested under "data".
func errorEnvelope(body params.Value) params.Value {
	status := params.F("status", params.String("error"))

	if body.Kind() != params.KindObject {
		if body.IsAbsent() {
			return params.Object(status)
		}
		return params.Object(status, params.F("data", body))
	}

	fields := make([]params.Field, 0, body.Len()+1)
	fields = append(fields, status)
	for _, f := range body.Fields() {
		if f.Key == "status" {
			fields[0] = f
			continue
		}
		fields = append(fields, f)
	}
	return params.Object(fields...)
}
