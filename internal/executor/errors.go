package executor

import (
	"fmt"
	"net/http"

	"github.com/bobmcallan/openapi-mcp/internal/params"
)

// UpstreamError is a classified failure: the API answered with status >= 400.
// Data is the decoded response body, absent when the body was empty.
// Payload describes the failure itself and is always set.
type UpstreamError struct {
	StatusCode int
	Data       params.Value
	Payload    params.Value
}

func newUpstreamError(status int, data params.Value) *UpstreamError {
	return &UpstreamError{
		StatusCode: status,
		Data:       data,
		Payload: params.Object(
			params.F("statusCode", params.NumberLiteral(fmt.Sprint(status))),
			params.F("message", params.String(http.StatusText(status))),
		),
	}
}

func (e *UpstreamError) Error() string {
	if msg := e.Data.Get("message"); msg.Kind() == params.KindString {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, msg.Str())
	}
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

// Body is the error detail shown to the caller: the response body when there
// was one, else the payload, else an empty object.
func (e *UpstreamError) Body() params.Value {
	if !e.Data.IsNullish() {
		return e.Data
	}
	if !e.Payload.IsNullish() {
		return e.Payload
	}
	return params.Object()
}
