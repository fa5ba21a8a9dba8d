package executor

import (
	"encoding/base64"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/params"
)

// ContentKind is the coarse classification of a response body.
type ContentKind string

const (
	ContentText   ContentKind = "text"
	ContentImage  ContentKind = "image"
	ContentBinary ContentKind = "binary"
)

// ClassifyContentType maps a Content-Type header value to a ContentKind.
// An empty value is binary.
func ClassifyContentType(contentType string) ContentKind {
	switch {
	case contentType == "":
		return ContentBinary
	case strings.Contains(contentType, "text"), strings.Contains(contentType, "json"):
		return ContentText
	case strings.Contains(contentType, "image"):
		return ContentImage
	default:
		return ContentBinary
	}
}

// decodeBody turns a response body into a Value. JSON is parsed, other text
// becomes a string and anything else is wrapped as base64. An empty body is
// absent.
func decodeBody(contentType string, body []byte) params.Value {
	if len(body) == 0 {
		return params.Value{}
	}

	switch ClassifyContentType(contentType) {
	case ContentText:
		if strings.Contains(contentType, "json") {
			if v, err := params.Parse(body); err == nil {
				return v
			}
		}
		return params.String(string(body))
	default:
		return params.Object(
			params.F("contentType", params.String(contentType)),
			params.F("encoding", params.String("base64")),
			params.F("data", params.String(base64.StdEncoding.EncodeToString(body))),
		)
	}
}
