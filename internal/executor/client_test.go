package executor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
	"github.com/bobmcallan/openapi-mcp/internal/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method      string
	path        string
	rawQuery    string
	header      http.Header
	body        string
	contentType string
}

func newCapturingServer(t *testing.T, status int, contentType, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.EscapedPath()
		got.rawQuery = r.URL.RawQuery
		got.header = r.Header.Clone()
		got.body = string(body)
		got.contentType = r.Header.Get("Content-Type")
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func newExecutor(t *testing.T, baseURL string, headers map[string]string) *Executor {
	t.Helper()
	e, err := New(Options{BaseURL: baseURL, Headers: headers, UserAgent: "openapi-mcp-test"}, common.NewSilentLogger())
	require.NoError(t, err)
	return e
}

func args(t *testing.T, s string) params.Value {
	t.Helper()
	v, err := params.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestExecute_GetWithPathAndQuery(t *testing.T) {
	srv, got := newCapturingServer(t, 200, "application/json", `{"id":1}`)
	e := newExecutor(t, srv.URL+"/v1/", map[string]string{"Authorization": "Bearer tok", "Notion-Version": "2022-06-28"})

	op := &openapi.OperationRecord{
		ID:     "items-getItem",
		Method: http.MethodGet,
		Path:   "/items/{id}",
		Parameters: []openapi.Parameter{
			{Name: "id", In: "path", Required: true, Explode: true},
			{Name: "tags", In: "query", Explode: true},
			{Name: "fields", In: "query"},
			{Name: "X-Trace", In: "header"},
		},
	}

	resp, err := e.Execute(context.Background(), op, args(t, `{"id":"a b","tags":["x","y"],"fields":["f1","f2"],"X-Trace":"t1","ignored":"z"}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/v1/items/a%20b", got.path)
	assert.Equal(t, "fields=f1%2Cf2&tags=x&tags=y", got.rawQuery)
	assert.Equal(t, "Bearer tok", got.header.Get("Authorization"))
	assert.Equal(t, "2022-06-28", got.header.Get("Notion-Version"))
	assert.Equal(t, "t1", got.header.Get("X-Trace"))
	assert.Equal(t, "openapi-mcp-test", got.header.Get("User-Agent"))
	assert.Equal(t, "", got.body)

	assert.Equal(t, 200, resp.StatusCode)
	raw, _ := resp.Data.MarshalJSON()
	assert.Equal(t, `{"id":1}`, string(raw))
}

func TestExecute_PostSendsRemainingArgsAsJSON(t *testing.T) {
	srv, got := newCapturingServer(t, 201, "application/json; charset=utf-8", `{"object":"page"}`)
	e := newExecutor(t, srv.URL, nil)

	op := &openapi.OperationRecord{
		ID:          "pages-create",
		Method:      http.MethodPost,
		Path:        "/pages",
		Body:        openapi.BodyFields,
		ContentType: "application/json",
	}

	_, err := e.Execute(context.Background(), op, args(t, `{"parent":{"page_id":"p"},"properties":{"title":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, `{"parent":{"page_id":"p"},"properties":{"title":"x"}}`, got.body)
}

func TestExecute_WrappedTextBody(t *testing.T) {
	srv, got := newCapturingServer(t, 204, "", "")
	e := newExecutor(t, srv.URL, nil)

	op := &openapi.OperationRecord{
		ID:          "raw-upload",
		Method:      http.MethodPut,
		Path:        "/raw",
		Body:        openapi.BodyWrapped,
		ContentType: "text/plain",
	}

	resp, err := e.Execute(context.Background(), op, args(t, `{"body":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", got.body)
	assert.Equal(t, "text/plain", got.contentType)
	assert.True(t, resp.Data.IsAbsent())
}

func TestExecute_UpstreamError(t *testing.T) {
	srv, _ := newCapturingServer(t, 400, "application/json", `{"code":"X","message":"Y"}`)
	e := newExecutor(t, srv.URL, nil)

	op := &openapi.OperationRecord{ID: "items-getItem", Method: http.MethodGet, Path: "/items"}
	_, err := e.Execute(context.Background(), op, params.Object())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 400, upstream.StatusCode)
	raw, _ := upstream.Body().MarshalJSON()
	assert.Equal(t, `{"code":"X","message":"Y"}`, string(raw))
	assert.Contains(t, upstream.Error(), "400: Y")
}

func TestExecute_UpstreamErrorWithoutBody(t *testing.T) {
	srv, _ := newCapturingServer(t, 503, "", "")
	e := newExecutor(t, srv.URL, nil)

	op := &openapi.OperationRecord{ID: "items-list", Method: http.MethodGet, Path: "/items"}
	_, err := e.Execute(context.Background(), op, params.Object())

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	raw, _ := upstream.Body().MarshalJSON()
	assert.Equal(t, `{"statusCode":503,"message":"Service Unavailable"}`, string(raw))
}

func TestExecute_TransportErrorIsUnclassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := newExecutor(t, url, nil)
	op := &openapi.OperationRecord{ID: "items-list", Method: http.MethodGet, Path: "/items"}
	_, err := e.Execute(context.Background(), op, params.Object())

	require.Error(t, err)
	var upstream *UpstreamError
	assert.False(t, errors.As(err, &upstream))
}

func TestExecute_MissingPathParameter(t *testing.T) {
	e := newExecutor(t, "https://api.example.com", nil)
	op := &openapi.OperationRecord{
		ID:         "items-getItem",
		Method:     http.MethodGet,
		Path:       "/items/{id}",
		Parameters: []openapi.Parameter{{Name: "id", In: "path", Required: true}},
	}
	_, err := e.Execute(context.Background(), op, params.Object())
	assert.ErrorContains(t, err, `missing required path parameter "id"`)
}

func TestExecute_ResponseTooLarge(t *testing.T) {
	srv, _ := newCapturingServer(t, 200, "text/plain", strings.Repeat("a", 64))
	e, err := New(Options{BaseURL: srv.URL, MaxResponseBytes: 16}, common.NewSilentLogger())
	require.NoError(t, err)

	op := &openapi.OperationRecord{ID: "blob-get", Method: http.MethodGet, Path: "/"}
	_, err = e.Execute(context.Background(), op, params.Object())
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/relative"}, common.NewSilentLogger())
	assert.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		contentType string
		body        string
		want        string
	}{
		{"application/json", `{"b":1,"a":2}`, `{"b":1,"a":2}`},
		{"application/json", `not json`, `"not json"`},
		{"text/html", `<p>hi</p>`, `"<p>hi</p>"`},
		{"image/png", "\x89PNG", `{"contentType":"image/png","encoding":"base64","data":"iVBORw=="}`},
		{"", "raw", `{"contentType":"","encoding":"base64","data":"cmF3"}`},
	}
	for _, tt := range tests {
		raw, err := decodeBody(tt.contentType, []byte(tt.body)).MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(raw), tt.contentType)
	}
}

func TestClassifyContentType(t *testing.T) {
	assert.Equal(t, ContentBinary, ClassifyContentType(""))
	assert.Equal(t, ContentText, ClassifyContentType("text/plain"))
	assert.Equal(t, ContentText, ClassifyContentType("application/problem+json"))
	assert.Equal(t, ContentImage, ClassifyContentType("image/jpeg"))
	assert.Equal(t, ContentBinary, ClassifyContentType("application/octet-stream"))
}
