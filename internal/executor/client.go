// Package executor performs the HTTP calls behind tool invocations.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
	"github.com/bobmcallan/openapi-mcp/internal/params"
)

// defaultMaxResponseSize caps response bodies when no limit is configured.
const defaultMaxResponseSize = 10 << 20

// ErrResponseTooLarge is returned when a response exceeds the size limit.
var ErrResponseTooLarge = errors.New("response exceeds size limit")

// Options configures an Executor.
type Options struct {
	BaseURL          string
	Headers          map[string]string
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string
	// HTTPClient replaces the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Response is a successful upstream reply.
type Response struct {
	StatusCode  int
	ContentType string
	Data        params.Value
}

// Executor sends operation calls to one API base URL with a fixed header set.
type Executor struct {
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	maxSize    int64
	logger     *common.Logger
}

// New creates an Executor bound to opts.BaseURL.
func New(opts Options, logger *common.Logger) (*Executor, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	headers := make(http.Header)
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}
	if opts.UserAgent != "" && headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", opts.UserAgent)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	maxSize := opts.MaxResponseBytes
	if maxSize <= 0 {
		maxSize = defaultMaxResponseSize
	}

	return &Executor{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		headers:    headers,
		httpClient: client,
		maxSize:    maxSize,
		logger:     logger,
	}, nil
}

// BaseURL returns the configured API base URL.
func (e *Executor) BaseURL() string {
	return e.baseURL
}

// Headers returns a copy of the headers sent with every request.
func (e *Executor) Headers() http.Header {
	return e.headers.Clone()
}

// Execute calls the operation with args. A status >= 400 yields an
// *UpstreamError; transport and decoding problems are returned as plain errors.
func (e *Executor) Execute(ctx context.Context, op *openapi.OperationRecord, args params.Value) (*Response, error) {
	req, err := e.buildRequest(ctx, op, args)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Str("method", op.Method).Str("path", op.Path).Str("operation", op.ID).Msg("upstream request")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		e.logger.Error().Str("method", op.Method).Str("path", op.Path).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("upstream request failed")
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > e.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, e.maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	e.logger.Debug().Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Str("content_type", contentType).Msg("upstream response")

	data := decodeBody(contentType, body)
	if resp.StatusCode >= 400 {
		return nil, newUpstreamError(resp.StatusCode, data)
	}

	return &Response{StatusCode: resp.StatusCode, ContentType: contentType, Data: data}, nil
}

func (e *Executor) buildRequest(ctx context.Context, op *openapi.OperationRecord, args params.Value) (*http.Request, error) {
	if args.Kind() != params.KindObject {
		args = params.Object()
	}

	path := op.Path
	query := url.Values{}
	header := make(http.Header)
	var cookies []*http.Cookie
	used := make([]string, 0, len(op.Parameters))

	for _, p := range op.Parameters {
		v := args.Get(p.Name)
		if v.IsNullish() {
			if p.In == "path" {
				return nil, fmt.Errorf("missing required path parameter %q", p.Name)
			}
			continue
		}
		used = append(used, p.Name)

		switch p.In {
		case "path":
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(joinValues(v)))
		case "query":
			addQuery(query, p, v)
		case "header":
			header.Set(p.Name, joinValues(v))
		case "cookie":
			cookies = append(cookies, &http.Cookie{Name: p.Name, Value: joinValues(v)})
		}
	}

	rest := args.Without(used...)
	body, contentType, err := requestBody(op, rest)
	if err != nil {
		return nil, err
	}

	target := e.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, op.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, vals := range e.headers {
		for _, v := range vals {
			req.Header.Set(k, v)
		}
	}
	for k, vals := range header {
		req.Header[k] = vals
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	return req, nil
}

// requestBody encodes the arguments left after parameters were taken.
func requestBody(op *openapi.OperationRecord, rest params.Value) ([]byte, string, error) {
	contentType := op.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	switch op.Body {
	case openapi.BodyWrapped:
		v := rest.Get(openapi.BodyArg)
		if v.IsNullish() {
			return nil, "", nil
		}
		if v.Kind() == params.KindString && !strings.Contains(contentType, "json") {
			return []byte(v.Str()), contentType, nil
		}
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request: %w", err)
		}
		return raw, contentType, nil
	case openapi.BodyFields:
	default:
		switch op.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			return nil, "", nil
		}
	}

	if rest.Len() == 0 {
		return nil, "", nil
	}
	raw, err := rest.MarshalJSON()
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}
	return raw, contentType, nil
}

func addQuery(q url.Values, p openapi.Parameter, v params.Value) {
	switch v.Kind() {
	case params.KindArray:
		if !p.Explode {
			q.Set(p.Name, joinValues(v))
			return
		}
		for _, item := range v.Items() {
			q.Add(p.Name, item.Text())
		}
	default:
		q.Set(p.Name, v.Text())
	}
}

// joinValues renders arrays comma separated and everything else as text.
func joinValues(v params.Value) string {
	if v.Kind() != params.KindArray {
		return v.Text()
	}
	parts := make([]string, len(v.Items()))
	for i, item := range v.Items() {
		parts[i] = item.Text()
	}
	return strings.Join(parts, ",")
}
