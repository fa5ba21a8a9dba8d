// Package auth resolves the static headers sent with every upstream API call.
package auth

import (
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/tidwall/gjson"
)

// Config is the explicit auth configuration. Nothing here is read from the
// environment; callers populate it from internal/config.
type Config struct {
	HeadersJSON   string
	BearerToken   string
	VersionHeader string
	VersionValue  string
}

// Resolver produces a header set, or ok=false to defer to the next resolver.
type Resolver func(cfg Config, logger *common.Logger) (headers map[string]string, ok bool)

// DefaultResolvers is the standard chain: explicit header JSON, then a bearer
// token, then nothing.
var DefaultResolvers = []Resolver{FromHeadersJSON, FromBearerToken}

// Resolve runs resolvers in order and returns the first successful result.
// It never fails; an empty map means no auth headers.
func Resolve(cfg Config, logger *common.Logger, resolvers ...Resolver) map[string]string {
	if len(resolvers) == 0 {
		resolvers = DefaultResolvers
	}
	for _, r := range resolvers {
		if headers, ok := r(cfg, logger); ok {
			return headers
		}
	}
	return map[string]string{}
}

// FromHeadersJSON uses cfg.HeadersJSON verbatim when it is a non-empty JSON
// object. Malformed input is logged and skipped.
func FromHeadersJSON(cfg Config, logger *common.Logger) (map[string]string, bool) {
	if cfg.HeadersJSON == "" {
		return nil, false
	}
	if !gjson.Valid(cfg.HeadersJSON) {
		logger.Warn().Msg("Failed to parse headers JSON, ignoring")
		return nil, false
	}
	parsed := gjson.Parse(cfg.HeadersJSON)
	if !parsed.IsObject() {
		logger.Warn().Str("type", parsed.Type.String()).Msg("Headers JSON must be an object, ignoring")
		return nil, false
	}

	headers := make(map[string]string)
	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			headers[key.Str] = value.Str
		} else {
			headers[key.Str] = value.Raw
		}
		return true
	})
	if len(headers) == 0 {
		return nil, false
	}
	return headers, true
}

// FromBearerToken builds an Authorization header plus the API version header.
func FromBearerToken(cfg Config, _ *common.Logger) (map[string]string, bool) {
	if cfg.BearerToken == "" {
		return nil, false
	}
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.BearerToken,
	}
	if cfg.VersionHeader != "" && cfg.VersionValue != "" {
		headers[cfg.VersionHeader] = cfg.VersionValue
	}
	return headers, true
}
