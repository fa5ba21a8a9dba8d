package gateway

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Strategy names accepted in gateway.strategy.
const (
	StrategyQueryKey      = "query_key"
	StrategyHeaderKey     = "header_key"
	StrategyBearerKey     = "bearer_key"
	StrategyQueryOrHeader = "query_or_header"
	StrategyRequireHeader = "require_header"
)

// AuthConfig selects a strategy and the key it checks.
type AuthConfig struct {
	Strategy       string
	Key            string
	KeyHash        string
	QueryParam     string
	HeaderName     string
	RequiredHeader string
}

type strategyFunc func(a *Authenticator, r *http.Request) bool

var strategies = map[string]strategyFunc{
	StrategyQueryKey: func(a *Authenticator, r *http.Request) bool {
		return a.matchKey(r.URL.Query().Get(a.cfg.QueryParam))
	},
	StrategyHeaderKey: func(a *Authenticator, r *http.Request) bool {
		return a.matchKey(r.Header.Get(a.cfg.HeaderName))
	},
	StrategyBearerKey: func(a *Authenticator, r *http.Request) bool {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		return ok && a.matchKey(strings.TrimSpace(token))
	},
	StrategyQueryOrHeader: func(a *Authenticator, r *http.Request) bool {
		return a.matchKey(r.URL.Query().Get(a.cfg.QueryParam)) || a.matchKey(r.Header.Get(a.cfg.HeaderName))
	},
	StrategyRequireHeader: func(a *Authenticator, r *http.Request) bool {
		return r.Header.Get(a.cfg.RequiredHeader) != ""
	},
}

// Strategies lists the known strategy names, sorted.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authenticator decides whether a request may pass the gateway.
type Authenticator struct {
	cfg   AuthConfig
	check strategyFunc
}

// NewAuthenticator resolves the configured strategy. An empty strategy means
// query_or_header.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyQueryOrHeader
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = "k"
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Proxy-Key"
	}

	check, ok := strategies[cfg.Strategy]
	if !ok {
		return nil, fmt.Errorf("unknown auth strategy %q (known: %s)", cfg.Strategy, strings.Join(Strategies(), ", "))
	}
	if cfg.Strategy == StrategyRequireHeader && cfg.RequiredHeader == "" {
		return nil, fmt.Errorf("strategy %s needs a required header name", StrategyRequireHeader)
	}
	if cfg.KeyHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.KeyHash)); err != nil {
			return nil, fmt.Errorf("invalid key hash: %w", err)
		}
	}
	return &Authenticator{cfg: cfg, check: check}, nil
}

// Strategy returns the active strategy name.
func (a *Authenticator) Strategy() string { return a.cfg.Strategy }

// HasKey reports whether a key or key hash is configured.
func (a *Authenticator) HasKey() bool { return a.cfg.Key != "" || a.cfg.KeyHash != "" }

// Authenticate reports whether r carries valid credentials.
func (a *Authenticator) Authenticate(r *http.Request) bool {
	return a.check(a, r)
}

// matchKey never matches an empty value, so a gateway without a key rejects
// every keyed request.
func (a *Authenticator) matchKey(presented string) bool {
	if presented == "" {
		return false
	}
	if a.cfg.KeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.cfg.KeyHash), truncateKey(presented)) == nil
	}
	if a.cfg.Key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.cfg.Key)) == 1
}

// HashKey returns a bcrypt hash suitable for gateway.key_hash.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key")
	}
	hash, err := bcrypt.GenerateFromPassword(truncateKey(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// bcrypt rejects inputs over 72 bytes.
func truncateKey(key string) []byte {
	b := []byte(key)
	if len(b) > 72 {
		b = b[:72]
	}
	return b
}
