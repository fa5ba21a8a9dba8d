package mcp

import (
	"errors"
	"fmt"
)

// ErrNoBaseURL means the document declares no servers[0].url.
var ErrNoBaseURL = errors.New("no base URL found in OpenAPI document")

// ErrNoResponse is returned when an executor reports neither a response nor an error.
var ErrNoResponse = errors.New("executor returned no response")

// ConfigurationError aborts adapter construction.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// LookupError is returned for a tool name that matches no operation.
type LookupError struct {
	Name string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("method %s not found", e.Name)
}
