// Package configuration reads optional environment-style files that supply
// default settings for the fdio command-line tool.
package configuration

import (
	"strconv"
	"time"
)

type envProvider interface {
	Read(filenames ...string) (map[string]string, error)
}

// Handler provides reading and typed interpretation of configuration maps.
type Handler struct {
	provider envProvider
}

// NewHandler returns a configuration [Handler] using the given provider.
func NewHandler(provider envProvider) *Handler {
	return &Handler{provider: provider}
}

// Load reads the given configuration files into a map (map[key]value).
func (h *Handler) Load(filenames ...string) (map[string]string, error) {
	return h.provider.Read(filenames...)
}

// String returns the value for key, or fallback when it is absent.
func (h *Handler) String(envMap map[string]string, key string, fallback string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return fallback
}

// Int returns the value for key as an integer, or fallback when it is absent
// or unparseable.
func (h *Handler) Int(envMap map[string]string, key string, fallback int) int {
	value, exists := envMap[key]
	if !exists {
		return fallback
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return intValue
}

// Duration returns the value for key as a [time.Duration], or fallback when
// it is absent or unparseable.
func (h *Handler) Duration(envMap map[string]string, key string, fallback time.Duration) time.Duration {
	value, exists := envMap[key]
	if !exists {
		return fallback
	}

	durValue, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return durValue
}
