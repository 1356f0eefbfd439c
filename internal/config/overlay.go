package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// ConfigValue represents a configuration value that can be set by the client or
// resolved from the environment.
// This implements the config overlay pattern: client > resolver > default
//
// Example usage:
//
//	endpoint := ConfigValue[string]{} // unset by the client
//	url := endpoint.Resolve(ctx, EnvResolver("FIREBOLT_BASE_URL"), DefaultAPIEndpoint)
type ConfigValue[T any] struct {
	// nil = not set by client
	value *T
}

// NewConfigValue creates a ConfigValue with a client-set value.
func NewConfigValue[T any](value T) ConfigValue[T] {
	return ConfigValue[T]{value: &value}
}

// IsSet returns true if the client explicitly set this configuration value.
func (cv ConfigValue[T]) IsSet() bool {
	return cv.value != nil
}

// Get returns the client-set value and whether it was set.
func (cv ConfigValue[T]) Get() (T, bool) {
	if cv.value != nil {
		return *cv.value, true
	}
	var zero T
	return zero, false
}

// Resolver looks up a configuration value outside the client configuration.
type Resolver[T any] interface {
	Resolve(ctx context.Context) (T, error)
}

// Resolve applies config overlay priority to determine the final value:
//
//	Priority 1: Client Config - if explicitly set
//	Priority 2: resolver - when the client doesn't set it
//	Priority 3: Default Value - when the resolver is nil or fails
func (cv ConfigValue[T]) Resolve(ctx context.Context, resolver Resolver[T], defaultValue T) T {
	if cv.value != nil {
		return *cv.value
	}

	if resolver != nil {
		if v, err := resolver.Resolve(ctx); err == nil {
			return v
		}
	}

	return defaultValue
}

// EnvResolver resolves a string value from the named environment variable.
// Unset or empty variables are an error.
type EnvResolver string

func (e EnvResolver) Resolve(ctx context.Context) (string, error) {
	v, ok := os.LookupEnv(string(e))
	if !ok || v == "" {
		return "", fmt.Errorf("environment variable %s is not set", string(e))
	}
	return v, nil
}

// ParseBoolConfigValue parses a string value into a ConfigValue[bool].
// Returns unset ConfigValue if the parameter is not present or invalid.
func ParseBoolConfigValue(params map[string]string, key string) ConfigValue[bool] {
	if v, ok := params[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return NewConfigValue(b)
		}
	}
	return ConfigValue[bool]{}
}

// ParseIntConfigValue parses a string value into a ConfigValue[int].
// Returns unset ConfigValue if the parameter is not present or invalid.
func ParseIntConfigValue(params map[string]string, key string) ConfigValue[int] {
	if v, ok := params[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return NewConfigValue(i)
		}
	}
	return ConfigValue[int]{}
}
