package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockResolver is a test helper for Resolver
type mockResolver[T any] struct {
	value T
	err   error
}

func (m *mockResolver[T]) Resolve(ctx context.Context) (T, error) {
	return m.value, m.err
}

func TestConfigValue(t *testing.T) {
	t.Run("unset value", func(t *testing.T) {
		var cv ConfigValue[bool]
		assert.False(t, cv.IsSet())
		v, ok := cv.Get()
		assert.False(t, ok)
		assert.False(t, v)
	})

	t.Run("set value", func(t *testing.T) {
		cv := NewConfigValue(true)
		assert.True(t, cv.IsSet())
		v, ok := cv.Get()
		assert.True(t, ok)
		assert.True(t, v)
	})

	t.Run("client value overrides resolver", func(t *testing.T) {
		cv := NewConfigValue("client")
		assert.Equal(t, "client", cv.Resolve(context.Background(), &mockResolver[string]{value: "resolved"}, "default"))
	})

	t.Run("resolver used when client unset", func(t *testing.T) {
		var cv ConfigValue[string]
		assert.Equal(t, "resolved", cv.Resolve(context.Background(), &mockResolver[string]{value: "resolved"}, "default"))
	})

	t.Run("default used when resolver fails", func(t *testing.T) {
		var cv ConfigValue[string]
		assert.Equal(t, "default", cv.Resolve(context.Background(), &mockResolver[string]{err: errors.New("boom")}, "default"))
		assert.Equal(t, "default", cv.Resolve(context.Background(), nil, "default"))
	})

	t.Run("env resolver", func(t *testing.T) {
		t.Setenv("FB_TEST_VALUE", "x")
		v, err := EnvResolver("FB_TEST_VALUE").Resolve(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, "x", v)

		t.Setenv("FB_TEST_VALUE", "")
		_, err = EnvResolver("FB_TEST_VALUE").Resolve(context.Background())
		assert.Error(t, err)
	})
}

func TestParseConfigValues(t *testing.T) {
	params := map[string]string{"on": "true", "one": "1", "bad": "maybe", "n": "12", "nan": "x"}

	v, ok := ParseBoolConfigValue(params, "on").Get()
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = ParseBoolConfigValue(params, "one").Get()
	assert.True(t, ok)
	assert.True(t, v)

	assert.False(t, ParseBoolConfigValue(params, "bad").IsSet())
	assert.False(t, ParseBoolConfigValue(params, "missing").IsSet())

	n, ok := ParseIntConfigValue(params, "n").Get()
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	assert.False(t, ParseIntConfigValue(params, "nan").IsSet())
}
