package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rallytrack/tracking-service-manager-go/pkg/utils/cache"
)

func TestGetLoadsOnce(t *testing.T) {
	calls := 0
	c := New(
		WithExpiration[string, string](time.Minute),
		WithLoader(func(key string) (*string, error) {
			calls++
			v := "value-" + key
			return &v, nil
		}))
	ctx := context.Background()

	got, err := c.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, "value-a", *got)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, 1, calls, "second Get served from cache")
}

func TestGetReloadsExpired(t *testing.T) {
	calls := 0
	c := New(
		WithExpiration[string, int](-time.Second),
		WithLoader(func(key string) (*int, error) {
			calls++
			v := calls
			return &v, nil
		}))
	ctx := context.Background()

	_, err := c.Get(ctx, "a")
	assert.NoError(t, err)
	got, err := c.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, 2, *got, "expired entry reloaded")
}

func TestGetErrors(t *testing.T) {
	loaderErr := errors.New("load failed")
	c := New(
		WithLoader(func(key string) (*string, error) {
			return nil, loaderErr
		}))
	_, err := c.Get(context.Background(), "a")
	assert.ErrorIs(t, err, loaderErr)

	empty := New[string, string]()
	_, err = empty.Get(context.Background(), "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
