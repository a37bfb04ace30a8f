package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "maternity:")
	t.Cleanup(func() { c.Close() })
	return mr, c
}

type report struct {
	Births int      `json:"births"`
	Mean   *float64 `json:"mean"`
}

func TestCache_RoundTripAndTTL(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	mean := 3120.5
	require.NoError(t, c.SetJSON(ctx, "report:obstetrics:all", report{Births: 4, Mean: &mean}, time.Minute))
	assert.True(t, mr.Exists("maternity:report:obstetrics:all"))

	var got report
	require.NoError(t, c.GetJSON(ctx, "report:obstetrics:all", &got))
	assert.Equal(t, 4, got.Births)
	require.NotNil(t, got.Mean)
	assert.InDelta(t, 3120.5, *got.Mean, 0.001)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.GetJSON(ctx, "report:obstetrics:all", &got), ErrMiss)
}

func TestCache_Miss(t *testing.T) {
	_, c := setupTestCache(t)
	var got report
	assert.ErrorIs(t, c.GetJSON(context.Background(), "absent", &got), ErrMiss)
}

func TestCache_CorruptValue(t *testing.T) {
	mr, c := setupTestCache(t)
	require.NoError(t, mr.Set("maternity:bad", "{not json"))

	var got report
	err := c.GetJSON(context.Background(), "bad", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestCache_DeletePrefix(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"report:a", "report:b", "board"} {
		require.NoError(t, c.SetJSON(ctx, k, 1, time.Minute))
	}

	n, err := c.DeletePrefix(ctx, "report:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("maternity:report:a"))
	assert.True(t, mr.Exists("maternity:board"))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not-a-url", "")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	c, err := New("redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))
}
