package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelForEach(t *testing.T) {
	t.Parallel()

	t.Run("process all items", func(t *testing.T) {
		var sum atomic.Int64
		errs := ParallelForEach(context.Background(), []int{1, 2, 3, 4, 5}, 3, func(ctx context.Context, item int) error {
			sum.Add(int64(item))
			return nil
		})

		assert.Len(t, errs, 5)
		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, int64(15), sum.Load())
	})

	t.Run("errors stay index aligned", func(t *testing.T) {
		errs := ParallelForEach(context.Background(), []int{1, 2, 3}, 2, func(ctx context.Context, item int) error {
			if item == 2 {
				return errors.New("error on 2")
			}
			return nil
		})

		require.Len(t, errs, 3)
		assert.NoError(t, errs[0])
		assert.EqualError(t, errs[1], "error on 2")
		assert.NoError(t, errs[2])
	})

	t.Run("zero workers defaults to one", func(t *testing.T) {
		var calls atomic.Int32
		errs := ParallelForEach(context.Background(), []string{"a", "b"}, 0, func(ctx context.Context, item string) error {
			calls.Add(1)
			return nil
		})

		assert.Len(t, errs, 2)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("empty input", func(t *testing.T) {
		errs := ParallelForEach(context.Background(), []int{}, 4, func(ctx context.Context, item int) error {
			t.Fatal("must not be called")
			return nil
		})
		assert.Empty(t, errs)
	})

	t.Run("cancelled context skips work", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls atomic.Int32
		items := make([]int, 100)
		ParallelForEach(ctx, items, 2, func(ctx context.Context, item int) error {
			calls.Add(1)
			return nil
		})
		assert.Less(t, calls.Load(), int32(100))
	})
}

func TestParallelMap(t *testing.T) {
	t.Parallel()

	items := []string{"a", "bb", "ccc", "dddd"}
	results, errs := ParallelMap(context.Background(), items, 3, func(ctx context.Context, s string) (int, error) {
		if s == "ccc" {
			return 0, errors.New("bad")
		}
		return len(s), nil
	})

	assert.Equal(t, []int{1, 2, 0, 4}, results)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[2])
	assert.NoError(t, errs[3])
}
