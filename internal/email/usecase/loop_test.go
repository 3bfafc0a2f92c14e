package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoop_Start(t *testing.T) {
	t.Run("runs immediately and on every tick", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var runs atomic.Int32
		loop := NewLoop("test", 10*time.Millisecond, func(ctx context.Context) error {
			if runs.Add(1) == 3 {
				cancel()
			}
			return nil
		}, discardLogger())

		err := loop.Start(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(3), runs.Load())
	})

	t.Run("task errors do not stop the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var runs atomic.Int32
		loop := NewLoop("test", time.Millisecond, func(ctx context.Context) error {
			if runs.Add(1) >= 2 {
				cancel()
			}
			return errors.New("store unavailable")
		}, discardLogger())

		err := loop.Start(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(2), runs.Load())
	})

	t.Run("cancelled context skips the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var runs atomic.Int32
		loop := NewLoop("test", time.Hour, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}, nil)

		err := loop.Start(ctx)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, runs.Load())
	})
}
