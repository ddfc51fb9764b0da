package cachemanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/barangay/internal/mocks"
	"github.com/zjrosen/barangay/internal/tracing"
)

func TestReadThroughCache_Hit(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, []candidate](t)
	cached := []candidate{{ID: "r-1"}}
	managerMock.On("Get", mock.Anything, "juan").Return(cached, true).Once()

	rt := NewReadThroughCache[string, []candidate, string](
		managerMock,
		func(ctx context.Context, q string) ([]candidate, error) {
			t.Fatal("loader must not run on a hit")
			return nil, nil
		},
		time.Minute,
	)

	got, err := rt.Get(context.Background(), "juan", "juan")
	require.NoError(t, err)
	require.Equal(t, cached, got)
}

func TestReadThroughCache_MissStores(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, []candidate](t)
	loaded := []candidate{{ID: "r-2"}}
	managerMock.On("Get", mock.Anything, "maria").Return(nil, false).Once()
	managerMock.On("Set", mock.Anything, "maria", loaded, time.Minute).Once()

	rt := NewReadThroughCache[string, []candidate, string](
		managerMock,
		func(ctx context.Context, q string) ([]candidate, error) {
			return loaded, nil
		},
		time.Minute,
	)

	got, err := rt.Get(context.Background(), "maria", "maria")
	require.NoError(t, err)
	require.Equal(t, loaded, got)
}

func TestReadThroughCache_ErrorNotCached(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, []candidate](t)
	managerMock.On("Get", mock.Anything, "pedro").Return(nil, false).Once()

	boom := errors.New("boom")
	rt := NewReadThroughCache[string, []candidate, string](
		managerMock,
		func(ctx context.Context, q string) ([]candidate, error) {
			return nil, boom
		},
		time.Minute,
	)

	_, err := rt.Get(context.Background(), "pedro", "pedro")
	require.ErrorIs(t, err, boom)
	managerMock.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReadThroughCache_NegativeTTLBypasses(t *testing.T) {
	managerMock := mocks.NewMockCacheManager[string, []candidate](t)
	calls := 0
	rt := NewReadThroughCache[string, []candidate, string](
		managerMock,
		func(ctx context.Context, q string) ([]candidate, error) {
			calls++
			return []candidate{{ID: q}}, nil
		},
		-1,
	)

	_, err := rt.Get(context.Background(), "a", "a")
	require.NoError(t, err)
	_, err = rt.Get(context.Background(), "a", "a")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestReadThroughCache_ConcurrentMissesShareLoad(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []candidate]("residents", DefaultExpiration, DefaultCleanupInterval)
	var calls atomic.Int32
	release := make(chan struct{})
	rt := NewReadThroughCache[string, []candidate, string](
		cache,
		func(ctx context.Context, q string) ([]candidate, error) {
			calls.Add(1)
			<-release
			return []candidate{{ID: q}}, nil
		},
		time.Minute,
	)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := rt.Get(context.Background(), "ana", "ana")
			require.NoError(t, err)
			require.Equal(t, []candidate{{ID: "ana"}}, got)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.LessOrEqual(t, calls.Load(), int32(2))
	got, ok := cache.Get(context.Background(), "ana")
	require.True(t, ok)
	require.Equal(t, []candidate{{ID: "ana"}}, got)
}

func TestReadThroughCache_CancelledCallerKeepsSharedLoad(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []candidate]("residents", DefaultExpiration, DefaultCleanupInterval)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	rt := NewReadThroughCache[string, []candidate, string](
		cache,
		func(ctx context.Context, q string) ([]candidate, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return []candidate{{ID: q}}, nil
		},
		time.Minute,
	)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := rt.Get(ctxA, "juan", "juan")
		errA <- err
	}()
	<-started

	type result struct {
		got []candidate
		err error
	}
	resB := make(chan result, 1)
	go func() {
		got, err := rt.Get(context.Background(), "juan", "juan")
		resB <- result{got, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	require.Equal(t, []candidate{{ID: "juan"}}, b.got)
	require.Equal(t, int32(1), calls.Load())

	got, ok := cache.Get(context.Background(), "juan")
	require.True(t, ok, "the load finishes and is cached after the first caller left")
	require.Equal(t, []candidate{{ID: "juan"}}, got)
}

func TestReadThroughCache_RecordsCacheHit(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	provider := tracing.NewProviderWith("test", sdktrace.WithSpanProcessor(rec))
	cache := NewInMemoryCacheManager[string, []candidate]("residents", DefaultExpiration, DefaultCleanupInterval)
	rt := NewReadThroughCache[string, []candidate, string](
		cache,
		func(ctx context.Context, q string) ([]candidate, error) {
			return []candidate{{ID: q}}, nil
		},
		time.Minute,
	)

	for range 2 {
		ctx, span := provider.Tracer().Start(context.Background(), "search")
		_, err := rt.Get(ctx, "ana", "ana")
		require.NoError(t, err)
		span.End()
	}

	spans := rec.Ended()
	require.Len(t, spans, 2)
	require.Contains(t, spans[0].Attributes(), attribute.Bool(tracing.AttrCacheHit, false))
	require.Contains(t, spans[1].Attributes(), attribute.Bool(tracing.AttrCacheHit, true))
}

func TestReadThroughCache_Invalidate(t *testing.T) {
	cache := NewInMemoryCacheManager[string, []candidate]("residents", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	rt := NewReadThroughCache[string, []candidate, string](
		cache,
		func(ctx context.Context, q string) ([]candidate, error) {
			calls++
			return []candidate{{ID: q}}, nil
		},
		time.Minute,
	)

	_, _ = rt.Get(context.Background(), "a", "a")
	_, _ = rt.Get(context.Background(), "a", "a")
	require.Equal(t, 1, calls)

	require.NoError(t, rt.Invalidate(context.Background()))
	_, _ = rt.Get(context.Background(), "a", "a")
	require.Equal(t, 2, calls)
}
