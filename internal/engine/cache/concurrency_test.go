package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/engine/cache"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"
)

func TestStore_SlowLoadDoesNotBlockOtherKeys(t *testing.T) {
	s, _ := newStore(t, cache.Options{Budget: 100})
	ctx := t.Context()

	started := make(chan struct{})
	unblock := make(chan struct{})
	slow := func(context.Context) (domain.Artifact, error) {
		close(started)
		<-unblock
		return domain.Artifact{Handle: &handle{}, Size: 10}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.GetOrLoad(ctx, key("slow"), slow)
		done <- err
	}()
	<-started

	fast := make(chan error, 1)
	go func() {
		lease, err := s.Acquire(ctx, key("fast"), sized(1))
		if err == nil {
			err = lease.Release(ctx)
		}
		fast <- err
	}()

	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acquire of an unrelated key waited on a slow load")
	}

	// Snapshot and Stats stay available during the load too.
	assert.Len(t, s.Snapshot(), 1)
	assert.Equal(t, int64(1), s.Stats().ResidentBytes)

	close(unblock)
	require.NoError(t, <-done)
	assert.Len(t, s.Snapshot(), 2)
}

func TestStore_ConcurrentMissesLoadOnce(t *testing.T) {
	s, _ := newStore(t, cache.Options{Budget: 100})
	ctx := t.Context()

	var calls atomic.Int32
	gate := make(chan struct{})
	load := func(context.Context) (domain.Artifact, error) {
		calls.Add(1)
		<-gate
		return domain.Artifact{Handle: &handle{}, Size: 10}, nil
	}

	const callers = 16
	handles := make([]any, callers)
	var ready sync.WaitGroup
	ready.Add(callers)

	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			ready.Done()
			lease, err := s.Acquire(ctx, key("a"), load)
			if err != nil {
				return err
			}
			handles[i], err = lease.Artifact()
			if err != nil {
				return err
			}
			return lease.Release(ctx)
		})
	}
	ready.Wait()
	time.Sleep(10 * time.Millisecond)
	close(gate)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), calls.Load())
	for _, h := range handles[1:] {
		assert.Same(t, handles[0], h)
	}

	state := s.States()[key("a")]
	assert.Equal(t, 0, state.Refs)
	assert.Equal(t, 0, state.Pins)
}

func TestStore_ConcurrentFailureIsShared(t *testing.T) {
	s, _ := newStore(t, cache.Options{Budget: 100})
	ctx := t.Context()

	gate := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (domain.Artifact, error) {
		calls.Add(1)
		<-gate
		return domain.Artifact{}, domain.ErrStorageUnavailable
	}

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Go(func() {
			_, errs[i] = s.GetOrLoad(ctx, key("a"), load)
		})
	}
	time.Sleep(10 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, domain.ErrLoadFailed)
	}
	assert.LessOrEqual(t, calls.Load(), int32(callers))
	assert.Empty(t, s.Snapshot())
}

func TestStore_ConcurrentLeaseChurn(t *testing.T) {
	s, dev := newStore(t, cache.Options{Budget: 30, SequentialOffload: true})
	ctx := t.Context()
	names := []string{"a", "b", "c", "d", "e"}

	var g errgroup.Group
	for i := range 64 {
		name := names[i%len(names)]
		g.Go(func() error {
			return s.With(ctx, key(name), sized(10), func(context.Context, *cache.Lease) error {
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())

	for k, state := range s.States() {
		assert.Equal(t, 0, state.Refs, k.String())
		assert.Equal(t, 0, state.Pins, k.String())
		assert.Equal(t, domain.TierStaged, state.Tier, k.String())
	}

	s.EvictToBudget(ctx)
	assert.LessOrEqual(t, s.Stats().ResidentBytes, int64(30))

	promotes, demotes := dev.Counts()
	assert.Equal(t, promotes, demotes)
}

func TestManager_ConcurrentChangesFreeEveryLoad(t *testing.T) {
	f := newManager(t, cache.Options{Budget: 1 << 20})
	ctx := t.Context()
	k := key("a")
	f.register(k, domain.ArtifactConfig{Path: "/models/a.ckpt", Format: domain.FormatCheckpoint})

	var loads atomic.Int32
	f.loader.EXPECT().Load(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, domain.LoadRequest) (domain.Artifact, error) {
			loads.Add(1)
			return domain.Artifact{Handle: &handle{}, Size: 4}, nil
		}).AnyTimes()

	stop := make(chan struct{})
	changes := make(chan struct{})
	go func() {
		defer close(changes)
		for {
			select {
			case <-stop:
				return
			default:
				f.notify(k)
			}
		}
	}()

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 50 {
				lease, err := f.manager.Acquire(ctx, k)
				if err != nil {
					return err
				}
				if _, err := lease.Artifact(); err != nil {
					return err
				}
				if err := lease.Release(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(stop)
	<-changes

	f.notify(k)
	assert.Empty(t, f.manager.Snapshot())
	assert.Equal(t, int64(0), f.manager.Stats().ResidentBytes)
	assert.Len(t, f.device.Freed(), int(loads.Load()), "every loaded artifact is freed exactly once")
}
