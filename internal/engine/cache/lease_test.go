package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports/mocks"
	"go.trai.ch/hoard/internal/engine/cache"
	"go.uber.org/mock/gomock"
)

func TestLease_AcquirePromotesOnce(t *testing.T) {
	s, dev := newStore(t, cache.Options{Budget: 100})
	ctx := t.Context()
	load, calls := countingLoad(10)

	first, err := s.Acquire(ctx, key("a"), load)
	require.NoError(t, err)
	second, err := s.Acquire(ctx, key("a"), load)
	require.NoError(t, err)

	promotes, _ := dev.Counts()
	assert.Equal(t, 1, promotes)
	assert.Equal(t, int32(1), calls.Load())

	state := s.States()[key("a")]
	assert.Equal(t, 2, state.Refs)
	assert.Equal(t, domain.TierActive, state.Tier)

	h1, err := first.Artifact()
	require.NoError(t, err)
	h2, err := second.Artifact()
	require.NoError(t, err)
	assert.Same(t, h1, h2, "concurrent leases share one handle")

	require.NoError(t, first.Release(ctx))
	require.NoError(t, second.Release(ctx))
	assert.Equal(t, 0, s.States()[key("a")].Refs)
}

func TestLease_KeepResidentPolicy(t *testing.T) {
	s, dev := newStore(t, cache.Options{Budget: 100})
	ctx := t.Context()
	load, calls := countingLoad(10)

	lease, err := s.Acquire(ctx, key("a"), load)
	require.NoError(t, err)
	before, err := cache.As[*handle](lease)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))

	assert.Equal(t, domain.TierActive, s.States()[key("a")].Tier)

	lease, err = s.Acquire(ctx, key("a"), load)
	require.NoError(t, err)
	after, err := cache.As[*handle](lease)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))

	assert.Same(t, before, after)
	assert.Equal(t, int32(1), calls.Load())
	promotes, demotes := dev.Counts()
	assert.Equal(t, 1, promotes)
	assert.Equal(t, 0, demotes)
}

func TestLease_SequentialOffloadPolicy(t *testing.T) {
	s, dev := newStore(t, cache.Options{Budget: 100, SequentialOffload: true})
	ctx := t.Context()
	load, calls := countingLoad(10)

	lease, err := s.Acquire(ctx, key("a"), load)
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.Stats().ActiveBytes)
	before, err := lease.Artifact()
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))

	assert.Equal(t, domain.TierStaged, s.States()[key("a")].Tier)
	assert.Equal(t, int64(0), s.Stats().ActiveBytes)

	lease, err = s.Acquire(ctx, key("a"), load)
	require.NoError(t, err)
	after, err := lease.Artifact()
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))

	assert.Same(t, before, after)
	assert.Equal(t, int32(1), calls.Load())
	promotes, demotes := dev.Counts()
	assert.Equal(t, 2, promotes)
	assert.Equal(t, 2, demotes)
}

func TestLease_ReleaseErrors(t *testing.T) {
	s, _ := newStore(t, cache.Options{Budget: 100})
	ctx := t.Context()

	lease, err := s.Acquire(ctx, key("a"), sized(1))
	require.NoError(t, err)
	assert.Equal(t, key("a"), lease.Key())
	assert.Equal(t, int64(1), lease.Size())

	require.NoError(t, lease.Release(ctx))

	_, err = lease.Artifact()
	require.ErrorIs(t, err, domain.ErrUseAfterRelease)

	_, err = cache.As[*handle](lease)
	require.ErrorIs(t, err, domain.ErrUseAfterRelease)

	err = lease.Release(ctx)
	require.ErrorIs(t, err, domain.ErrDoubleRelease)
	assert.Equal(t, 0, s.States()[key("a")].Refs, "double release must not underflow the refcount")
}

func TestLease_AsWrongType(t *testing.T) {
	s, _ := newStore(t, cache.Options{Budget: 100})
	lease, err := s.Acquire(t.Context(), key("a"), sized(1))
	require.NoError(t, err)
	defer func() { _ = lease.Release(t.Context()) }()

	_, err = cache.As[string](lease)
	require.ErrorContains(t, err, "unexpected artifact handle type")
}

func TestLease_PromoteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := mocks.NewMockDevice(ctrl)
	s := cache.NewStore(cache.Options{Budget: 100}, dev, quietLogger(ctrl), nil)
	ctx := t.Context()
	oom := errors.New("accelerator out of memory")

	dev.EXPECT().Promote(gomock.Any(), key("a"), gomock.Any()).Return(oom)

	_, err := s.Acquire(ctx, key("a"), sized(8))
	require.ErrorIs(t, err, domain.ErrTierMoveFailed)
	require.ErrorIs(t, err, oom)

	state := s.States()[key("a")]
	assert.Equal(t, 0, state.Refs)
	assert.Equal(t, 0, state.Pins)
	assert.Equal(t, domain.TierStaged, state.Tier)

	// Still evictable after a failed promotion.
	dev.EXPECT().Free(gomock.Any(), key("a"), gomock.Any())
	require.NoError(t, s.Invalidate(ctx, key("a")))
}

func TestLease_DeviceCallOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := mocks.NewMockDevice(ctrl)
	s := cache.NewStore(cache.Options{Budget: 100, SequentialOffload: true}, dev, quietLogger(ctrl), nil)
	ctx := t.Context()

	gomock.InOrder(
		dev.EXPECT().Promote(gomock.Any(), key("a"), gomock.Any()).Return(nil),
		dev.EXPECT().Demote(gomock.Any(), key("a"), gomock.Any()).Return(nil),
	)

	lease, err := s.Acquire(ctx, key("a"), sized(3))
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestLease_DemoteFailureStillReleases(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := mocks.NewMockDevice(ctrl)
	s := cache.NewStore(cache.Options{Budget: 100, SequentialOffload: true}, dev, quietLogger(ctrl), nil)
	ctx := t.Context()

	dev.EXPECT().Promote(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	dev.EXPECT().Demote(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("bus error"))

	lease, err := s.Acquire(ctx, key("a"), sized(3))
	require.NoError(t, err)

	err = lease.Release(ctx)
	require.ErrorIs(t, err, domain.ErrTierMoveFailed)

	state := s.States()[key("a")]
	assert.Equal(t, 0, state.Refs)
	assert.Equal(t, 0, state.Pins)
	assert.Equal(t, domain.TierActive, state.Tier)
}

func TestStore_With(t *testing.T) {
	ctx := context.Background()

	t.Run("releases after success", func(t *testing.T) {
		s, _ := newStore(t, cache.Options{Budget: 100})
		var seen *handle
		err := s.With(ctx, key("a"), sized(2), func(_ context.Context, l *cache.Lease) error {
			h, err := cache.As[*handle](l)
			seen = h
			return err
		})
		require.NoError(t, err)
		assert.NotNil(t, seen)
		assert.Equal(t, 0, s.States()[key("a")].Refs)
	})

	t.Run("releases after error", func(t *testing.T) {
		s, _ := newStore(t, cache.Options{Budget: 100})
		boom := errors.New("pipeline failed")
		err := s.With(ctx, key("a"), sized(2), func(context.Context, *cache.Lease) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, s.States()[key("a")].Refs)
	})

	t.Run("releases after panic", func(t *testing.T) {
		s, _ := newStore(t, cache.Options{Budget: 100})
		assert.PanicsWithValue(t, "kaboom", func() {
			_ = s.With(ctx, key("a"), sized(2), func(context.Context, *cache.Lease) error {
				panic("kaboom")
			})
		})
		assert.Equal(t, 0, s.States()[key("a")].Refs)
	})

	t.Run("does not run fn when acquire fails", func(t *testing.T) {
		s, _ := newStore(t, cache.Options{Budget: 100})
		failing := func(context.Context) (domain.Artifact, error) {
			return domain.Artifact{}, domain.ErrCorruptArtifact
		}
		err := s.With(ctx, key("a"), failing, func(context.Context, *cache.Lease) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.ErrorIs(t, err, domain.ErrLoadFailed)
	})
}
