package device_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hoard/internal/adapters/device"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newPlacement(t *testing.T, mode domain.Device) *device.Placement {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	p, err := device.New(mode, log)
	require.NoError(t, err)
	return p
}

func key(t *testing.T, name string) domain.CanonicalKey {
	t.Helper()
	k, err := domain.Resolve(name, "sd-1", "main", "")
	require.NoError(t, err)
	return k
}

func TestNew_InvalidDevice(t *testing.T) {
	_, err := device.New("tpu", nil)
	require.ErrorIs(t, err, domain.ErrInvalidDevice)
}

func TestPlacement_Accelerator(t *testing.T) {
	p := newPlacement(t, domain.DeviceAccelerator)
	ctx := t.Context()
	a, b := key(t, "a"), key(t, "b")

	require.NoError(t, p.Promote(ctx, a, domain.Artifact{Size: 10}))
	require.NoError(t, p.Promote(ctx, b, domain.Artifact{Size: 5}))
	require.NoError(t, p.Promote(ctx, a, domain.Artifact{Size: 10}), "promoting twice is a no-op")

	current, peak := p.AcceleratorBytes()
	assert.Equal(t, int64(15), current)
	assert.Equal(t, int64(15), peak)
	assert.Equal(t, device.LocationAccelerator, p.Where(a))

	require.NoError(t, p.Demote(ctx, a, domain.Artifact{Size: 10}))
	assert.Equal(t, device.LocationHost, p.Where(a))

	p.Free(ctx, b, domain.Artifact{Size: 5})
	current, peak = p.AcceleratorBytes()
	assert.Equal(t, int64(0), current)
	assert.Equal(t, int64(15), peak)
}

func TestPlacement_Host(t *testing.T) {
	p := newPlacement(t, domain.DeviceHost)
	ctx := t.Context()
	a := key(t, "a")

	require.NoError(t, p.Promote(ctx, a, domain.Artifact{Size: 10}))
	assert.Equal(t, device.LocationHost, p.Where(a))
	current, _ := p.AcceleratorBytes()
	assert.Equal(t, int64(0), current)

	require.NoError(t, p.Demote(ctx, a, domain.Artifact{Size: 10}))
	assert.Equal(t, domain.DeviceHost, p.Mode())
}

func TestPlacement_DemoteUnknown(t *testing.T) {
	p := newPlacement(t, domain.DeviceAccelerator)
	err := p.Demote(t.Context(), key(t, "a"), domain.Artifact{})
	require.ErrorContains(t, err, "not on the accelerator")
}

func TestPlacement_Canceled(t *testing.T) {
	p := newPlacement(t, domain.DeviceAccelerator)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, p.Promote(ctx, key(t, "a"), domain.Artifact{Size: 1}), context.Canceled)
	current, _ := p.AcceleratorBytes()
	assert.Equal(t, int64(0), current)
	require.ErrorIs(t, p.Demote(ctx, key(t, "a"), domain.Artifact{}), context.Canceled)
}

func TestPlacement_Generations(t *testing.T) {
	p := newPlacement(t, domain.DeviceAccelerator)
	ctx := t.Context()
	a := key(t, "a")
	old := domain.Artifact{Size: 10, Digest: 1}
	fresh := domain.Artifact{Size: 4, Digest: 2}

	require.NoError(t, p.Promote(ctx, a, old))
	require.NoError(t, p.Promote(ctx, a, fresh))
	current, _ := p.AcceleratorBytes()
	assert.Equal(t, int64(14), current)

	p.Free(ctx, a, old)
	current, _ = p.AcceleratorBytes()
	assert.Equal(t, int64(4), current)
	assert.Equal(t, device.LocationAccelerator, p.Where(a), "freeing the retired artifact keeps the new one placed")

	require.Error(t, p.Demote(ctx, a, old))
	require.NoError(t, p.Demote(ctx, a, fresh))
	assert.Equal(t, device.LocationHost, p.Where(a))
}
