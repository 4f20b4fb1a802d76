package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/hoard/internal/adapters/watcher"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/hoard/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestWatcher_ReportsChanges(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sd-1", "main")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	w, err := watcher.NewWatcher(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	require.NoError(t, w.Start(ctx, root))

	target := filepath.Join(sub, "base.safetensors")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	found := make(chan ports.WatchEvent, 1)
	go func() {
		for event := range w.Events() {
			if event.Path == target {
				found <- event
				return
			}
		}
	}()

	select {
	case event := <-found:
		require.Contains(t, []ports.WatchOp{ports.OpCreate, ports.OpWrite}, event.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for a file created in a nested directory")
	}
}
