package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/hoard/internal/app"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newComponents(t *testing.T) (*app.Components, *mocks.MockConfigLoader, *mocks.MockLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	configLoader := mocks.NewMockConfigLoader(ctrl)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().SetVerbose(gomock.Any()).AnyTimes()
	log.EXPECT().SetJSON(gomock.Any()).AnyTimes()

	application := app.New(configLoader, nil, nil, nil, nil, nil, nil, log)
	return &app.Components{App: application, Logger: log}, configLoader, log
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	components, _, _ := newComponents(t)
	provider := func(context.Context) (*app.Components, error) { return components, nil }

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stdout, stderr, provider)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "hoard version")
	assert.Empty(t, stderr.String())
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(context.Context) (*app.Components, error) {
		return nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run returns 1 and logs when the command fails.
func TestRun_ExecutionError(t *testing.T) {
	components, configLoader, log := newComponents(t)
	provider := func(context.Context) (*app.Components, error) { return components, nil }

	configLoader.EXPECT().Load("broken.yaml").Return(domain.Settings{}, domain.ErrConfigParseFailed)
	log.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigParseFailed)
	})

	exitCode := run(context.Background(), []string{"--config", "broken.yaml", "list"}, new(bytes.Buffer), new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}
