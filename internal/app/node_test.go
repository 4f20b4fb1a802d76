package app_test

import (
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/require"
	"go.trai.ch/hoard/internal/app"
	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports/mocks"
	_ "go.trai.ch/hoard/internal/wiring"
	"go.uber.org/mock/gomock"
)

func TestComponents_Graph(t *testing.T) {
	components, _, err := graft.ExecuteFor[*app.Components](t.Context())
	require.NoError(t, err)
	require.NotNil(t, components)
	require.NotNil(t, components.App)
	require.NotNil(t, components.Logger)
}

func TestApp_Configure(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	configLoader := mocks.NewMockConfigLoader(ctrl)

	a := app.New(configLoader, nil, nil, nil, nil, nil, nil, log)

	log.EXPECT().SetVerbose(true)
	log.EXPECT().SetJSON(true)
	a.Configure(app.GlobalOptions{ConfigPath: "/etc/hoard.yaml", Verbose: true, JSON: true})

	configLoader.EXPECT().Load("/etc/hoard.yaml").Return(domain.Settings{}, domain.ErrConfigParseFailed)
	err := a.List(t.Context(), app.ListOptions{})
	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
	require.ErrorContains(t, err, "failed to load configuration")
}
