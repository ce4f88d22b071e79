package registry

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
)

type stubSource struct{ name string }

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Open(context.Context) error { return nil }
func (s *stubSource) Close(context.Context) error { return nil }
func (s *stubSource) Metrics() map[string]interface{} { return nil }
func (s *stubSource) Next(context.Context) (core.RawRecord, bool, error) {
	return nil, false, nil
}

func TestRegisterAndCreateSource(t *testing.T) {
	r := NewRegistry()
	factory := func(cfg *config.BaseConfig) (core.Source, error) {
		return &stubSource{name: cfg.Name}, nil
	}

	require.NoError(t, r.RegisterSource("stub", factory, core.ConnectorMetadata{Description: "stub source"}))
	err := r.RegisterSource("stub", factory, core.ConnectorMetadata{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	src, err := r.CreateSource("stub", config.NewBaseConfig("orders", "stub"))
	require.NoError(t, err)
	assert.Equal(t, "orders", src.Name())
	assert.True(t, r.HasSource("stub"))
	assert.False(t, r.HasDestination("stub"))

	catalog := r.Catalog()
	require.Len(t, catalog, 1)
	assert.Equal(t, "stub", catalog[0].Name)
	assert.Equal(t, core.ConnectorTypeSource, catalog[0].Type)
}

func TestCreateUnknownAndFailingFactory(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateSource("missing", config.NewBaseConfig("x", "missing"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = r.CreateDestination("missing", config.NewBaseConfig("x", "missing"))
	require.Error(t, err)

	boom := stderrors.New("boom")
	require.NoError(t, r.RegisterDestination("broken", func(*config.BaseConfig) (core.Destination, error) {
		return nil, boom
	}, core.ConnectorMetadata{}))
	_, err = r.CreateDestination("broken", config.NewBaseConfig("x", "broken"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestListsAreSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, r.RegisterSource(name, func(*config.BaseConfig) (core.Source, error) {
			return &stubSource{}, nil
		}, core.ConnectorMetadata{}))
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.ListSources())
	assert.Empty(t, r.ListDestinations())
}
