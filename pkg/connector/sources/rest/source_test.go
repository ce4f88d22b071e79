package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/testutil"
)

func testSourceConfig() *config.BaseConfig {
	cfg := config.NewBaseConfig("orders", "rest")
	cfg.Endpoint.BaseURL = "https://erp.example.com/odata"
	cfg.Endpoint.Path = "Orders"
	cfg.Endpoint.Headers["X-Tenant"] = "acme"
	cfg.Paging.PageSize = 2
	cfg.Security.Credentials["token"] = "secret"
	return cfg
}

func TestNewSourceValidatesConfig(t *testing.T) {
	transport := testutil.NewFakeTransport()

	_, err := NewSource(nil, transport)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	cfg := testSourceConfig()
	cfg.Paging.PageSize = 0
	_, err = NewSource(cfg, transport)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewSource(testSourceConfig(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSourceReadsAllPages(t *testing.T) {
	ctx := testutil.TestContext(t)
	transport := testutil.NewFakeTransport().Handle(odataServer(5))

	src, err := NewSource(testSourceConfig(), transport)
	require.NoError(t, err)
	src.SetLogger(testutil.TestLogger(t))

	_, _, err = src.Next(ctx)
	require.Error(t, err, "next before open")

	require.NoError(t, src.Open(ctx))
	var records []core.RawRecord
	for rec, err := range src.Records(ctx) {
		require.NoError(t, err)
		records = append(records, rec)
	}
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, ids(records))

	calls := transport.Calls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Equal(t, "Bearer secret", call.Headers["Authorization"])
		assert.Equal(t, "acme", call.Headers["X-Tenant"])
		assert.Equal(t, "application/json", call.Headers["Accept"])
	}

	m := src.Metrics()
	assert.Equal(t, int64(5), m["records_read"])
	assert.Equal(t, int64(3), m["pages_fetched"])
	assert.Equal(t, "orders", m["name"])
	assert.Equal(t, true, m["open"])

	require.NoError(t, src.Close(ctx))
	require.NoError(t, src.Close(ctx))
	assert.False(t, src.IsOpen())
}

func TestSourceMaxRecords(t *testing.T) {
	ctx := testutil.TestContext(t)
	transport := testutil.NewFakeTransport().Handle(odataServer(50))
	cfg := testSourceConfig()
	cfg.Paging.MaxRecords = 3

	src, err := NewSource(cfg, transport)
	require.NoError(t, err)
	require.NoError(t, src.Open(ctx))

	n := 0
	for _, err := range src.Records(ctx) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, transport.Count("GET"))
}

func TestSourceCountsFetchErrors(t *testing.T) {
	ctx := testutil.TestContext(t)
	transport := testutil.NewFakeTransport()

	src, err := NewSource(testSourceConfig(), transport)
	require.NoError(t, err)
	require.NoError(t, src.Open(ctx))

	_, ok, err := src.Next(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteFetch))
	assert.Equal(t, int64(1), src.Collector().Get("fetch_errors"))
}

func TestSourceRejectsBadAuthAtOpen(t *testing.T) {
	cfg := testSourceConfig()
	cfg.Security.AuthType = "basic"
	cfg.Security.Credentials = map[string]string{}

	src, err := NewSource(cfg, testutil.NewFakeTransport())
	require.NoError(t, err)
	err = src.Open(testutil.TestContext(t))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.False(t, src.IsOpen())
}

func TestNewCursorSelectsStyle(t *testing.T) {
	cfg := testSourceConfig()
	assert.IsType(t, &ODataCursor{}, NewCursor(cfg))

	cfg.Paging.Style = config.PaginationPageNumber
	assert.IsType(t, &PageNumberCursor{}, NewCursor(cfg))
}

func TestSourcesRegistered(t *testing.T) {
	for _, name := range []string{"rest", "odata", "paged"} {
		assert.True(t, registry.GetRegistry().HasSource(name), name)
	}

	cfg := testSourceConfig()
	cfg.Paging.Style = config.PaginationOData
	src, err := registry.CreateSource("paged", cfg)
	require.NoError(t, err)
	assert.Equal(t, config.PaginationOData, cfg.Paging.Style, "factory must not mutate the caller's config")
	assert.IsType(t, &PageNumberCursor{}, src.(*Source).cursor)
	require.NoError(t, src.Close(testutil.TestContext(t)))
}
