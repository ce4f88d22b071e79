package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
	"github.com/ajitpratap0/nebula-crm/pkg/testutil"

	_ "github.com/ajitpratap0/nebula-crm/pkg/connector/destinations/crm"
	_ "github.com/ajitpratap0/nebula-crm/pkg/connector/sources/rest"
)

type SyncIntegrationSuite struct {
	testutil.IntegrationTestSuite
}

func TestSyncIntegration(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(SyncIntegrationSuite))
}

func (s *SyncIntegrationSuite) sourceConfig(connector, path string, pageSize int) *config.BaseConfig {
	cfg := config.NewBaseConfig("erp-contacts", connector)
	cfg.Endpoint.BaseURL = s.API.URL()
	cfg.Endpoint.Path = path
	cfg.Paging.PageSize = pageSize
	cfg.Paging.VendorParams = map[string]string{}
	return cfg
}

func (s *SyncIntegrationSuite) destinationConfig(strategy string) *config.BaseConfig {
	cfg := config.NewBaseConfig("crm-contacts", "crm")
	cfg.Endpoint.BaseURL = s.API.URL() + "/crm/v3"
	cfg.Endpoint.Entity = "contacts"
	cfg.Upsert.Strategy = strategy
	cfg.Security.Credentials["token"] = "pat-test"
	return cfg
}

func (s *SyncIntegrationSuite) connectors(src, dst *config.BaseConfig) (core.Source, core.Destination) {
	source, err := registry.CreateSource(src.Type, src)
	s.Require().NoError(err)
	destination, err := registry.CreateDestination(dst.Type, dst)
	s.Require().NoError(err)
	return source, destination
}

func (s *SyncIntegrationSuite) TestODataToCRMIsIdempotent() {
	s.API.SetCollection("Contacts", testutil.ContactRows(5))
	s.API.PutObject("contacts", "1", map[string]interface{}{"email": "contact2@example.com", "firstname": "Old"})

	for run := 0; run < 2; run++ {
		source, destination := s.connectors(
			s.sourceConfig("odata", "odata/Contacts", 2),
			s.destinationConfig(config.StrategySearch))

		p := NewSyncPipeline(source, destination, nil, testutil.TestLogger(s.T()))
		s.Require().NoError(p.Run(s.Context()))

		m := p.Metrics()
		s.Equal(int64(5), m["read"])
		if run == 0 {
			s.Equal(int64(4), m["created"])
			s.Equal(int64(1), m["updated"])
		} else {
			s.Equal(int64(0), m["created"])
			s.Equal(int64(5), m["updated"])
		}
	}

	objects := s.API.Objects("contacts")
	s.Len(objects, 5)
	s.Equal("First2", objects["1"]["firstname"])
	for _, props := range objects {
		s.NotContains(props, "__metadata")
		s.NotContains(props, "phone")
	}
	s.Equal(3*2, s.API.CountRequests("GET", "/odata/Contacts"))
}

func (s *SyncIntegrationSuite) TestPagedSourceContinuesPastRejectedWrites() {
	s.API.SetCollection("contacts", testutil.ContactRows(7))
	s.API.FailWritesWithValue("contact3@example.com", 400)

	source, destination := s.connectors(
		s.sourceConfig("paged", "api/contacts", 3),
		s.destinationConfig(config.StrategySearch))

	p := NewSyncPipeline(source, destination, nil, testutil.TestLogger(s.T()))
	s.Require().NoError(p.Run(s.Context()))

	m := p.Metrics()
	s.Equal(int64(7), m["read"])
	s.Equal(int64(6), m["created"])
	s.Equal(int64(1), m["failed"])
	s.Len(s.API.Objects("contacts"), 6)
	s.Equal(3, s.API.CountRequests("GET", "/api/contacts"))
}

func (s *SyncIntegrationSuite) TestFailFastStopsRun() {
	s.API.SetCollection("Contacts", testutil.ContactRows(4))
	s.API.FailWritesWithValue("contact1@example.com", 422)

	source, destination := s.connectors(
		s.sourceConfig("odata", "odata/Contacts", 10),
		s.destinationConfig(config.StrategySearch))

	p := NewSyncPipeline(source, destination, &SyncConfig{FailFast: true}, testutil.TestLogger(s.T()))
	s.Error(p.Run(s.Context()))
	s.Len(s.API.Objects("contacts"), 1)
}

func (s *SyncIntegrationSuite) TestExtractWithCap() {
	s.API.SetCollection("Contacts", testutil.ContactRows(9))

	cfg := s.sourceConfig("odata", "odata/Contacts", 4)
	cfg.Paging.MaxRecords = 5
	source, err := registry.CreateSource(cfg.Type, cfg)
	s.Require().NoError(err)

	var buf bytes.Buffer
	lines := jsonpool.NewLinesWriter(&buf)
	n, err := Extract(s.Context(), source, lines, testutil.TestLogger(s.T()))
	s.Require().NoError(err)
	s.Equal(int64(5), n)
	s.Equal(5, lines.Count())
	s.Equal(5, bytes.Count(buf.Bytes(), []byte("\n")))
	s.Equal(2, s.API.CountRequests("GET", "/odata/Contacts"))
}
