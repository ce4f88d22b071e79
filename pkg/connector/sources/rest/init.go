package rest

import (
	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
)

func init() {
	// "odata" and "paged" preselect the paging style; "rest" uses the config as given
	_ = registry.RegisterSource("rest", newHTTPSource, core.ConnectorMetadata{
		Name:         "rest",
		Type:         core.ConnectorTypeSource,
		Version:      sourceVersion,
		Description:  "Paginated REST API source (OData or page-number paging)",
		Capabilities: []string{"pagination", "record_cap", "bearer_auth", "basic_auth"},
	})
	_ = registry.RegisterSource("odata", withStyle(config.PaginationOData), core.ConnectorMetadata{
		Name:         "odata",
		Type:         core.ConnectorTypeSource,
		Version:      sourceVersion,
		Description:  "OData service source using $top/$skip paging",
		Capabilities: []string{"pagination", "record_cap", "filter", "expand"},
	})
	_ = registry.RegisterSource("paged", withStyle(config.PaginationPageNumber), core.ConnectorMetadata{
		Name:         "paged",
		Type:         core.ConnectorTypeSource,
		Version:      sourceVersion,
		Description:  "REST source using page/page_size paging",
		Capabilities: []string{"pagination", "record_cap"},
	})
}

func withStyle(style string) registry.SourceFactory {
	return func(cfg *config.BaseConfig) (core.Source, error) {
		if cfg == nil {
			return newHTTPSource(nil)
		}
		styled := *cfg
		styled.Paging.Style = style
		return newHTTPSource(&styled)
	}
}
