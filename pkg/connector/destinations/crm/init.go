package crm

import (
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
)

func init() {
	_ = registry.RegisterDestination("crm", newHTTPDestination, core.ConnectorMetadata{
		Name:         "crm",
		Type:         core.ConnectorTypeDestination,
		Version:      destinationVersion,
		Description:  "CRM object store destination with create-or-update writes",
		Capabilities: []string{"upsert", "search_identity", "direct_id_identity", "alias_resolution"},
	})
}
