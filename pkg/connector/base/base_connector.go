// Package base provides the BaseConnector embedded by nebula-crm connectors.
// It carries identity, configuration, the component logger and a metrics
// collector, and guards the open/closed lifecycle.
//
// # Usage
//
//	type MySource struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
//
//	func NewMySource(cfg *config.BaseConfig) *MySource {
//	    return &MySource{
//	        BaseConnector: base.NewBaseConnector(cfg.Name, core.ConnectorTypeSource, "1.0.0", cfg),
//	    }
//	}
package base

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/logger"
	"github.com/ajitpratap0/nebula-crm/pkg/metrics"
)

// BaseConnector holds what every connector shares.
type BaseConnector struct {
	name          string
	connectorType core.ConnectorType
	version       string
	config        *config.BaseConfig
	logger        *zap.Logger
	collector     *metrics.Collector

	mu     sync.Mutex
	opened bool
}

// NewBaseConnector creates a base connector for cfg.
func NewBaseConnector(name string, connectorType core.ConnectorType, version string, cfg *config.BaseConfig) *BaseConnector {
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		version:       version,
		config:        cfg,
		logger: logger.Get().With(
			zap.String("connector", name),
			zap.String("connector_type", string(connectorType))),
		collector: metrics.NewCollector(name),
	}
}

// Name returns the connector name
func (bc *BaseConnector) Name() string { return bc.name }

// Type returns the connector type
func (bc *BaseConnector) Type() core.ConnectorType { return bc.connectorType }

// Version returns the connector version
func (bc *BaseConnector) Version() string { return bc.version }

// Config returns the connector configuration
func (bc *BaseConnector) Config() *config.BaseConfig { return bc.config }

// GetLogger returns the connector's logger
func (bc *BaseConnector) GetLogger() *zap.Logger { return bc.logger }

// SetLogger replaces the connector's logger, e.g. with a test logger.
func (bc *BaseConnector) SetLogger(l *zap.Logger) {
	if l != nil {
		bc.logger = l.With(zap.String("connector", bc.name))
	}
}

// LoggerFor returns the connector logger decorated with ctx's run fields.
func (bc *BaseConnector) LoggerFor(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, bc.logger)
}

// Collector returns the connector's metrics collector
func (bc *BaseConnector) Collector() *metrics.Collector { return bc.collector }

// MarkOpened records that Open succeeded.
func (bc *BaseConnector) MarkOpened() {
	bc.mu.Lock()
	bc.opened = true
	bc.mu.Unlock()
}

// MarkClosed records that Close ran and reports whether the connector had
// been open.
func (bc *BaseConnector) MarkClosed() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	was := bc.opened
	bc.opened = false
	return was
}

// IsOpen reports whether the connector is between Open and Close.
func (bc *BaseConnector) IsOpen() bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.opened
}

// Metrics returns the collector snapshot with connector identity.
func (bc *BaseConnector) Metrics() map[string]interface{} {
	m := bc.collector.GetAll()
	m["name"] = bc.name
	m["type"] = string(bc.connectorType)
	m["version"] = bc.version
	m["open"] = bc.IsOpen()
	return m
}
