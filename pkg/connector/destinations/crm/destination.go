// Package crm implements a CRM destination that writes arbitrarily shaped
// records as idempotent create-or-update operations. Input keys are mapped
// onto the entity's canonical properties, the remote record is located by a
// unique property search or by the record's own id, and each record causes
// at most one remote write.
package crm

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-crm/pkg/clients"
	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/base"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/logger"
)

const destinationVersion = "1.0.0"

var _ core.Destination = (*Destination)(nil)

// Destination is the CRM destination connector.
type Destination struct {
	*base.BaseConnector

	transport     core.Transport
	ownsTransport bool
	writer        *Writer
}

// NewDestination creates a destination writing through transport.
func NewDestination(cfg *config.BaseConfig, transport core.Transport, opts ...WriterOption) (*Destination, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	d := &Destination{
		BaseConnector: base.NewBaseConnector(cfg.Name, core.ConnectorTypeDestination, destinationVersion, cfg),
		transport:     transport,
	}

	opts = append([]WriterOption{WithWriterLogger(d.GetLogger())}, opts...)
	w, err := NewWriter(cfg, transport, opts...)
	if err != nil {
		return nil, err
	}
	d.writer = w
	return d, nil
}

func newHTTPDestination(cfg *config.BaseConfig) (core.Destination, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	client := clients.NewHTTPClient(clients.HTTPConfigFromBase(cfg), logger.Get())
	d, err := NewDestination(cfg, client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	d.ownsTransport = true
	return d, nil
}

// SetLogger replaces the connector and writer loggers.
func (d *Destination) SetLogger(l *zap.Logger) {
	d.BaseConnector.SetLogger(l)
	d.writer.logger = d.GetLogger()
}

// SetProgress registers the progress callback.
func (d *Destination) SetProgress(fn core.ProgressFunc) {
	d.writer.SetProgress(fn)
}

// Writer exposes the underlying writer.
func (d *Destination) Writer() *Writer { return d.writer }

// Open starts a write session.
func (d *Destination) Open(ctx context.Context) error {
	if err := d.writer.Open(ctx); err != nil {
		return err
	}
	d.MarkOpened()

	fields := []zap.Field{zap.String("entity", d.Config().Endpoint.Entity)}
	switch id := d.writer.Identity().(type) {
	case *SearchIdentity:
		fields = append(fields, zap.String("strategy", config.StrategySearch), zap.String("unique_property", id.Property()))
	case *DirectIDIdentity:
		fields = append(fields, zap.String("strategy", config.StrategyDirectID), zap.String("id_property", id.IDProperty()))
	}
	d.LoggerFor(ctx).Info("destination opened", fields...)
	return nil
}

// Write creates or updates one record.
func (d *Destination) Write(ctx context.Context, record interface{}) (core.WriteOutcome, error) {
	outcome, err := d.writer.WriteRecord(ctx, record)
	if err != nil {
		d.Collector().Inc("failed", 1)
		return "", err
	}
	d.Collector().Inc(string(outcome), 1)
	return outcome, nil
}

// Close ends the write session.
func (d *Destination) Close(ctx context.Context) error {
	if d.MarkClosed() {
		c := d.Collector()
		d.LoggerFor(ctx).Info("destination closed",
			zap.Int64("created", c.Get(string(core.OutcomeCreated))),
			zap.Int64("updated", c.Get(string(core.OutcomeUpdated))),
			zap.Int64("skipped", c.Get(string(core.OutcomeSkipped))),
			zap.Int64("failed", c.Get("failed")))
	}
	d.writer.Close()
	if d.ownsTransport {
		if c, ok := d.transport.(io.Closer); ok {
			return c.Close()
		}
	}
	return nil
}

// Metrics adds the written count to the base snapshot.
func (d *Destination) Metrics() map[string]interface{} {
	m := d.BaseConnector.Metrics()
	m["entity"] = d.Config().Endpoint.Entity
	m["written"] = d.writer.Written()
	return m
}
