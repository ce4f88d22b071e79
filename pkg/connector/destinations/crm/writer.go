package crm

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-crm/pkg/auth"
	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/metrics"
	"github.com/ajitpratap0/nebula-crm/pkg/observability"
	"github.com/ajitpratap0/nebula-crm/pkg/schema"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithProgress registers fn to receive the running count of successful
// writes.
func WithProgress(fn core.ProgressFunc) WriterOption {
	return func(w *Writer) { w.progress = fn }
}

// WithResolver replaces the built-in entity tables.
func WithResolver(r *schema.Resolver) WriterOption {
	return func(w *Writer) { w.resolver = r }
}

// WithIdentity replaces the identity resolver selected by the config.
func WithIdentity(id IdentityResolver) WriterOption {
	return func(w *Writer) { w.identity = id }
}

// WithWriterLogger sets the writer's logger.
func WithWriterLogger(l *zap.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// Writer performs create-or-update writes for one CRM entity. Each input
// record causes at most one create or update call.
type Writer struct {
	cfg        *config.BaseConfig
	session    *Session
	resolver   *schema.Resolver
	normalizer *Normalizer
	identity   IdentityResolver
	idProperty string
	progress   core.ProgressFunc
	logger     *zap.Logger

	opened  bool
	written int64
}

// NewWriter creates a writer for cfg.Endpoint.Entity. The identity
// strategy comes from cfg.Upsert unless WithIdentity overrides it.
func NewWriter(cfg *config.BaseConfig, transport core.Transport, opts ...WriterOption) (*Writer, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "configuration is required")
	}
	if err := cfg.ValidateDestination(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "transport is required")
	}

	w := &Writer{
		cfg: cfg,
		session: &Session{
			Transport: transport,
			BaseURL:   cfg.Endpoint.BaseURL,
			Entity:    cfg.Endpoint.Entity,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.resolver == nil {
		w.resolver = schema.NewResolver(nil)
	}
	w.normalizer = NewNormalizer(w.resolver)

	if w.identity == nil {
		id, err := w.identityFromConfig()
		if err != nil {
			return nil, err
		}
		w.identity = id
	}
	if d, ok := w.identity.(*DirectIDIdentity); ok {
		w.idProperty = d.IDProperty()
	}
	return w, nil
}

func (w *Writer) identityFromConfig() (IdentityResolver, error) {
	up := w.cfg.Upsert
	entity := w.session.Entity
	switch up.Strategy {
	case config.StrategyDirectID:
		return NewDirectIDIdentity(w.session, up.IDField, up.IDProperty), nil
	default:
		property := w.resolver.Descriptor(entity).DefaultUniqueProperty()
		if strings.TrimSpace(up.UniqueProperty) != "" {
			property = w.resolver.Resolve(entity, up.UniqueProperty)
		}
		if property == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig,
				"upsert.unique_property is required for entity %q", entity)
		}
		return NewSearchIdentity(w.session, property), nil
	}
}

// Open derives the credential and session headers once.
func (w *Writer) Open(ctx context.Context) error {
	cred, err := auth.FromConfig(w.cfg.Security)
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(w.cfg.Endpoint.Headers)+3)
	headers["Accept"] = "application/json"
	headers["Content-Type"] = "application/json"
	for k, v := range w.cfg.Endpoint.Headers {
		headers[k] = v
	}
	cred.Apply(headers)

	w.session.Headers = headers
	w.written = 0
	w.opened = true
	return nil
}

// WriteRecord normalizes input and creates or updates the matching remote
// record. A record with no properties is skipped without any call.
func (w *Writer) WriteRecord(ctx context.Context, input interface{}) (outcome core.WriteOutcome, err error) {
	if !w.opened {
		return "", errors.New(errors.ErrorTypeInternal, "writer is not open")
	}
	entity := w.session.Entity

	ctx, span := observability.StartSpan(ctx, "crm.write", attribute.String("crm.entity", entity))
	defer func() {
		span.SetAttributes(attribute.String("crm.outcome", string(outcome)))
		observability.EndSpan(span, err)
		if err != nil {
			metrics.RecordsWritten.WithLabelValues(entity, "failed").Inc()
		} else {
			metrics.RecordsWritten.WithLabelValues(entity, string(outcome)).Inc()
		}
	}()

	rec, err := w.normalizer.Normalize(entity, input)
	if err != nil {
		return "", err
	}
	if len(rec.Properties) == 0 {
		w.logger.Debug("record has no properties, skipping")
		return core.OutcomeSkipped, nil
	}

	id, found, err := w.identity.Resolve(ctx, rec)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{"properties": rec.Properties}
	if found {
		url := w.session.ObjectsURL(id).AddParamIf("idProperty", w.idProperty).String()
		if _, err := w.session.Transport.Patch(ctx, url, body, w.session.Headers); err != nil {
			return "", errors.NewRemoteWrite(entity, "update", err).WithDetail("url", url).WithDetail("id", id)
		}
		outcome = core.OutcomeUpdated
	} else {
		url := w.session.ObjectsURL().String()
		if _, err := w.session.Transport.Post(ctx, url, body, w.session.Headers); err != nil {
			return "", errors.NewRemoteWrite(entity, "create", err).WithDetail("url", url)
		}
		outcome = core.OutcomeCreated
	}

	w.written++
	w.logger.Debug("record written",
		zap.String("outcome", string(outcome)),
		zap.String("id", id),
		zap.Int("properties", len(rec.Properties)))
	if w.progress != nil {
		w.progress(w.written)
	}
	return outcome, nil
}

// Written returns the number of successful creates and updates since Open.
func (w *Writer) Written() int64 { return w.written }

// Identity returns the active identity resolver.
func (w *Writer) Identity() IdentityResolver { return w.identity }

// SetProgress replaces the progress callback.
func (w *Writer) SetProgress(fn core.ProgressFunc) { w.progress = fn }

// Close ends the session. The writer can be opened again.
func (w *Writer) Close() {
	w.session.Headers = nil
	w.opened = false
}
