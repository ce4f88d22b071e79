// Package pipeline moves records from a source to a destination, one record
// at a time. Reads and writes are sequential: a record is written before the
// next one is pulled, so the source never fetches ahead of the destination.
//
// # Basic Usage
//
//	p := pipeline.NewSyncPipeline(source, destination, &pipeline.SyncConfig{
//	    FailFast: false,
//	}, logger)
//	p.AddTransform(pipeline.DropFieldsTransform("internal_notes"))
//	if err := p.Run(ctx); err != nil {
//	    return err
//	}
//	fmt.Println(p.Metrics())
//
// Fetch errors always stop a run. Record-level failures (a malformed record
// or a rejected write) stop it only in fail-fast mode; otherwise they are
// counted and logged and the run continues.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/logger"
	"github.com/ajitpratap0/nebula-crm/pkg/metrics"
)

// Transform modifies a record before it is written. Returning a nil record
// drops it.
type Transform func(ctx context.Context, record core.RawRecord) (core.RawRecord, error)

// SyncConfig controls a sync run.
type SyncConfig struct {
	// FailFast stops the run at the first record-level failure
	FailFast bool
	// Progress receives the destination's running write count
	Progress core.ProgressFunc
}

// SyncPipeline copies every record of a source into a destination.
type SyncPipeline struct {
	source      core.Source
	destination core.Destination
	transforms  []Transform
	config      SyncConfig
	logger      *zap.Logger

	mu        sync.Mutex
	read      int64
	dropped   int64
	outcomes  map[core.WriteOutcome]int64
	failed    int64
	startTime time.Time
	duration  time.Duration
}

// NewSyncPipeline creates a pipeline; a nil config means continue-on-error.
func NewSyncPipeline(source core.Source, destination core.Destination, config *SyncConfig, log *zap.Logger) *SyncPipeline {
	if config == nil {
		config = &SyncConfig{}
	}
	if log == nil {
		log = logger.Get()
	}
	return &SyncPipeline{
		source:      source,
		destination: destination,
		config:      *config,
		logger:      log,
		outcomes:    make(map[core.WriteOutcome]int64),
	}
}

// AddTransform appends a transform. Transforms run in the order added.
func (p *SyncPipeline) AddTransform(t Transform) {
	p.transforms = append(p.transforms, t)
}

type progressSetter interface {
	SetProgress(core.ProgressFunc)
}

// Run opens both connectors, copies records until the source ends, and
// closes both connectors on every exit path.
func (p *SyncPipeline) Run(ctx context.Context) (err error) {
	log := logger.FromContext(ctx, p.logger)
	p.mu.Lock()
	p.startTime = time.Now()
	p.mu.Unlock()

	log.Info("starting sync",
		zap.String("source", p.source.Name()),
		zap.String("destination", p.destination.Name()),
		zap.Bool("fail_fast", p.config.FailFast),
		zap.Int("transforms", len(p.transforms)))

	if p.config.Progress != nil {
		if ps, ok := p.destination.(progressSetter); ok {
			ps.SetProgress(p.config.Progress)
		}
	}

	if err := p.source.Open(ctx); err != nil {
		_ = p.source.Close(ctx)
		return err
	}
	defer func() {
		if cerr := p.source.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := p.destination.Open(ctx); err != nil {
		_ = p.destination.Close(ctx)
		return err
	}
	defer func() {
		if cerr := p.destination.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	defer p.finish(log)

	for {
		record, ok, err := p.source.Next(ctx)
		if err != nil {
			log.Error("source failed, stopping sync", zap.Error(err))
			return err
		}
		if !ok {
			return nil
		}
		p.count(func() { p.read++ })

		record, err = p.applyTransforms(ctx, record)
		if err != nil {
			if ferr := p.recordFailure(log, err); ferr != nil {
				return ferr
			}
			continue
		}
		if record == nil {
			p.count(func() { p.dropped++ })
			continue
		}

		outcome, err := p.destination.Write(ctx, record)
		if err != nil {
			if ferr := p.recordFailure(log, err); ferr != nil {
				return ferr
			}
			continue
		}
		p.count(func() { p.outcomes[outcome]++ })
	}
}

func (p *SyncPipeline) applyTransforms(ctx context.Context, record core.RawRecord) (core.RawRecord, error) {
	var err error
	for _, t := range p.transforms {
		record, err = t(ctx, record)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeMalformedRecord, "transform failed")
		}
		if record == nil {
			return nil, nil
		}
	}
	return record, nil
}

// recordFailure counts a failed record and returns the error when the run
// must stop.
func (p *SyncPipeline) recordFailure(log *zap.Logger, err error) error {
	p.count(func() { p.failed++ })

	recoverable := errors.IsType(err, errors.ErrorTypeRemoteWrite) ||
		errors.IsType(err, errors.ErrorTypeMalformedRecord)
	if !recoverable || p.config.FailFast {
		log.Error("record failed, stopping sync", zap.Error(err))
		return err
	}
	log.Warn("record failed, continuing", zap.Error(err), zap.String("error_type", string(errors.TypeOf(err))))
	return nil
}

func (p *SyncPipeline) count(fn func()) {
	p.mu.Lock()
	fn()
	p.mu.Unlock()
}

func (p *SyncPipeline) finish(log *zap.Logger) {
	p.mu.Lock()
	p.duration = time.Since(p.startTime)
	read := p.read
	duration := p.duration
	p.mu.Unlock()

	throughput := 0.0
	if duration > 0 {
		throughput = float64(read) / duration.Seconds()
	}
	metrics.Throughput.WithLabelValues(p.source.Name(), p.destination.Name()).Set(throughput)

	m := p.Metrics()
	log.Info("sync finished",
		zap.Int64("read", read),
		zap.Any("created", m["created"]),
		zap.Any("updated", m["updated"]),
		zap.Any("skipped", m["skipped"]),
		zap.Any("failed", m["failed"]),
		zap.Duration("duration", duration),
		zap.Float64("records_per_sec", throughput))
}

// Metrics reports record counts for the current or last run.
func (p *SyncPipeline) Metrics() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"read":             p.read,
		"dropped":          p.dropped,
		"created":          p.outcomes[core.OutcomeCreated],
		"updated":          p.outcomes[core.OutcomeUpdated],
		"skipped":          p.outcomes[core.OutcomeSkipped],
		"failed":           p.failed,
		"duration_seconds": p.duration.Seconds(),
	}
}
