package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/logger"
)

// RecordSink receives extracted records, e.g. a json.LinesWriter.
type RecordSink interface {
	Write(v interface{}) error
}

// Extract reads every record of source into sink and returns how many were
// written. The source is opened and closed here.
func Extract(ctx context.Context, source core.Source, sink RecordSink, log *zap.Logger) (n int64, err error) {
	if log == nil {
		log = logger.Get()
	}
	log = logger.FromContext(ctx, log)

	if err := source.Open(ctx); err != nil {
		_ = source.Close(ctx)
		return 0, err
	}
	defer func() {
		if cerr := source.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		record, ok, err := source.Next(ctx)
		if err != nil {
			return n, err
		}
		if !ok {
			log.Info("extract finished", zap.String("source", source.Name()), zap.Int64("records", n))
			return n, nil
		}
		if err := sink.Write(record); err != nil {
			return n, errors.Wrap(err, errors.ErrorTypeFile, "failed to write record")
		}
		n++
	}
}
