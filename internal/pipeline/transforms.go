package pipeline

import (
	"context"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
)

// RenameFieldsTransform renames record fields. Fields not in mapping are
// kept.
func RenameFieldsTransform(mapping map[string]string) Transform {
	return func(_ context.Context, record core.RawRecord) (core.RawRecord, error) {
		out := make(core.RawRecord, len(record))
		for k, v := range record {
			if to, ok := mapping[k]; ok && to != "" {
				out[to] = v
				continue
			}
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
		return out, nil
	}
}

// DropFieldsTransform removes the named fields.
func DropFieldsTransform(fields ...string) Transform {
	drop := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		drop[f] = struct{}{}
	}
	return func(_ context.Context, record core.RawRecord) (core.RawRecord, error) {
		out := make(core.RawRecord, len(record))
		for k, v := range record {
			if _, ok := drop[k]; !ok {
				out[k] = v
			}
		}
		return out, nil
	}
}

// FilterTransform keeps only records for which keep returns true.
func FilterTransform(keep func(core.RawRecord) bool) Transform {
	return func(_ context.Context, record core.RawRecord) (core.RawRecord, error) {
		if !keep(record) {
			return nil, nil
		}
		return record, nil
	}
}
