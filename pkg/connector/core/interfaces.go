// Package core defines the contracts shared by nebula-crm connectors: the
// injected transport capability, the record and page shapes, and the
// source/destination lifecycles.
package core

import (
	"context"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource      ConnectorType = "source"
	ConnectorTypeDestination ConnectorType = "destination"
)

// RawRecord is a record as returned by a remote API. Its shape is not
// validated; destinations normalize it.
type RawRecord map[string]interface{}

// MoreAvailable is the explicit "more pages" signal carried by a response.
type MoreAvailable int

const (
	// MoreUnknown means the response carried no explicit flag
	MoreUnknown MoreAvailable = iota
	// MoreTrue means the response said another page exists
	MoreTrue
	// MoreFalse means the response said this is the last page
	MoreFalse
)

func (m MoreAvailable) String() string {
	switch m {
	case MoreTrue:
		return "true"
	case MoreFalse:
		return "false"
	default:
		return "unknown"
	}
}

// MoreFromBool converts an explicit boolean flag.
func MoreFromBool(b bool) MoreAvailable {
	if b {
		return MoreTrue
	}
	return MoreFalse
}

// PageResult is one fetched page. TotalPages and TotalCount are -1 when the
// response did not report them. Terminal is decided by the cursor that
// fetched the page.
type PageResult struct {
	Records    []RawRecord
	More       MoreAvailable
	TotalPages int
	TotalCount int
	Terminal   bool
}

// Transport is the HTTP capability connectors are given. Implementations
// return parsed JSON bodies (nil for an empty body) and report non-success
// statuses as *errors.RemoteError.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) (interface{}, error)
	Post(ctx context.Context, url string, body interface{}, headers map[string]string) (interface{}, error)
	Patch(ctx context.Context, url string, body interface{}, headers map[string]string) (interface{}, error)
}

// ProgressFunc receives the running count of successful writes.
type ProgressFunc func(written int64)

// WriteOutcome reports what a destination did with one record.
type WriteOutcome string

const (
	OutcomeCreated WriteOutcome = "created"
	OutcomeUpdated WriteOutcome = "updated"
	OutcomeSkipped WriteOutcome = "skipped"
)

// Source is a forward-only pull sequence of records.
//
// Open resets state without fetching. Next returns ok=false once the
// sequence is exhausted; an error ends the sequence. Close is always safe.
type Source interface {
	Name() string
	Open(ctx context.Context) error
	Next(ctx context.Context) (record RawRecord, ok bool, err error)
	Close(ctx context.Context) error
	Metrics() map[string]interface{}
}

// Destination writes records one at a time as create-or-update operations.
type Destination interface {
	Name() string
	Open(ctx context.Context) error
	Write(ctx context.Context, record interface{}) (WriteOutcome, error)
	Close(ctx context.Context) error
	Metrics() map[string]interface{}
}

// ConnectorMetadata describes a registered connector for listings.
type ConnectorMetadata struct {
	Name         string        `json:"name"`
	Type         ConnectorType `json:"type"`
	Version      string        `json:"version"`
	Description  string        `json:"description"`
	Capabilities []string      `json:"capabilities"`
}
