package rest

import (
	"context"
	"iter"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
)

// PageObserver is told about every fetch attempt, successful or not.
type PageObserver func(url string, page *core.PageResult, err error)

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithPageObserver registers fn to be called after every fetch.
func WithPageObserver(fn PageObserver) ReaderOption {
	return func(r *Reader) { r.observer = fn }
}

// Reader turns a Cursor into a forward-only record sequence. It buffers one
// page at a time and fetches the next page only when the buffer is drained.
// A Reader is not safe for concurrent use.
type Reader struct {
	cursor    Cursor
	transport core.Transport
	limit     int
	observer  PageObserver

	headers     map[string]string
	buffer      []core.RawRecord
	bufferIndex int
	hasMore     bool
	fetched     bool
	emitted     int
	fetches     int
	err         error
}

// NewReader creates a reader over cursor. limit caps the number of records
// emitted; 0 means unbounded.
func NewReader(cursor Cursor, transport core.Transport, limit int, opts ...ReaderOption) *Reader {
	if limit < 0 {
		limit = 0
	}
	r := &Reader{cursor: cursor, transport: transport, limit: limit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open resets the reader to the first page. Nothing is fetched until Next.
func (r *Reader) Open(headers map[string]string) {
	r.cursor.Reset()
	r.headers = headers
	r.buffer = nil
	r.bufferIndex = 0
	r.hasMore = true
	r.fetched = false
	r.emitted = 0
	r.fetches = 0
	r.err = nil
}

// Next returns the next record. ok is false once the sequence has ended,
// either because the remote reported its last page, the cap was reached, or
// a fetch failed; in the last case err is the fetch error.
func (r *Reader) Next(ctx context.Context) (core.RawRecord, bool, error) {
	for {
		if r.limit > 0 && r.emitted >= r.limit {
			r.hasMore = false
			return nil, false, nil
		}
		if r.bufferIndex < len(r.buffer) {
			rec := r.buffer[r.bufferIndex]
			r.bufferIndex++
			r.emitted++
			return rec, true, nil
		}
		if !r.hasMore {
			return nil, false, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, false, errors.NewRemoteFetch(r.cursor.URL(), err)
		}

		// the previous page was drained and judged non-terminal
		if r.fetched {
			r.cursor.Advance()
		}
		url := r.cursor.URL()
		page, err := r.cursor.Fetch(ctx, r.transport, r.headers)
		r.fetches++
		r.fetched = true
		if r.observer != nil {
			r.observer(url, page, err)
		}
		if err != nil {
			r.hasMore = false
			r.buffer = nil
			r.bufferIndex = 0
			r.err = err
			return nil, false, err
		}

		r.buffer = page.Records
		r.bufferIndex = 0
		if page.Terminal {
			r.hasMore = false
		}
	}
}

// Records adapts Next for range-over-func. Iteration stops after the first
// error is yielded.
func (r *Reader) Records(ctx context.Context) iter.Seq2[core.RawRecord, error] {
	return func(yield func(core.RawRecord, error) bool) {
		for {
			rec, ok, err := r.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(rec, nil) {
				return
			}
		}
	}
}

// Close drops buffered records and counters. It is safe to call at any
// time and more than once.
func (r *Reader) Close() {
	r.buffer = nil
	r.bufferIndex = 0
	r.hasMore = false
	r.headers = nil
	r.emitted = 0
	r.fetches = 0
}

// Err returns the fetch error that ended the sequence, if any.
func (r *Reader) Err() error { return r.err }

// Fetches returns the number of page requests issued since Open.
func (r *Reader) Fetches() int { return r.fetches }

// Emitted returns the number of records returned since Open.
func (r *Reader) Emitted() int { return r.emitted }

// HasMore reports whether another fetch may still happen.
func (r *Reader) HasMore() bool { return r.hasMore }
