package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
)

var _ core.Transport = (*FakeTransport)(nil)

// Call is one request seen by a FakeTransport.
type Call struct {
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string
}

// Response is a scripted transport result.
type Response struct {
	Body interface{}
	Err  error
}

// FakeTransport records every call and answers from a handler or from
// per-method queues of scripted responses. Unscripted calls fail with a
// 500 RemoteError so tests notice unexpected traffic.
type FakeTransport struct {
	mu      sync.Mutex
	calls   []Call
	queues  map[string][]Response
	handler func(Call) (interface{}, error)
}

// NewFakeTransport creates an empty fake transport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{queues: make(map[string][]Response)}
}

// Handle installs a handler that answers every call.
func (f *FakeTransport) Handle(fn func(Call) (interface{}, error)) *FakeTransport {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
	return f
}

// Enqueue scripts the next response for method.
func (f *FakeTransport) Enqueue(method string, body interface{}, err error) *FakeTransport {
	f.mu.Lock()
	f.queues[method] = append(f.queues[method], Response{Body: body, Err: err})
	f.mu.Unlock()
	return f
}

// EnqueueJSON scripts the next response for method from JSON text.
func (f *FakeTransport) EnqueueJSON(method, body string) *FakeTransport {
	return f.Enqueue(method, MustJSON(body), nil)
}

// Get implements core.Transport
func (f *FakeTransport) Get(ctx context.Context, url string, headers map[string]string) (interface{}, error) {
	return f.do(ctx, http.MethodGet, url, nil, headers)
}

// Post implements core.Transport
func (f *FakeTransport) Post(ctx context.Context, url string, body interface{}, headers map[string]string) (interface{}, error) {
	return f.do(ctx, http.MethodPost, url, body, headers)
}

// Patch implements core.Transport
func (f *FakeTransport) Patch(ctx context.Context, url string, body interface{}, headers map[string]string) (interface{}, error) {
	return f.do(ctx, http.MethodPatch, url, body, headers)
}

func (f *FakeTransport) do(ctx context.Context, method, url string, body interface{}, headers map[string]string) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hdrs := make(map[string]string, len(headers))
	for k, v := range headers {
		hdrs[k] = v
	}
	call := Call{Method: method, URL: url, Body: body, Headers: hdrs}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler := f.handler
	var (
		resp   Response
		queued bool
	)
	if handler == nil {
		if q := f.queues[method]; len(q) > 0 {
			resp, queued = q[0], true
			f.queues[method] = q[1:]
		}
	}
	f.mu.Unlock()

	if handler != nil {
		return handler(call)
	}
	if !queued {
		return nil, &errors.RemoteError{StatusCode: http.StatusInternalServerError, Message: "unexpected " + method + " " + url, URL: url}
	}
	return resp.Body, resp.Err
}

// Calls returns a copy of every recorded call.
func (f *FakeTransport) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded calls with the given method.
func (f *FakeTransport) CallsFor(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls used method.
func (f *FakeTransport) Count(method string) int {
	return len(f.CallsFor(method))
}

// Pending returns how many scripted responses were never consumed.
func (f *FakeTransport) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.queues {
		n += len(q)
	}
	return n
}

// NotFound returns the error a transport reports for a 404.
func NotFound(url string) error {
	return &errors.RemoteError{StatusCode: http.StatusNotFound, Message: "not found", URL: url}
}

// QueryParam extracts a raw query parameter value from url, or "".
func QueryParam(url, key string) string {
	_, query, ok := strings.Cut(url, "?")
	if !ok {
		return ""
	}
	for _, pair := range strings.Split(query, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v
		}
	}
	return ""
}
