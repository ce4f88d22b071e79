package rest

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
	"github.com/ajitpratap0/nebula-crm/pkg/testutil"
)

// odataServer serves total records in pages of at most pageSize, honoring
// $top and $skip, with no explicit stop signals.
func odataServer(total int) func(testutil.Call) (interface{}, error) {
	return func(call testutil.Call) (interface{}, error) {
		top, _ := strconv.Atoi(testutil.QueryParam(call.URL, "$top"))
		skip, _ := strconv.Atoi(testutil.QueryParam(call.URL, "$skip"))
		n := total - skip
		if n > top {
			n = top
		}
		if n < 0 {
			n = 0
		}
		return testutil.Records("value", skip, n), nil
	}
}

func newODataReader(transport core.Transport, pageSize, limit int) *Reader {
	c := NewODataCursor(PageRequest{BaseURL: "https://h", Path: "Items", PageSize: pageSize})
	r := NewReader(c, transport, limit)
	r.Open(map[string]string{})
	return r
}

func drain(t *testing.T, r *Reader) ([]core.RawRecord, error) {
	t.Helper()
	ctx := testutil.TestContext(t)
	var out []core.RawRecord
	for {
		rec, ok, err := r.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}

func ids(records []core.RawRecord) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, fmt.Sprint(rec["id"]))
	}
	return out
}

func TestReaderODataShortLastPage(t *testing.T) {
	transport := testutil.NewFakeTransport().Handle(odataServer(5))
	r := newODataReader(transport, 2, 0)

	records, err := drain(t, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, ids(records))
	assert.Equal(t, 3, r.Fetches())

	calls := transport.CallsFor("GET")
	require.Len(t, calls, 3)
	for i, want := range []string{"0", "2", "4"} {
		assert.Equal(t, want, testutil.QueryParam(calls[i].URL, "$skip"))
		assert.Equal(t, "2", testutil.QueryParam(calls[i].URL, "$top"))
	}
}

func TestReaderFullReadProperty(t *testing.T) {
	for _, pageSize := range []int{1, 2, 3, 7} {
		for _, total := range []int{0, 1, 5, 6, 14} {
			for _, limit := range []int{0, 1, 4, 20} {
				name := fmt.Sprintf("P=%d/N=%d/cap=%d", pageSize, total, limit)
				t.Run(name, func(t *testing.T) {
					transport := testutil.NewFakeTransport().Handle(odataServer(total))
					r := newODataReader(transport, pageSize, limit)

					records, err := drain(t, r)
					require.NoError(t, err)

					want := total
					if limit > 0 && limit < want {
						want = limit
					}
					require.Len(t, records, want)
					for i, rec := range records {
						assert.Equal(t, jsonpool.Number(strconv.Itoa(i)), rec["id"])
					}
					assert.Equal(t, want, r.Emitted())
				})
			}
		}
	}
}

func TestReaderCapStopsFetching(t *testing.T) {
	t.Run("cap mid buffer", func(t *testing.T) {
		transport := testutil.NewFakeTransport().Handle(odataServer(100))
		r := newODataReader(transport, 10, 3)

		records, err := drain(t, r)
		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, 1, transport.Count("GET"))
		assert.False(t, r.HasMore())
	})

	t.Run("cap on page boundary", func(t *testing.T) {
		transport := testutil.NewFakeTransport().Handle(odataServer(100))
		r := newODataReader(transport, 5, 10)

		records, err := drain(t, r)
		require.NoError(t, err)
		assert.Len(t, records, 10)
		assert.Equal(t, 2, transport.Count("GET"))
	})

	t.Run("next after end does not fetch", func(t *testing.T) {
		transport := testutil.NewFakeTransport().Handle(odataServer(100))
		r := newODataReader(transport, 5, 2)
		_, err := drain(t, r)
		require.NoError(t, err)

		_, ok, err := r.Next(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, transport.Count("GET"))
	})
}

func TestReaderExplicitSignals(t *testing.T) {
	t.Run("has_next false ends a full page", func(t *testing.T) {
		transport := testutil.NewFakeTransport().
			EnqueueJSON("GET", `{"data":[{"id":1},{"id":2}],"pagination":{"has_next":false,"total_pages":9}}`)
		r := newODataReader(transport, 2, 0)

		records, err := drain(t, r)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 1, r.Fetches())
	})

	t.Run("has_next true continues past a short page", func(t *testing.T) {
		transport := testutil.NewFakeTransport().
			EnqueueJSON("GET", `{"data":[{"id":1}],"pagination":{"has_next":true}}`).
			EnqueueJSON("GET", `{"data":[{"id":2}],"pagination":{"has_next":false}}`)
		r := newODataReader(transport, 2, 0)

		records, err := drain(t, r)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 0, transport.Pending())
	})

	t.Run("total count ends a full page", func(t *testing.T) {
		transport := testutil.NewFakeTransport().
			EnqueueJSON("GET", `{"value":[{"id":1},{"id":2}],"@odata.count":4}`).
			EnqueueJSON("GET", `{"value":[{"id":3},{"id":4}],"@odata.count":4}`)
		r := newODataReader(transport, 2, 0)

		records, err := drain(t, r)
		require.NoError(t, err)
		assert.Len(t, records, 4)
		assert.Equal(t, 2, r.Fetches())
	})

	t.Run("zero record terminal page", func(t *testing.T) {
		transport := testutil.NewFakeTransport().
			EnqueueJSON("GET", `{"value":[{"id":1},{"id":2}]}`).
			EnqueueJSON("GET", `{"value":[]}`)
		r := newODataReader(transport, 2, 0)

		records, err := drain(t, r)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 2, r.Fetches())
	})
}

func TestReaderPageNumberTotals(t *testing.T) {
	transport := testutil.NewFakeTransport().Handle(func(call testutil.Call) (interface{}, error) {
		page, _ := strconv.Atoi(testutil.QueryParam(call.URL, "page"))
		body := testutil.Records("results", (page-1)*3, 3)
		body["total_pages"] = 2
		return body, nil
	})
	c := NewPageNumberCursor(PageRequest{BaseURL: "https://h", Path: "tickets", PageSize: 3})
	r := NewReader(c, transport, 0)
	r.Open(nil)

	records, err := drain(t, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2", "3", "4", "5"}, ids(records))

	calls := transport.CallsFor("GET")
	require.Len(t, calls, 2)
	assert.Equal(t, "1", testutil.QueryParam(calls[0].URL, "page"))
	assert.Equal(t, "2", testutil.QueryParam(calls[1].URL, "page"))
}

func TestReaderFetchErrorEndsSequence(t *testing.T) {
	transport := testutil.NewFakeTransport().
		EnqueueJSON("GET", `{"value":[{"id":1},{"id":2}]}`).
		Enqueue("GET", nil, testutil.NotFound("https://h/Items"))

	var observed []error
	c := NewODataCursor(PageRequest{BaseURL: "https://h", Path: "Items", PageSize: 2})
	r := NewReader(c, transport, 0, WithPageObserver(func(_ string, _ *core.PageResult, err error) {
		observed = append(observed, err)
	}))
	r.Open(nil)

	records, err := drain(t, r)
	require.Error(t, err)
	assert.Len(t, records, 2, "records before the failure stay delivered")
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteFetch))
	assert.Equal(t, err, r.Err())
	require.Len(t, observed, 2)
	assert.NoError(t, observed[0])
	assert.Error(t, observed[1])

	_, ok, err := r.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, transport.Count("GET"))
}

func TestReaderOpenRewinds(t *testing.T) {
	transport := testutil.NewFakeTransport().Handle(odataServer(3))
	r := newODataReader(transport, 2, 0)

	first, err := drain(t, r)
	require.NoError(t, err)
	assert.Equal(t, 2, transport.Count("GET"), "open itself fetches nothing")

	r.Open(nil)
	second, err := drain(t, r)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, "0", testutil.QueryParam(transport.Calls()[2].URL, "$skip"))
}

func TestReaderRecordsIterator(t *testing.T) {
	transport := testutil.NewFakeTransport().Handle(odataServer(7))
	r := newODataReader(transport, 3, 0)

	var got []string
	for rec, err := range r.Records(testutil.TestContext(t)) {
		require.NoError(t, err)
		got = append(got, fmt.Sprint(rec["id"]))
		if len(got) == 4 {
			break
		}
	}
	assert.Equal(t, []string{"0", "1", "2", "3"}, got)
	assert.Equal(t, 2, transport.Count("GET"))
}

func TestReaderCloseIsIdempotent(t *testing.T) {
	transport := testutil.NewFakeTransport().Handle(odataServer(10))
	r := newODataReader(transport, 4, 0)

	_, ok, err := r.Next(testutil.TestContext(t))
	require.NoError(t, err)
	require.True(t, ok)

	r.Close()
	r.Close()
	assert.Equal(t, 0, r.Emitted())

	_, ok, err = r.Next(testutil.TestContext(t))
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, transport.Count("GET"))
}

func TestReaderHonorsCancellation(t *testing.T) {
	transport := testutil.NewFakeTransport().Handle(odataServer(10))
	r := newODataReader(transport, 4, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteFetch))
	assert.False(t, ok)
	assert.Equal(t, 0, transport.Count("GET"))
}
