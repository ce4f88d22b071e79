package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/testutil"
)

func TestParsePageShapes(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		records    int
		more       core.MoreAvailable
		totalPages int
		totalCount int
	}{
		{"odata v2 results", `{"d":{"results":[{"a":1},{"a":2}],"__count":"7"}}`, 2, core.MoreUnknown, -1, 7},
		{"odata v2 array", `{"d":[{"a":1}]}`, 1, core.MoreUnknown, -1, -1},
		{"odata v4 value", `{"value":[{"a":1}],"@odata.count":12}`, 1, core.MoreUnknown, -1, 12},
		{"results", `{"results":[{"a":1},{"a":2},{"a":3}]}`, 3, core.MoreUnknown, -1, -1},
		{"data with pagination", `{"data":[{"a":1}],"pagination":{"has_next":true,"total_pages":3}}`, 1, core.MoreTrue, 3, -1},
		{"top-level flag", `{"data":[],"has_more":false}`, 0, core.MoreFalse, -1, -1},
		{"string flag", `{"results":[{"a":1}],"hasMore":"false"}`, 1, core.MoreFalse, -1, -1},
		{"camel totals", `{"data":[{"a":1}],"totalPages":2,"totalCount":"40"}`, 1, core.MoreUnknown, 2, 40},
		{"bare array", `[{"a":1},{"a":2}]`, 2, core.MoreUnknown, -1, -1},
		{"non-objects dropped", `{"value":[{"a":1},2,"x",null,{"a":3}]}`, 2, core.MoreUnknown, -1, -1},
		{"pagination overrides top level", `{"data":[],"has_next":true,"pagination":{"has_next":false}}`, 0, core.MoreFalse, -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage(testutil.MustJSON(tt.body))
			require.NoError(t, err)
			assert.Len(t, page.Records, tt.records)
			assert.Equal(t, tt.more, page.More)
			assert.Equal(t, tt.totalPages, page.TotalPages)
			assert.Equal(t, tt.totalCount, page.TotalCount)
		})
	}
}

func TestParsePageEmptyBody(t *testing.T) {
	page, err := ParsePage(nil)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, core.MoreUnknown, page.More)
}

func TestParsePageRejectsUnknownShapes(t *testing.T) {
	for _, body := range []interface{}{
		testutil.MustJSON(`{"items":[{"a":1}]}`),
		testutil.MustJSON(`{"value":{"a":1}}`),
		"text",
		testutil.MustJSON(`42`),
	} {
		_, err := ParsePage(body)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteFetch))
	}
}

func TestParsePageIgnoresInvalidSignals(t *testing.T) {
	page, err := ParsePage(testutil.MustJSON(`{"data":[],"has_next":"maybe","total_pages":-1,"total_count":"many"}`))
	require.NoError(t, err)
	assert.Equal(t, core.MoreUnknown, page.More)
	assert.Equal(t, -1, page.TotalPages)
	assert.Equal(t, -1, page.TotalCount)
}
