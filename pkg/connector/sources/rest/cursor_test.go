package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/testutil"
)

func TestODataCursorURL(t *testing.T) {
	c := NewODataCursor(PageRequest{
		BaseURL:  "https://erp.example.com/odata/",
		Path:     "/sales/Orders",
		PageSize: 2,
		Filter:   "Status eq 'Open'",
		Expand:   "Lines",
	})
	assert.Equal(t,
		"https://erp.example.com/odata/sales/Orders?$top=2&$skip=0&$filter=Status%20eq%20%27Open%27&$expand=Lines&$format=json",
		c.URL())

	c.Advance()
	c.Advance()
	assert.Equal(t, 4, c.Position())
	assert.Contains(t, c.URL(), "$skip=4")

	c.Reset()
	assert.Equal(t, 0, c.Position())
}

func TestODataCursorVendorParams(t *testing.T) {
	t.Run("override sorted", func(t *testing.T) {
		c := NewODataCursor(PageRequest{
			BaseURL:      "https://h/api",
			Path:         "Items",
			PageSize:     10,
			VendorParams: map[string]string{"sap-client": "100", "$inlinecount": "allpages"},
		})
		assert.Equal(t, "https://h/api/Items?$top=10&$skip=0&$inlinecount=allpages&sap-client=100", c.URL())
	})

	t.Run("empty map disables default", func(t *testing.T) {
		c := NewODataCursor(PageRequest{BaseURL: "https://h/api", Path: "Items", PageSize: 10, VendorParams: map[string]string{}})
		assert.Equal(t, "https://h/api/Items?$top=10&$skip=0", c.URL())
	})
}

func TestPageNumberCursorURL(t *testing.T) {
	c := NewPageNumberCursor(PageRequest{BaseURL: "https://api.example.com", Path: "v1/tickets", PageSize: 50})
	assert.Equal(t, 1, c.Position())
	assert.Equal(t, "https://api.example.com/v1/tickets?page=1&page_size=50", c.URL())

	c.Advance()
	assert.Equal(t, "https://api.example.com/v1/tickets?page=2&page_size=50", c.URL())

	c.Reset()
	assert.Equal(t, 1, c.Position())
}

func TestIsTerminalPrecedence(t *testing.T) {
	full := make([]core.RawRecord, 10)
	short := make([]core.RawRecord, 3)

	tests := []struct {
		name        string
		page        core.PageResult
		currentPage int
		startIndex  int
		want        bool
	}{
		{"flag false beats totals and full page", core.PageResult{Records: full, More: core.MoreFalse, TotalPages: 9, TotalCount: 900}, 1, 0, true},
		{"flag true beats short page", core.PageResult{Records: short, More: core.MoreTrue, TotalPages: -1, TotalCount: -1}, 1, 0, false},
		{"flag true beats totals", core.PageResult{Records: full, More: core.MoreTrue, TotalPages: 1, TotalCount: -1}, 1, 0, false},
		{"total pages reached", core.PageResult{Records: full, TotalPages: 3, TotalCount: -1}, 3, 20, true},
		{"total pages not reached", core.PageResult{Records: short, TotalPages: 3, TotalCount: -1}, 2, 10, false},
		{"total pages beats total count", core.PageResult{Records: full, TotalPages: 5, TotalCount: 10}, 1, 0, false},
		{"total count reached", core.PageResult{Records: short, TotalPages: -1, TotalCount: 23}, 3, 20, true},
		{"total count beats short page", core.PageResult{Records: short, TotalPages: -1, TotalCount: 100}, 1, 0, false},
		{"full page continues", core.PageResult{Records: full, TotalPages: -1, TotalCount: -1}, 1, 0, false},
		{"short page ends", core.PageResult{Records: short, TotalPages: -1, TotalCount: -1}, 1, 0, true},
		{"empty page ends", core.PageResult{TotalPages: -1, TotalCount: -1}, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.page
			assert.Equal(t, tt.want, IsTerminal(&page, 10, tt.currentPage, tt.startIndex))
		})
	}
}

func TestCursorFetch(t *testing.T) {
	ctx := testutil.TestContext(t)
	headers := map[string]string{"Authorization": "Bearer tok"}

	t.Run("single get with headers", func(t *testing.T) {
		transport := testutil.NewFakeTransport().
			EnqueueJSON("GET", `{"value":[{"id":1},{"id":2}],"@odata.count":2}`)
		c := NewODataCursor(PageRequest{BaseURL: "https://h", Path: "Items", PageSize: 2})

		page, err := c.Fetch(ctx, transport, headers)
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
		assert.True(t, page.Terminal)
		assert.Equal(t, 0, c.Position(), "fetch must not move the cursor")

		calls := transport.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, c.URL(), calls[0].URL)
		assert.Equal(t, "Bearer tok", calls[0].Headers["Authorization"])
	})

	t.Run("transport error carries url", func(t *testing.T) {
		transport := testutil.NewFakeTransport()
		c := NewPageNumberCursor(PageRequest{BaseURL: "https://h", Path: "items", PageSize: 5})

		_, err := c.Fetch(ctx, transport, headers)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteFetch))
		assert.Equal(t, 500, errors.StatusCode(err))

		var e *errors.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, c.URL(), e.Detail("url"))
	})

	t.Run("malformed page", func(t *testing.T) {
		transport := testutil.NewFakeTransport().EnqueueJSON("GET", `{"unexpected":true}`)
		c := NewODataCursor(PageRequest{BaseURL: "https://h", Path: "Items", PageSize: 2})

		_, err := c.Fetch(ctx, transport, headers)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeRemoteFetch))
	})
}
