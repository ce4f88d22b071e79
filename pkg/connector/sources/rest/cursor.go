package rest

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	"github.com/ajitpratap0/nebula-crm/pkg/observability"
	nebulastrings "github.com/ajitpratap0/nebula-crm/pkg/strings"
)

// PageRequest describes the resource a cursor walks.
type PageRequest struct {
	BaseURL  string
	Path     string
	PageSize int
	Filter   string
	Expand   string
	// VendorParams are appended after the paging options in key order.
	// nil selects the OData default of $format=json; an empty map sends none.
	VendorParams map[string]string
}

// Cursor issues page requests and tracks the position of the next one.
// Fetch never moves the cursor; Advance does, and only the reader calls it.
type Cursor interface {
	// Fetch requests the page at the current position and marks it
	// terminal or not.
	Fetch(ctx context.Context, transport core.Transport, headers map[string]string) (*core.PageResult, error)
	// Advance moves to the next page.
	Advance()
	// Reset returns to the first page.
	Reset()
	// URL returns the request URL for the current position.
	URL() string
	// Position is the offset (OData) or page number (page style).
	Position() int
	PageSize() int
}

// ODataCursor pages with $top and $skip.
type ODataCursor struct {
	req    PageRequest
	offset int
}

// NewODataCursor creates a cursor at offset 0.
func NewODataCursor(req PageRequest) *ODataCursor {
	return &ODataCursor{req: req}
}

func (c *ODataCursor) URL() string {
	ub := nebulastrings.NewURLBuilder(c.req.BaseURL).
		AddRawPath(c.req.Path).
		AddParamInt("$top", c.req.PageSize).
		AddParamInt("$skip", c.offset).
		AddParamIf("$filter", c.req.Filter).
		AddParamIf("$expand", c.req.Expand)

	vendor := c.req.VendorParams
	if vendor == nil {
		vendor = map[string]string{"$format": "json"}
	}
	addSorted(ub, vendor)
	return ub.String()
}

func (c *ODataCursor) Fetch(ctx context.Context, transport core.Transport, headers map[string]string) (*core.PageResult, error) {
	currentPage := c.offset/c.req.PageSize + 1
	return fetchPage(ctx, transport, c.URL(), headers, c.req.PageSize, currentPage, c.offset)
}

func (c *ODataCursor) Advance()      { c.offset += c.req.PageSize }
func (c *ODataCursor) Reset()        { c.offset = 0 }
func (c *ODataCursor) Position() int { return c.offset }
func (c *ODataCursor) PageSize() int { return c.req.PageSize }

// PageNumberCursor pages with page and page_size, starting at page 1.
type PageNumberCursor struct {
	req  PageRequest
	page int
}

// NewPageNumberCursor creates a cursor at page 1.
func NewPageNumberCursor(req PageRequest) *PageNumberCursor {
	return &PageNumberCursor{req: req, page: 1}
}

func (c *PageNumberCursor) URL() string {
	ub := nebulastrings.NewURLBuilder(c.req.BaseURL).
		AddRawPath(c.req.Path).
		AddParamInt("page", c.page).
		AddParamInt("page_size", c.req.PageSize)
	addSorted(ub, c.req.VendorParams)
	return ub.String()
}

func (c *PageNumberCursor) Fetch(ctx context.Context, transport core.Transport, headers map[string]string) (*core.PageResult, error) {
	startIndex := (c.page - 1) * c.req.PageSize
	return fetchPage(ctx, transport, c.URL(), headers, c.req.PageSize, c.page, startIndex)
}

func (c *PageNumberCursor) Advance()      { c.page++ }
func (c *PageNumberCursor) Reset()        { c.page = 1 }
func (c *PageNumberCursor) Position() int { return c.page }
func (c *PageNumberCursor) PageSize() int { return c.req.PageSize }

func addSorted(ub *nebulastrings.URLBuilder, params map[string]string) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ub.AddParam(k, params[k])
	}
}

func fetchPage(ctx context.Context, transport core.Transport, url string, headers map[string]string, pageSize, currentPage, startIndex int) (page *core.PageResult, err error) {
	ctx, span := observability.StartSpan(ctx, "rest.fetch_page",
		attribute.String("http.url", url),
		attribute.Int("page.number", currentPage))
	defer func() { observability.EndSpan(span, err) }()

	body, err := transport.Get(ctx, url, headers)
	if err != nil {
		return nil, errors.NewRemoteFetch(url, err)
	}
	page, err = ParsePage(body)
	if err != nil {
		return nil, errors.NewRemoteFetch(url, err)
	}
	page.Terminal = IsTerminal(page, pageSize, currentPage, startIndex)
	span.SetAttributes(
		attribute.Int("page.records", len(page.Records)),
		attribute.Bool("page.terminal", page.Terminal))
	return page, nil
}

// IsTerminal decides whether page is the last one. The first applicable
// signal wins: the explicit flag, then total pages, then total count, then
// a short page.
func IsTerminal(page *core.PageResult, pageSize, currentPage, startIndex int) bool {
	switch page.More {
	case core.MoreTrue:
		return false
	case core.MoreFalse:
		return true
	}
	if page.TotalPages >= 0 {
		return currentPage >= page.TotalPages
	}
	if page.TotalCount >= 0 {
		return startIndex+len(page.Records) >= page.TotalCount
	}
	return len(page.Records) < pageSize
}
