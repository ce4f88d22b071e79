package rest

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
)

// Keys that may hold the page's records, in lookup order.
var itemKeys = []string{"value", "results", "data"}

var (
	moreKeys       = []string{"has_next", "has_more", "hasMore", "hasNext"}
	totalPageKeys  = []string{"total_pages", "totalPages"}
	totalCountKeys = []string{"total_count", "totalCount", "total", "__count", "@odata.count"}
)

// ParsePage extracts records and stop signals from a decoded response
// body. Accepted shapes:
//
//	{"d": {"results": [...], "__count": "12"}}   OData v2
//	{"d": [...]}
//	{"value": [...], "@odata.count": 12}         OData v4
//	{"results": [...]}
//	{"data": [...], "pagination": {"has_next": true, "total_pages": 3}}
//	[...]
//
// Array elements that are not objects are dropped.
func ParsePage(body interface{}) (*core.PageResult, error) {
	page := &core.PageResult{
		More:       core.MoreUnknown,
		TotalPages: -1,
		TotalCount: -1,
	}

	switch v := body.(type) {
	case nil:
		return page, nil
	case []interface{}:
		page.Records = toRecords(v)
		return page, nil
	case map[string]interface{}:
		items, ok := findItems(v)
		if !ok {
			return nil, errors.New(errors.ErrorTypeRemoteFetch, "unrecognized page shape")
		}
		page.Records = toRecords(items)
		readSignals(v, page)
		if d, ok := v["d"].(map[string]interface{}); ok {
			readSignals(d, page)
		}
		if p, ok := v["pagination"].(map[string]interface{}); ok {
			// the pagination block is authoritative over top-level hints
			readSignals(p, page)
		}
		return page, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeRemoteFetch, "unexpected page body of type %T", body)
	}
}

func findItems(doc map[string]interface{}) ([]interface{}, bool) {
	if d, ok := doc["d"]; ok {
		switch dv := d.(type) {
		case []interface{}:
			return dv, true
		case map[string]interface{}:
			if results, ok := dv["results"].([]interface{}); ok {
				return results, true
			}
		}
	}
	for _, key := range itemKeys {
		if items, ok := doc[key].([]interface{}); ok {
			return items, true
		}
	}
	return nil, false
}

func toRecords(items []interface{}) []core.RawRecord {
	records := make([]core.RawRecord, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			records = append(records, core.RawRecord(m))
		}
	}
	return records
}

// readSignals overwrites page signals with any found in block.
func readSignals(block map[string]interface{}, page *core.PageResult) {
	for _, key := range moreKeys {
		if b, ok := asBool(block[key]); ok {
			page.More = core.MoreFromBool(b)
			break
		}
	}
	for _, key := range totalPageKeys {
		if n, ok := asInt(block[key]); ok {
			page.TotalPages = n
			break
		}
	}
	for _, key := range totalCountKeys {
		if n, ok := asInt(block[key]); ok {
			page.TotalCount = n
			break
		}
	}
}

func asBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}

func asInt(v interface{}) (int, bool) {
	var n int64
	var err error
	switch x := v.(type) {
	case jsonpool.Number:
		n, err = x.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case float64:
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	default:
		return 0, false
	}
	if err != nil || n < 0 {
		return 0, false
	}
	return int(n), true
}
