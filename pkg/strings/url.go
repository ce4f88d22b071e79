// Package strings provides URL and value formatting helpers shared by the
// REST source and the CRM destination.
package strings

import (
	"strconv"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// URLBuilder builds request URLs deterministically: path segments and query
// parameters appear in the order they were added, and every dynamic value is
// percent-encoded.
type URLBuilder struct {
	builder   strings.Builder
	hasParams bool
}

// NewURLBuilder creates a URL builder rooted at baseURL. A trailing slash on
// baseURL is dropped so that paths join with exactly one separator.
func NewURLBuilder(baseURL string) *URLBuilder {
	ub := &URLBuilder{}
	ub.builder.Grow(len(baseURL) + 64)
	ub.builder.WriteString(strings.TrimRight(baseURL, "/"))
	ub.hasParams = strings.Contains(baseURL, "?")
	return ub
}

// AddPath appends path segments, escaping each one completely so that ids
// containing '/' or '?' stay a single segment.
func (ub *URLBuilder) AddPath(segments ...string) *URLBuilder {
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		ub.builder.WriteByte('/')
		ub.builder.WriteString(escape(segment, isSegmentSafe))
	}
	return ub
}

// AddRawPath appends an operator-configured path such as "v1/Orders",
// keeping its '/' separators.
func (ub *URLBuilder) AddRawPath(path string) *URLBuilder {
	path = strings.Trim(path, "/")
	if path == "" {
		return ub
	}
	ub.builder.WriteByte('/')
	ub.builder.WriteString(escape(path, isPathSafe))
	return ub
}

// AddParam adds a query parameter. The value is percent-encoded (space as
// %20); the key keeps '$' so OData system options stay readable.
func (ub *URLBuilder) AddParam(key, value string) *URLBuilder {
	if ub.hasParams {
		ub.builder.WriteByte('&')
	} else {
		ub.builder.WriteByte('?')
		ub.hasParams = true
	}
	ub.builder.WriteString(escape(key, isKeySafe))
	ub.builder.WriteByte('=')
	ub.builder.WriteString(escape(value, isValueSafe))
	return ub
}

// AddParamIf adds the parameter only when value is non-empty.
func (ub *URLBuilder) AddParamIf(key, value string) *URLBuilder {
	if value == "" {
		return ub
	}
	return ub.AddParam(key, value)
}

// AddParamInt adds an integer parameter
func (ub *URLBuilder) AddParamInt(key string, value int) *URLBuilder {
	return ub.AddParam(key, strconv.Itoa(value))
}

// String returns the built URL
func (ub *URLBuilder) String() string {
	return ub.builder.String()
}

// QueryEscape percent-encodes s for a query value.
func QueryEscape(s string) string {
	return escape(s, isValueSafe)
}

// PathEscape percent-encodes s as a single path segment.
func PathEscape(s string) string {
	return escape(s, isSegmentSafe)
}

func escape(s string, safe func(byte) bool) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !safe(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if safe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&15])
	}
	return b.String()
}

// isValueSafe returns true for RFC 3986 unreserved bytes
func isValueSafe(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func isKeySafe(c byte) bool {
	return isValueSafe(c) || c == '$'
}

func isSegmentSafe(c byte) bool {
	return isValueSafe(c) || c == ':' || c == '@'
}

func isPathSafe(c byte) bool {
	return isSegmentSafe(c) || c == '/'
}
