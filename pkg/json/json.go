// Package json wraps goccy/go-json with the decoding options nebula-crm
// relies on: numbers are kept as Number so ids and amounts survive
// round-trips without float rounding.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Number is a JSON number kept in its literal form.
type Number = gojson.Number

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal encodes v without HTML escaping.
func Marshal(v interface{}) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode appends a newline
	out := bytes.TrimRight(buf.Bytes(), "\n")
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

// Unmarshal decodes data into v, keeping numbers as Number.
func Unmarshal(data []byte, v interface{}) error {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// Decode reads a single JSON value from r into v, keeping numbers as Number.
func Decode(r io.Reader, v interface{}) error {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}

// Valid reports whether data is valid JSON.
func Valid(data []byte) bool {
	return gojson.Valid(data)
}

// LinesWriter writes one JSON document per line.
type LinesWriter struct {
	enc   *gojson.Encoder
	count int
}

// NewLinesWriter creates a line-delimited JSON writer on w.
func NewLinesWriter(w io.Writer) *LinesWriter {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &LinesWriter{enc: enc}
}

// Write encodes v followed by a newline.
func (lw *LinesWriter) Write(v interface{}) error {
	if err := lw.enc.Encode(v); err != nil {
		return err
	}
	lw.count++
	return nil
}

// Count returns the number of documents written.
func (lw *LinesWriter) Count() int {
	return lw.count
}
