// Package testutil provides testing utilities for nebula-crm
package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// MustJSON decodes JSON text the way the HTTP transport does, with numbers
// kept as json.Number. It panics on invalid input.
func MustJSON(text string) interface{} {
	var v interface{}
	if err := jsonpool.Unmarshal([]byte(text), &v); err != nil {
		panic("testutil: invalid JSON: " + err.Error())
	}
	return v
}

// Records builds a page body of n records with sequential ids starting at
// first, wrapped under key (e.g. "value" or "results").
func Records(key string, first, n int) map[string]interface{} {
	items := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]interface{}{"id": jsonpool.Number(strconv.Itoa(first + i))})
	}
	return map[string]interface{}{key: items}
}
