package crm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
	"github.com/ajitpratap0/nebula-crm/pkg/testutil"
)

func TestDestinationCountsOutcomes(t *testing.T) {
	ctx := testutil.TestContext(t)
	transport := testutil.NewFakeTransport().Handle(func(call testutil.Call) (interface{}, error) {
		if strings.HasSuffix(call.URL, "/search") {
			body := call.Body.(map[string]interface{})
			filter := body["filterGroups"].([]interface{})[0].(map[string]interface{})["filters"].([]interface{})[0].(map[string]interface{})
			if filter["value"] == "known@x.io" {
				return testutil.MustJSON(`{"results":[{"id":"10"}]}`), nil
			}
			return testutil.MustJSON(`{"results":[]}`), nil
		}
		return testutil.MustJSON(`{"id":"11"}`), nil
	})

	dest, err := NewDestination(testWriterConfig(config.StrategySearch), transport)
	require.NoError(t, err)
	dest.SetLogger(testutil.TestLogger(t))
	var last int64
	dest.SetProgress(func(n int64) { last = n })
	require.NoError(t, dest.Open(ctx))

	records := []interface{}{
		core.RawRecord{"email": "known@x.io", "firstname": "K"},
		core.RawRecord{"email": "new@x.io"},
		core.RawRecord{"email": ""},
		"not json",
	}
	var outcomes []core.WriteOutcome
	for _, rec := range records {
		outcome, err := dest.Write(ctx, rec)
		if err == nil {
			outcomes = append(outcomes, outcome)
		}
	}
	assert.Equal(t, []core.WriteOutcome{core.OutcomeUpdated, core.OutcomeCreated, core.OutcomeSkipped}, outcomes)
	assert.Equal(t, int64(2), last)

	m := dest.Metrics()
	assert.Equal(t, int64(1), m["updated"])
	assert.Equal(t, int64(1), m["created"])
	assert.Equal(t, int64(1), m["skipped"])
	assert.Equal(t, int64(1), m["failed"])
	assert.Equal(t, int64(2), m["written"])
	assert.Equal(t, "contacts", m["entity"])

	require.NoError(t, dest.Close(ctx))
	require.NoError(t, dest.Close(ctx))
}

func TestDestinationRegistered(t *testing.T) {
	assert.True(t, registry.GetRegistry().HasDestination("crm"))

	_, err := registry.CreateDestination("crm", config.NewBaseConfig("x", "crm"))
	assert.Error(t, err, "missing base url and entity")
}

// TestDestinationOverHTTP drives the registered connector against a fake
// CRM server through the real HTTP transport.
func TestDestinationOverHTTP(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
		stored   = map[string]map[string]interface{}{"42": {"email": "old@x.io"}}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		assert.Equal(t, "Basic dXNlcjpwYXNz", r.Header.Get("Authorization"))

		id := strings.TrimPrefix(r.URL.Path, "/crm/v3/objects/contacts/")
		switch r.Method {
		case http.MethodGet:
			if _, ok := stored[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"message":"resource not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"id":"`+id+`"}`)
		case http.MethodPatch, http.MethodPost:
			var body struct {
				Properties map[string]interface{} `json:"properties"`
			}
			require.NoError(t, jsonpool.Decode(r.Body, &body))
			if r.Method == http.MethodPost {
				id = "100"
			}
			stored[id] = body.Properties
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"`+id+`"}`)
		}
	}))
	t.Cleanup(server.Close)

	cfg := config.NewBaseConfig("crm-http", "crm")
	cfg.Endpoint.BaseURL = server.URL + "/crm/v3"
	cfg.Endpoint.Entity = "contacts"
	cfg.Upsert.Strategy = config.StrategyDirectID
	cfg.Security.AuthType = "basic"
	cfg.Security.Credentials = map[string]string{"username": "user", "password": "pass"}

	dest, err := registry.CreateDestination("crm", cfg)
	require.NoError(t, err)
	ctx := testutil.TestContext(t)
	require.NoError(t, dest.Open(ctx))
	t.Cleanup(func() { _ = dest.Close(ctx) })

	outcome, err := dest.Write(ctx, `{"id":"42","EmailAddress":"new@x.io"}`)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeUpdated, outcome)

	outcome, err = dest.Write(ctx, `{"id":"7","email":"seven@x.io"}`)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCreated, outcome)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /crm/v3/objects/contacts/42",
		"PATCH /crm/v3/objects/contacts/42",
		"GET /crm/v3/objects/contacts/7",
		"POST /crm/v3/objects/contacts",
	}, requests)
	assert.Equal(t, "new@x.io", stored["42"]["email"])
	assert.Equal(t, "seven@x.io", stored["100"]["email"])
}
