package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
)

// FakeAPI is an in-memory remote serving both paginated collections and a
// CRM object store:
//
//	GET   /odata/{collection}?$top=&$skip=          {"value":[...]}
//	GET   /api/{collection}?page=&page_size=        {"data":[...],"pagination":{...}}
//	POST  /crm/v3/objects/{entity}/search
//	POST  /crm/v3/objects/{entity}
//	GET   /crm/v3/objects/{entity}/{id}
//	PATCH /crm/v3/objects/{entity}/{id}
type FakeAPI struct {
	Server *httptest.Server

	mu          sync.Mutex
	collections map[string][]map[string]interface{}
	objects     map[string]map[string]map[string]interface{}
	nextID      int
	requests    []string
	failWrites  map[string]int
}

// NewFakeAPI starts a FakeAPI that shuts down with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	api := &FakeAPI{
		collections: make(map[string][]map[string]interface{}),
		objects:     make(map[string]map[string]map[string]interface{}),
		nextID:      1000,
		failWrites:  make(map[string]int),
	}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the server root.
func (a *FakeAPI) URL() string { return a.Server.URL }

// SetCollection replaces the records served for name.
func (a *FakeAPI) SetCollection(name string, records []map[string]interface{}) {
	a.mu.Lock()
	a.collections[name] = records
	a.mu.Unlock()
}

// PutObject stores a CRM object under id.
func (a *FakeAPI) PutObject(entity, id string, properties map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects[entity] == nil {
		a.objects[entity] = make(map[string]map[string]interface{})
	}
	a.objects[entity][id] = properties
}

// Objects returns a copy of the stored objects of entity.
func (a *FakeAPI) Objects(entity string) map[string]map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]map[string]interface{}, len(a.objects[entity]))
	for id, props := range a.objects[entity] {
		out[id] = props
	}
	return out
}

// FailWritesWithValue rejects creates and updates whose properties contain
// value, with status.
func (a *FakeAPI) FailWritesWithValue(value string, status int) {
	a.mu.Lock()
	a.failWrites[value] = status
	a.mu.Unlock()
}

// Requests returns "METHOD path" for every request served.
func (a *FakeAPI) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.requests))
	copy(out, a.requests)
	return out
}

// CountRequests returns how many requests used method with path prefix.
func (a *FakeAPI) CountRequests(method, prefix string) int {
	n := 0
	for _, r := range a.Requests() {
		if strings.HasPrefix(r, method+" "+prefix) {
			n++
		}
	}
	return n
}

func (a *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "odata" && r.Method == http.MethodGet:
		a.serveOData(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "api" && r.Method == http.MethodGet:
		a.servePaged(w, r, parts[1])
	case len(parts) >= 4 && parts[0] == "crm" && parts[2] == "objects":
		a.serveCRM(w, r, parts[3], parts[4:])
	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "no route"})
	}
}

func (a *FakeAPI) serveOData(w http.ResponseWriter, r *http.Request, name string) {
	q := r.URL.Query()
	top, _ := strconv.Atoi(q.Get("$top"))
	skip, _ := strconv.Atoi(q.Get("$skip"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"value": a.slice(name, skip, top)})
}

func (a *FakeAPI) servePaged(w http.ResponseWriter, r *http.Request, name string) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 || size < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "bad paging"})
		return
	}
	total := len(a.collections[name])
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": a.slice(name, (page-1)*size, size),
		"pagination": map[string]interface{}{
			"total_pages": (total + size - 1) / size,
			"total_count": total,
		},
	})
}

func (a *FakeAPI) slice(name string, from, n int) []interface{} {
	all := a.collections[name]
	out := []interface{}{}
	for i := from; i < len(all) && i < from+n; i++ {
		out = append(out, all[i])
	}
	return out
}

func (a *FakeAPI) serveCRM(w http.ResponseWriter, r *http.Request, entity string, rest []string) {
	store := a.objects[entity]
	if store == nil {
		store = make(map[string]map[string]interface{})
		a.objects[entity] = store
	}

	switch {
	case len(rest) == 1 && rest[0] == "search" && r.Method == http.MethodPost:
		var req struct {
			FilterGroups []struct {
				Filters []struct {
					PropertyName string `json:"propertyName"`
					Value        string `json:"value"`
				} `json:"filters"`
			} `json:"filterGroups"`
		}
		if err := readJSON(r.Body, &req); err != nil || len(req.FilterGroups) == 0 || len(req.FilterGroups[0].Filters) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "bad search"})
			return
		}
		f := req.FilterGroups[0].Filters[0]
		results := []interface{}{}
		for id, props := range store {
			if v, ok := props[f.PropertyName]; ok && v == f.Value {
				results = append(results, map[string]interface{}{"id": id, "properties": props})
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"total": len(results), "results": results})

	case len(rest) == 0 && r.Method == http.MethodPost:
		props, status := a.readProperties(r)
		if status != 0 {
			writeJSON(w, status, map[string]interface{}{"message": "write rejected"})
			return
		}
		a.nextID++
		id := strconv.Itoa(a.nextID)
		store[id] = props
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "properties": props})

	case len(rest) == 1 && r.Method == http.MethodGet:
		id, ok := a.lookup(store, rest[0], r.URL.Query().Get("idProperty"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "resource not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "properties": store[id]})

	case len(rest) == 1 && r.Method == http.MethodPatch:
		id, ok := a.lookup(store, rest[0], r.URL.Query().Get("idProperty"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "resource not found"})
			return
		}
		props, status := a.readProperties(r)
		if status != 0 {
			writeJSON(w, status, map[string]interface{}{"message": "write rejected"})
			return
		}
		for k, v := range props {
			store[id][k] = v
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "properties": store[id]})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"message": "unsupported"})
	}
}

func (a *FakeAPI) lookup(store map[string]map[string]interface{}, key, idProperty string) (string, bool) {
	if idProperty == "" {
		_, ok := store[key]
		return key, ok
	}
	for id, props := range store {
		if props[idProperty] == key {
			return id, true
		}
	}
	return "", false
}

func (a *FakeAPI) readProperties(r *http.Request) (map[string]interface{}, int) {
	var body struct {
		Properties map[string]interface{} `json:"properties"`
	}
	if err := readJSON(r.Body, &body); err != nil {
		return nil, http.StatusBadRequest
	}
	for _, v := range body.Properties {
		if s, ok := v.(string); ok {
			if status, fail := a.failWrites[s]; fail {
				return nil, status
			}
		}
	}
	if body.Properties == nil {
		body.Properties = map[string]interface{}{}
	}
	return body.Properties, 0
}

func readJSON(r io.Reader, v interface{}) error {
	return jsonpool.Decode(r, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := jsonpool.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
