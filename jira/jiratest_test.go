package jira

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeAssets is an in-memory stand-in for the remote asset service. It
// serves workspace discovery, schema discovery and object CRUD from one
// httptest server; a rewriting RoundTripper points every outbound host at
// it, so discovery and API traffic both land here.
type fakeAssets struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	calls   map[string]int
	objects map[string]*fakeObject
	nextID  int
}

// fakeObject stores attribute values keyed by attribute ID, each value the
// raw JSON shape of one objectAttributeValues entry.
type fakeObject struct {
	ID       string
	TypeID   string
	TypeName string
	SchemaID string
	Attrs    map[string][]map[string]interface{}
}

// Attribute IDs of the Laptops object type in the fake schema.
const (
	attrName         = "1"
	attrModel        = "2"
	attrSerial       = "3"
	attrPurchaseDate = "4"
	attrPurchaseCost = "5"
	attrBuyoutPrice  = "6"
	attrDeviceAge    = "7"
	attrStatus       = "8"
	attrLocation     = "9"
)

func fv(s string) map[string]interface{} {
	return map[string]interface{}{"value": s}
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func newFakeAssets(t *testing.T) *fakeAssets {
	f := &fakeAssets{
		t:       t,
		calls:   make(map[string]int),
		objects: make(map[string]*fakeObject),
		nextID:  1000,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// client builds a Client whose traffic is rewritten to the fake server.
func (f *fakeAssets) client(t *testing.T, snapshots *SnapshotStore) *Client {
	transport := NewTransport(TransportConfig{
		Email:          "ops@example.com",
		APIToken:       "token",
		MaxRetries:     1,
		InitialBackoff: 1,
	}, zap.NewNop().Sugar())

	target, err := url.Parse(f.server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	transport.SetHTTPClient(&http.Client{Transport: &rewriteTransport{target: target}})

	schemas := NewSchemaCache(transport, "example", "Assets", snapshots, zap.NewNop().Sugar())
	return NewClientWithTransport(transport, schemas, zap.NewNop().Sugar())
}

// rewriteTransport sends every request to the fake server regardless of the
// host the client resolved.
type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func (f *fakeAssets) addLaptop(id string, attrs map[string][]map[string]interface{}) *fakeObject {
	obj := &fakeObject{
		ID:       id,
		TypeID:   "42",
		TypeName: "Laptops",
		SchemaID: "7",
		Attrs:    attrs,
	}
	f.mu.Lock()
	f.objects[id] = obj
	f.mu.Unlock()
	return obj
}

func (f *fakeAssets) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAssets) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/jsm/assets/workspace/ws-1/v1")
	path = strings.TrimPrefix(path, "/")
	key := r.Method + " " + path

	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/rest/servicedeskapi/assets/workspace":
		writeJSON(w, map[string]interface{}{
			"values": []map[string]string{{"workspaceId": "ws-1"}},
		})
	case path == "objectschema/list":
		writeJSON(w, map[string]interface{}{
			"values": []map[string]string{
				{"id": "7", "name": "Assets"},
				{"id": "9", "name": "HR"},
			},
		})
	case path == "objectschema/7/objecttypes/flat":
		writeJSON(w, []map[string]string{
			{"id": "42", "name": "Laptops"},
			{"id": "43", "name": "Phones"},
		})
	case path == "objecttype/42/attributes" || path == "objecttype/43/attributes":
		writeJSON(w, laptopAttributeDefs())
	case path == "object/aql" && r.Method == http.MethodPost:
		f.handleAQL(w, r)
	case path == "object/create" && r.Method == http.MethodPost:
		f.handleCreate(w, r)
	case strings.HasPrefix(path, "object/"):
		f.handleObject(w, r, strings.TrimPrefix(path, "object/"))
	default:
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"errorMessage": "no such endpoint: " + path})
	}
}

func laptopAttributeDefs() []map[string]interface{} {
	defaultType := func(name string) map[string]interface{} {
		return map[string]interface{}{"id": "0", "name": name}
	}
	return []map[string]interface{}{
		{"id": attrName, "name": "Name", "type": 0, "defaultType": defaultType("Text")},
		{"id": attrModel, "name": "Model", "type": 0, "defaultType": defaultType("Text")},
		{"id": attrSerial, "name": "Serial Number", "type": 0, "defaultType": defaultType("Text")},
		{"id": attrPurchaseDate, "name": "Purchase Date", "type": 0, "defaultType": defaultType("Date")},
		{"id": attrPurchaseCost, "name": "Purchase Cost", "type": 0, "defaultType": defaultType("Float")},
		{"id": attrBuyoutPrice, "name": "Buyout Price", "type": 0, "defaultType": defaultType("Float")},
		{"id": attrDeviceAge, "name": "Device Age", "type": 0, "defaultType": defaultType("Integer")},
		{"id": attrStatus, "name": "Status", "type": 7},
		{"id": attrLocation, "name": "Location", "type": 1},
	}
}

func (f *fakeAssets) handleObject(w http.ResponseWriter, r *http.Request, id string) {
	// magic ID that simulates a revoked credential mid-batch
	if id == "locked" {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"errorMessage": "Client must be authenticated"})
		return
	}

	f.mu.Lock()
	obj, ok := f.objects[id]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"errorMessage": fmt.Sprintf("Object with id %s not found", id)})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, obj.wire())
	case http.MethodPut:
		var payload struct {
			ObjectTypeID string `json:"objectTypeId"`
			Attributes   []struct {
				ObjectTypeAttributeID string `json:"objectTypeAttributeId"`
				Values                []struct {
					Value string `json:"value"`
				} `json:"objectAttributeValues"`
			} `json:"attributes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]string{"errorMessage": "malformed payload"})
			return
		}
		f.mu.Lock()
		for _, a := range payload.Attributes {
			values := make([]map[string]interface{}, 0, len(a.Values))
			for _, v := range a.Values {
				values = append(values, fv(v.Value))
			}
			obj.Attrs[a.ObjectTypeAttributeID] = values
		}
		f.mu.Unlock()
		writeJSON(w, obj.wire())
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeAssets) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ObjectTypeID string `json:"objectTypeId"`
		Attributes   []struct {
			ObjectTypeAttributeID string `json:"objectTypeAttributeId"`
			Values                []struct {
				Value string `json:"value"`
			} `json:"objectAttributeValues"`
		} `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"errorMessage": "malformed payload"})
		return
	}

	f.mu.Lock()
	f.nextID++
	id := strconv.Itoa(f.nextID)
	obj := &fakeObject{
		ID:       id,
		TypeID:   payload.ObjectTypeID,
		TypeName: "Laptops",
		SchemaID: "7",
		Attrs:    make(map[string][]map[string]interface{}),
	}
	for _, a := range payload.Attributes {
		values := make([]map[string]interface{}, 0, len(a.Values))
		for _, v := range a.Values {
			values = append(values, fv(v.Value))
		}
		obj.Attrs[a.ObjectTypeAttributeID] = values
	}
	f.objects[id] = obj
	f.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, obj.wire())
}

// handleAQL pages over all stored objects in ID order, ignoring the filter
// text itself.
func (f *fakeAssets) handleAQL(w http.ResponseWriter, r *http.Request) {
	startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
	if maxResults <= 0 {
		maxResults = 25
	}

	var body struct {
		QLQuery string `json:"qlQuery"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.QLQuery == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"errorMessage": "missing qlQuery"})
		return
	}
	if strings.Contains(body.QLQuery, "syntax-error") {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"errorMessage": "Invalid AQL syntax near 'syntax-error'"})
		return
	}

	f.mu.Lock()
	ids := make([]string, 0, len(f.objects))
	for id := range f.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	values := make([]interface{}, 0)
	for i := startAt; i < len(ids) && len(values) < maxResults; i++ {
		values = append(values, f.objects[ids[i]].wire())
	}
	total := len(ids)
	f.mu.Unlock()

	writeJSON(w, map[string]interface{}{
		"startAt":    startAt,
		"maxResults": maxResults,
		"total":      total,
		"isLast":     startAt+len(values) >= total,
		"values":     values,
	})
}

func (o *fakeObject) wire() map[string]interface{} {
	attrIDs := make([]string, 0, len(o.Attrs))
	for id := range o.Attrs {
		attrIDs = append(attrIDs, id)
	}
	sort.Strings(attrIDs)

	attrs := make([]map[string]interface{}, 0, len(o.Attrs))
	for _, id := range attrIDs {
		attrs = append(attrs, map[string]interface{}{
			"objectTypeAttributeId": id,
			"objectAttributeValues": o.Attrs[id],
		})
	}
	return map[string]interface{}{
		"id":    o.ID,
		"label": "LAP-" + o.ID,
		"objectType": map[string]interface{}{
			"id":             o.TypeID,
			"name":           o.TypeName,
			"objectSchemaId": o.SchemaID,
		},
		"attributes": attrs,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
