package zoneapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/libdns/libdns"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/metrics"
	"github.com/evanofslack/dyndns/internal/provider"
)

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakeAPI serves /v1/zones and records every request it receives.
type fakeAPI struct {
	mu       sync.Mutex
	zones    string
	detail   map[string]string
	status   int
	body     string
	requests []capturedRequest
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	req := capturedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &req.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/zones":
		_, _ = io.WriteString(w, f.zones)
	case r.Method == http.MethodGet:
		id := r.URL.Path[len("/v1/zones/"):]
		detail, ok := f.detail[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not found"}`)
			return
		}
		_, _ = io.WriteString(w, detail)
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func (f *fakeAPI) writes() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []capturedRequest
	for _, r := range f.requests {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(config.API{
		BaseURL:    srv.URL + "/",
		PublicKey:  "pub",
		PrivateKey: "priv",
		Timeout:    5 * time.Second,
	}, metrics.New(false))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

const testZones = `[{"id":"1","name":"a.com"},{"id":2,"name":"b.com"},{"id":"3","name":"b.com"}]`

func TestFindZoneID(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		expected string
		notFound bool
	}{
		{name: "string id", domain: "a.com", expected: "1"},
		{name: "numeric id first match wins", domain: "b.com", expected: "2"},
		{name: "no match", domain: "c.com", notFound: true},
		{name: "no suffix matching", domain: "x.a.com", notFound: true},
	}

	c := newTestClient(t, &fakeAPI{zones: testZones})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := c.FindZoneID(context.Background(), tt.domain)
			if tt.notFound {
				var nf *provider.ZoneNotFoundError
				if !errors.As(err, &nf) {
					t.Fatalf("expected ZoneNotFoundError, got %v", err)
				}
				if nf.Domain != tt.domain {
					t.Errorf("expected domain %q in error, got %q", tt.domain, nf.Domain)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != tt.expected {
				t.Errorf("FindZoneID(%q) = %q, want %q", tt.domain, id, tt.expected)
			}
		})
	}
}

func TestListZones(t *testing.T) {
	api := &fakeAPI{zones: testZones}
	c := newTestClient(t, api)

	zones, err := c.ListZones(context.Background())
	if err != nil {
		t.Fatalf("ListZones failed: %v", err)
	}
	expected := []provider.Zone{{ID: "1", Name: "a.com"}, {ID: "2", Name: "b.com"}, {ID: "3", Name: "b.com"}}
	if diff := cmp.Diff(expected, zones); diff != "" {
		t.Errorf("ListZones mismatch (-want +got):\n%s", diff)
	}

	got := api.requests[0].Header.Get("X-API-Key")
	if got != "pub.priv" {
		t.Errorf("expected X-API-Key pub.priv, got %q", got)
	}
}

func TestListRecords(t *testing.T) {
	api := &fakeAPI{
		zones: testZones,
		detail: map[string]string{
			"1": `{"id":"1","name":"a.com","records":[
				{"name":"home.a.com","type":"A","content":"203.0.113.7","ttl":3600,"prio":0,"disabled":"false"},
				{"name":"old.a.com","type":"A","content":"203.0.113.1","ttl":60,"prio":0,"disabled":true}
			]}`,
		},
	}
	c := newTestClient(t, api)

	records, err := c.ListRecords(context.Background(), "a.com")
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	expected := []provider.Record{
		{Name: "home.a.com", Type: "A", Content: "203.0.113.7", TTL: 3600},
		{Name: "old.a.com", Type: "A", Content: "203.0.113.1", TTL: 60, Disabled: true},
	}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Errorf("ListRecords mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRecord(t *testing.T) {
	tests := []struct {
		name   string
		write  func(*Client, context.Context, string, provider.Record) error
		method string
	}{
		{name: "upsert uses patch", write: (*Client).UpsertRecord, method: http.MethodPatch},
		{name: "create uses post", write: (*Client).CreateRecord, method: http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{zones: `[{"id":"7","name":"example.com"}]`}
			c := newTestClient(t, api)

			record := provider.NewRecord("home.example.com", "203.0.113.9")
			if err := tt.write(c, context.Background(), "example.com", record); err != nil {
				t.Fatalf("write failed: %v", err)
			}

			writes := api.writes()
			if len(writes) != 1 {
				t.Fatalf("expected 1 write, got %d", len(writes))
			}
			w := writes[0]
			if w.Method != tt.method {
				t.Errorf("expected method %s, got %s", tt.method, w.Method)
			}
			if w.Path != "/v1/zones/7" {
				t.Errorf("expected path /v1/zones/7, got %s", w.Path)
			}

			headers := map[string]string{
				"X-API-Key":    "pub.priv",
				"Accept":       "*/*",
				"Content-Type": "application/json",
			}
			for k, v := range headers {
				if got := w.Header.Get(k); got != v {
					t.Errorf("expected header %s=%q, got %q", k, v, got)
				}
			}

			expectedBody := map[string]any{
				"name":     "home.example.com",
				"type":     "A",
				"content":  "203.0.113.9",
				"ttl":      float64(3600),
				"prio":     float64(0),
				"disabled": "false",
			}
			if diff := cmp.Diff(expectedBody, w.Body); diff != "" {
				t.Errorf("request body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteRecordErrors(t *testing.T) {
	tests := []struct {
		name   string
		api    *fakeAPI
		wrap   func(Httper) Httper
		record provider.Record
		check  func(t *testing.T, err error)
	}{
		{
			name: "unauthorized",
			api:  &fakeAPI{zones: `[{"id":"1","name":"example.com"}]`},
			wrap: func(next Httper) Httper {
				return &rejectWrites{next: next, status: http.StatusUnauthorized, body: `{"message":"unauthorized"}`}
			},
			record: provider.NewRecord("home.example.com", "203.0.113.9"),
			check: func(t *testing.T, err error) {
				var apiErr *provider.APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected APIError, got %v", err)
				}
				if apiErr.StatusCode != http.StatusUnauthorized {
					t.Errorf("expected status 401, got %d", apiErr.StatusCode)
				}
				if diff := cmp.Diff(map[string]any{"message": "unauthorized"}, apiErr.Body); diff != "" {
					t.Errorf("body mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:   "zone missing",
			api:    &fakeAPI{zones: `[{"id":"1","name":"other.com"}]`},
			record: provider.NewRecord("home.example.com", "203.0.113.9"),
			check: func(t *testing.T, err error) {
				var nf *provider.ZoneNotFoundError
				if !errors.As(err, &nf) || nf.Domain != "example.com" {
					t.Fatalf("expected ZoneNotFoundError for example.com, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.api)
			if tt.wrap != nil {
				c.http = tt.wrap(c.http)
			}
			err := c.UpsertRecord(context.Background(), "example.com", tt.record)
			tt.check(t, err)
		})
	}
}

func TestLibdnsSetRecords(t *testing.T) {
	tests := []struct {
		name     string
		zone     string
		record   string
		wantName string
	}{
		{name: "apex", zone: "example.com.", record: "@", wantName: "example.com"},
		{name: "relative host", zone: "example.com.", record: "home", wantName: "home.example.com"},
		{name: "multi label", zone: "example.com.", record: "a.b", wantName: "a.b.example.com"},
		{name: "zone without dot", zone: "example.com", record: "home", wantName: "home.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{zones: `[{"id":"42","name":"example.com"}]`}
			l := &provider.Libdns{Provider: newTestClient(t, api)}

			recs := []libdns.Record{libdns.Address{Name: tt.record, TTL: time.Minute, IP: netip.MustParseAddr("203.0.113.9")}}
			done, err := l.SetRecords(context.Background(), tt.zone, recs)
			if err != nil {
				t.Fatalf("SetRecords failed: %v", err)
			}
			if len(done) != 1 {
				t.Errorf("expected 1 record set, got %d", len(done))
			}

			writes := api.writes()
			if len(writes) != 1 {
				t.Fatalf("expected 1 write, got %d", len(writes))
			}
			if writes[0].Method != http.MethodPatch || writes[0].Path != "/v1/zones/42" {
				t.Errorf("expected PATCH /v1/zones/42, got %s %s", writes[0].Method, writes[0].Path)
			}
			if got := writes[0].Body["name"]; got != tt.wantName {
				t.Errorf("expected record name %q, got %v", tt.wantName, got)
			}
			if got := writes[0].Body["ttl"]; got != float64(60) {
				t.Errorf("expected ttl 60, got %v", got)
			}
		})
	}
}

func TestReadErrorStatus(t *testing.T) {
	c := newTestClient(t, &fakeAPI{status: http.StatusInternalServerError, body: "upstream exploded"})

	_, err := c.ListZones(context.Background())
	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.StatusCode)
	}
	if apiErr.Body != "upstream exploded" {
		t.Errorf("expected raw text body, got %#v", apiErr.Body)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.API
	}{
		{name: "missing base url", cfg: config.API{PublicKey: "pub", PrivateKey: "priv"}},
		{name: "missing private key", cfg: config.API{BaseURL: "https://dns.example.net", PublicKey: "pub"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, metrics.New(false)); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

// rejectWrites answers every non-GET request with a fixed status.
type rejectWrites struct {
	next   Httper
	status int
	body   string
}

func (r *rejectWrites) Do(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet {
		return r.next.Do(req)
	}
	rec := httptest.NewRecorder()
	rec.WriteHeader(r.status)
	_, _ = io.WriteString(rec, r.body)
	return rec.Result(), nil
}
