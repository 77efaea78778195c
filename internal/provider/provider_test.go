package provider

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name       string
		fqdn       string
		wantHost   string
		wantDomain string
		wantErr    bool
	}{
		{name: "subdomain", fqdn: "home.example.com", wantHost: "home", wantDomain: "example.com"},
		{name: "deep subdomain", fqdn: "a.b.example.com", wantHost: "a", wantDomain: "b.example.com"},
		{name: "trailing dot", fqdn: "home.example.com.", wantHost: "home", wantDomain: "example.com"},
		{name: "no dot", fqdn: "localhost", wantErr: true},
		{name: "leading dot", fqdn: ".example.com", wantErr: true},
		{name: "empty", fqdn: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, domain, err := SplitName(tt.fqdn)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Fatalf("expected ErrInvalidName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.wantHost || domain != tt.wantDomain {
				t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.fqdn, host, domain, tt.wantHost, tt.wantDomain)
			}
		})
	}
}

func TestNewRecord(t *testing.T) {
	tests := []struct {
		name     string
		opts     []RecordOption
		expected Record
	}{
		{
			name:     "defaults",
			expected: Record{Name: "home.example.com", Type: "A", Content: "203.0.113.9", TTL: 3600},
		},
		{
			name:     "overrides",
			opts:     []RecordOption{WithTTL(300), WithPriority(10), WithDisabled(true), WithType("TXT")},
			expected: Record{Name: "home.example.com", Type: "TXT", Content: "203.0.113.9", TTL: 300, Priority: 10, Disabled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRecord("home.example.com", "203.0.113.9", tt.opts...)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("NewRecord mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewRecord("home.example.com", "203.0.113.9"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	expected := map[string]any{
		"name":     "home.example.com",
		"type":     "A",
		"content":  "203.0.113.9",
		"ttl":      float64(3600),
		"prio":     float64(0),
		"disabled": "false",
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("wire record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
		wantErr  bool
	}{
		{name: "string false", input: `{"name":"a.b.c","disabled":"false"}`, expected: false},
		{name: "string true", input: `{"name":"a.b.c","disabled":"true"}`, expected: true},
		{name: "bool true", input: `{"name":"a.b.c","disabled":true}`, expected: true},
		{name: "absent", input: `{"name":"a.b.c"}`, expected: false},
		{name: "null", input: `{"name":"a.b.c","disabled":null}`, expected: false},
		{name: "garbage", input: `{"name":"a.b.c","disabled":"nope"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Disabled != tt.expected {
				t.Errorf("Disabled = %v, want %v", r.Disabled, tt.expected)
			}
			if r.Name != "a.b.c" {
				t.Errorf("Name = %q, want a.b.c", r.Name)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "zone not found",
			err:      &ZoneNotFoundError{Domain: "c.com"},
			expected: "no zone information found for domain 'c.com'",
		},
		{
			name:     "api error with json body",
			err:      &APIError{StatusCode: 401, Body: map[string]any{"message": "unauthorized"}},
			expected: `Error 401: {"message":"unauthorized"}`,
		},
		{
			name:     "api error with text body",
			err:      &APIError{StatusCode: 502, Body: "bad gateway"},
			expected: "Error 502: bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}
