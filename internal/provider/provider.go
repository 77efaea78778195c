package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	TypeA      = "A"
	DefaultTTL = 3600
)

type Provider interface {
	ListZones(ctx context.Context) ([]Zone, error)
	FindZoneID(ctx context.Context, domain string) (string, error)
	ListRecords(ctx context.Context, domain string) ([]Record, error)
	// UpsertRecord and CreateRecord write record into the zone named zone.
	// record.Name is fully qualified and may equal zone.
	UpsertRecord(ctx context.Context, zone string, record Record) error
	CreateRecord(ctx context.Context, zone string, record Record) error
}

type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is keyed by (Name, Type). Name is the fully qualified name.
type Record struct {
	Name     string
	Type     string
	Content  string
	TTL      int
	Priority int
	Disabled bool
}

// wireRecord is the JSON form of Record. The API carries disabled as a
// string.
type wireRecord struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Content  string          `json:"content"`
	TTL      int             `json:"ttl"`
	Priority int             `json:"prio"`
	Disabled json.RawMessage `json:"disabled,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	disabled, err := json.Marshal(strconv.FormatBool(r.Disabled))
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireRecord{
		Name:     r.Name,
		Type:     r.Type,
		Content:  r.Content,
		TTL:      r.TTL,
		Priority: r.Priority,
		Disabled: disabled,
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	disabled, err := parseDisabled(w.Disabled)
	if err != nil {
		return err
	}
	*r = Record{
		Name:     w.Name,
		Type:     w.Type,
		Content:  w.Content,
		TTL:      w.TTL,
		Priority: w.Priority,
		Disabled: disabled,
	}
	return nil
}

// parseDisabled accepts a JSON bool or a JSON string holding a bool.
func parseDisabled(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("decode disabled: %w", err)
	}
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("decode disabled %q: %w", s, err)
	}
	return b, nil
}

type RecordOption func(*Record)

func WithTTL(ttl int) RecordOption {
	return func(r *Record) { r.TTL = ttl }
}

func WithPriority(prio int) RecordOption {
	return func(r *Record) { r.Priority = prio }
}

func WithDisabled(disabled bool) RecordOption {
	return func(r *Record) { r.Disabled = disabled }
}

func WithType(recordType string) RecordOption {
	return func(r *Record) { r.Type = recordType }
}

// NewRecord returns an enabled A record with the default TTL.
func NewRecord(fqdn, content string, opts ...RecordOption) Record {
	r := Record{
		Name:    fqdn,
		Type:    TypeA,
		Content: content,
		TTL:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// SplitName splits fqdn on its first dot into host label and domain.
func SplitName(fqdn string) (host, domain string, err error) {
	fqdn = strings.TrimSuffix(fqdn, ".")
	host, domain, ok := strings.Cut(fqdn, ".")
	if !ok || host == "" || domain == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidName, fqdn)
	}
	return host, domain, nil
}

var ErrInvalidName = errors.New("record name has no domain part")

type ZoneNotFoundError struct {
	Domain string
}

func (e *ZoneNotFoundError) Error() string {
	return fmt.Sprintf("no zone information found for domain '%s'", e.Domain)
}

// APIError is a non-200 response from the provider API. Body holds the
// decoded JSON response, or the raw text when it is not JSON.
type APIError struct {
	StatusCode int
	Body       any
}

func (e *APIError) Error() string {
	if s, ok := e.Body.(string); ok {
		return fmt.Sprintf("Error %d: %s", e.StatusCode, s)
	}
	body, err := json.Marshal(e.Body)
	if err != nil {
		return fmt.Sprintf("Error %d: %v", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("Error %d: %s", e.StatusCode, body)
}
