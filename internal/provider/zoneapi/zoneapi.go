// Package zoneapi implements provider.Provider for DNS hosts exposing the
// key-pair authenticated /v1/zones management API.
package zoneapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/metrics"
	"github.com/evanofslack/dyndns/internal/provider"
)

const apiKeyHeader = "X-API-Key"

var _ provider.Provider = (*Client)(nil)

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	token   string
	http    Httper
	metrics *metrics.Metrics
}

func New(cfg config.API, metrics *metrics.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("zone api base url required")
	}
	creds := cfg.Credentials()
	if creds.PublicKey == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("zone api key pair required")
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   creds.Token(),
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: metrics,
	}, nil
}

// zoneID decodes ids sent either as JSON strings or numbers.
type zoneID string

func (z *zoneID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*z = zoneID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode zone id %s: %w", data, err)
	}
	*z = zoneID(n.String())
	return nil
}

type apiZone struct {
	ID   zoneID `json:"id"`
	Name string `json:"name"`
}

type apiZoneDetail struct {
	apiZone
	Records []provider.Record `json:"records"`
}

func (c *Client) ListZones(ctx context.Context) ([]provider.Zone, error) {
	slog.Debug("Getting zones")
	var out []apiZone
	if err := c.do(ctx, http.MethodGet, "/v1/zones", nil, &out); err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	zones := make([]provider.Zone, 0, len(out))
	for _, z := range out {
		zones = append(zones, provider.Zone{ID: string(z.ID), Name: z.Name})
	}
	slog.Debug("Retrieved zones", "count", len(zones))
	return zones, nil
}

// FindZoneID returns the id of the first zone whose name equals domain.
func (c *Client) FindZoneID(ctx context.Context, domain string) (string, error) {
	zones, err := c.ListZones(ctx)
	if err != nil {
		return "", err
	}
	for _, z := range zones {
		if z.Name == domain {
			slog.Debug("Found zone", "domain", domain, "id", z.ID)
			return z.ID, nil
		}
	}
	return "", &provider.ZoneNotFoundError{Domain: domain}
}

func (c *Client) ListRecords(ctx context.Context, domain string) ([]provider.Record, error) {
	id, err := c.FindZoneID(ctx, domain)
	if err != nil {
		return nil, err
	}
	var out apiZoneDetail
	if err := c.do(ctx, http.MethodGet, zonePath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get records for zone %s: %w", domain, err)
	}
	slog.Debug("Retrieved records", "domain", domain, "count", len(out.Records))
	return out.Records, nil
}

// UpsertRecord writes record into zone with PATCH, replacing any record with
// the same name and type.
func (c *Client) UpsertRecord(ctx context.Context, zone string, record provider.Record) error {
	return c.write(ctx, http.MethodPatch, zone, record)
}

func (c *Client) CreateRecord(ctx context.Context, zone string, record provider.Record) error {
	return c.write(ctx, http.MethodPost, zone, record)
}

func (c *Client) write(ctx context.Context, method, zone string, record provider.Record) error {
	id, err := c.FindZoneID(ctx, strings.TrimSuffix(zone, "."))
	if err != nil {
		return err
	}

	slog.Info("Writing DNS record", "method", method, "zone", zone, "name", record.Name, "type", record.Type, "content", record.Content, "ttl", record.TTL)
	start := time.Now()
	if err := c.do(ctx, method, zonePath(id), record, nil); err != nil {
		return fmt.Errorf("write record %s: %w", record.Name, err)
	}
	slog.Debug("Wrote DNS record", "name", record.Name, "zone", id, "duration", time.Since(start))
	return nil
}

// do sends one request and decodes a 200 response into out. Any other status
// returns a *provider.APIError.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		slog.Debug("Data being sent", "path", path, "body", string(data))
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.token)
	if method != http.MethodGet {
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Content-Type", "application/json")
	}

	op := operation(method)
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.IncDNSRequest(op, false, 0)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncDNSRequest(op, false, resp.StatusCode)
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncDNSRequest(op, false, resp.StatusCode)
		return &provider.APIError{StatusCode: resp.StatusCode, Body: decodeBody(data)}
	}
	c.metrics.IncDNSRequest(op, true, resp.StatusCode)

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeBody(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err == nil {
		return v
	}
	return strings.TrimSpace(string(data))
}

func zonePath(id string) string {
	return "/v1/zones/" + url.PathEscape(id)
}

func operation(method string) string {
	switch method {
	case http.MethodPatch:
		return "update"
	case http.MethodPost:
		return "create"
	}
	return "read"
}

