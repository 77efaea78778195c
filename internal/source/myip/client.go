package myip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/evanofslack/dyndns/internal/metrics"
)

const DefaultURL = "https://api.myip.com"

var ErrExternalIP = errors.New("unable to establish current public IP address")

// ExternalIPError wraps any failure to learn the public address.
type ExternalIPError struct {
	URL string
	Err error
}

func (e *ExternalIPError) Error() string {
	return fmt.Sprintf("%s from %s: %v", ErrExternalIP, e.URL, e.Err)
}

func (e *ExternalIPError) Unwrap() error { return e.Err }

func (e *ExternalIPError) Is(target error) bool { return target == ErrExternalIP }

type Client interface {
	ExternalIP(ctx context.Context) (netip.Addr, error)
}

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

type client struct {
	serviceURL string
	http       Httper
	metrics    *metrics.Metrics
}

func New(serviceURL string, timeout time.Duration, metrics *metrics.Metrics) Client {
	if serviceURL == "" {
		serviceURL = DefaultURL
	}
	return &client{
		serviceURL: serviceURL,
		http:       &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
}

func (c *client) ExternalIP(ctx context.Context) (netip.Addr, error) {
	addr, err := c.lookup(ctx)
	c.metrics.IncIPLookup(err == nil)
	if err != nil {
		return netip.Addr{}, &ExternalIPError{URL: c.serviceURL, Err: err}
	}
	slog.Debug("External IP address", "ip", addr)
	return addr, nil
}

func (c *client) lookup(ctx context.Context) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL, nil)
	if err != nil {
		return netip.Addr{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return netip.Addr{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return netip.Addr{}, fmt.Errorf("ip service request, status=%d", resp.StatusCode)
	}

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return netip.Addr{}, fmt.Errorf("parse ip service response, err=%w", err)
	}
	if body.IP == "" {
		return netip.Addr{}, errors.New("ip service response missing field ip")
	}

	addr, err := netip.ParseAddr(body.IP)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse ip %q, err=%w", body.IP, err)
	}
	if !addr.Is4() && !addr.Is4In6() {
		return netip.Addr{}, fmt.Errorf("ip %s is not an ipv4 address", addr)
	}
	return addr.Unmap(), nil
}
