// Package resolver looks up the IPv4 addresses currently published for a host.
//
// Failures are reported inside Result rather than as an error return: a host
// that cannot be resolved is a normal input to the update decision.
package resolver

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/evanofslack/dyndns/internal/config"
)

type Resolver interface {
	Lookup(ctx context.Context, host string) Result
}

type Result struct {
	Addrs []netip.Addr
	Err   *ResolutionError
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Matches reports whether the resolved set of addresses is exactly {addr}.
func (r Result) Matches(addr netip.Addr) bool {
	if !r.OK() || len(r.Addrs) == 0 {
		return false
	}
	for _, a := range r.Addrs {
		if a.Unmap() != addr.Unmap() {
			return false
		}
	}
	return true
}

type ResolutionError struct {
	Host     string
	NotFound bool
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("resolve %s: no A records found", e.Host)
	}
	return fmt.Sprintf("resolve %s: %v", e.Host, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func failed(host string, notFound bool, err error) Result {
	return Result{Err: &ResolutionError{Host: host, NotFound: notFound, Err: err}}
}

// New returns a Nameserver resolver when a nameserver is configured and the
// system resolver otherwise.
func New(cfg config.Resolver) Resolver {
	if cfg.Nameserver != "" {
		return NewNameserver(cfg.Nameserver, cfg.Timeout)
	}
	return &System{Timeout: cfg.Timeout}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
