package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"time"
)

// System resolves through the operating system resolver.
type System struct {
	Resolver *net.Resolver
	Timeout  time.Duration
}

func (s *System) Lookup(ctx context.Context, host string) Result {
	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	addrs, err := r.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		var dnsErr *net.DNSError
		notFound := errors.As(err, &dnsErr) && dnsErr.IsNotFound
		return failed(host, notFound, err)
	}
	if len(addrs) == 0 {
		return failed(host, true, nil)
	}

	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Unmap())
	}
	slog.Debug("Resolved host", "host", host, "addrs", out, "resolver", "system")
	return Result{Addrs: out}
}
