package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

const defaultDNSPort = "53"

// Nameserver queries one DNS server directly, bypassing local caches.
type Nameserver struct {
	server string
	client *dns.Client
}

func NewNameserver(server string, timeout time.Duration) *Nameserver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, defaultDNSPort)
	}
	c := new(dns.Client)
	if timeout > 0 {
		c.Timeout = timeout
	}
	return &Nameserver{server: server, client: c}
}

func (n *Nameserver) Lookup(ctx context.Context, host string) Result {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	r, _, err := n.client.ExchangeContext(ctx, m, n.server)
	if err != nil {
		return failed(host, false, err)
	}
	switch r.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return failed(host, true, fmt.Errorf("%s returned %s", n.server, dns.RcodeToString[r.Rcode]))
	default:
		return failed(host, false, fmt.Errorf("%s returned %s", n.server, dns.RcodeToString[r.Rcode]))
	}

	var addrs []netip.Addr
	for _, a := range r.Answer {
		rr, ok := a.(*dns.A)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(rr.A.To4()); ok {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return failed(host, true, nil)
	}
	slog.Debug("Resolved host", "host", host, "addrs", addrs, "resolver", n.server)
	return Result{Addrs: addrs}
}
