package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/libdns/libdns"

	"github.com/evanofslack/dyndns/internal/config"
	"github.com/evanofslack/dyndns/internal/metrics"
	"github.com/evanofslack/dyndns/internal/provider"
	"github.com/evanofslack/dyndns/internal/resolver"
	"github.com/evanofslack/dyndns/internal/state"
)

var ErrNotIPv4 = errors.New("address is not ipv4")

type Engine interface {
	Reconcile(ctx context.Context, fqdn string, addr netip.Addr, force bool) (Result, error)
}

// recordWriter is the libdns view of a provider used for record writes.
type recordWriter interface {
	libdns.RecordSetter
	libdns.RecordAppender
}

type engine struct {
	stateManager state.Manager
	records      recordWriter
	resolver     resolver.Resolver
	dryRun       bool
	method       string
	ttl          int
	metrics      *metrics.Metrics
}

func NewEngine(sm state.Manager, dp provider.Provider, res resolver.Resolver, cfg *config.Config, metrics *metrics.Metrics) *engine {
	return &engine{
		stateManager: sm,
		records:      &provider.Libdns{Provider: dp},
		resolver:     res,
		dryRun:       cfg.Record.DryRun,
		method:       cfg.Record.Method,
		ttl:          cfg.Record.TTL,
		metrics:      metrics,
	}
}

// Reconcile makes the A record for fqdn point at addr. Unless force is set
// the record is only written when the published addresses are not exactly
// {addr}. Provider errors are returned unchanged.
func (e *engine) Reconcile(ctx context.Context, fqdn string, addr netip.Addr, force bool) (Result, error) {
	fqdn = strings.TrimSuffix(strings.TrimSpace(fqdn), ".")
	addr = addr.Unmap()
	result := Result{Host: fqdn, Address: addr, Forced: force, DryRun: e.dryRun}

	if fqdn == "" {
		e.metrics.IncDecision(DecisionFailed)
		return result, fmt.Errorf("%w: empty name", provider.ErrInvalidName)
	}
	if !addr.Is4() {
		e.metrics.IncDecision(DecisionFailed)
		return result, fmt.Errorf("%w: %s", ErrNotIPv4, addr)
	}

	if !force {
		res := e.resolver.Lookup(ctx, fqdn)
		e.countResolution(res)
		switch {
		case res.Matches(addr):
			slog.Info("No update required", "host", fqdn, "ip", addr)
			result.Published = res.Addrs
			e.metrics.IncDecision(DecisionUnchanged)
			return result, e.saveState(ctx, fqdn, addr, false)
		case res.OK():
			result.Published = res.Addrs
			slog.Info("Published address differs", "host", fqdn, "published", res.Addrs, "ip", addr)
		case res.Err.NotFound:
			slog.Info("Unable to resolve host, assuming record is missing", "host", fqdn)
		default:
			slog.Warn("Failed to resolve host, proceeding with update", "host", fqdn, "error", res.Err)
		}
	} else {
		slog.Info("Forced update, skipping lookup", "host", fqdn)
	}

	result.Required = true
	record := provider.NewRecord(fqdn, addr.String(), provider.WithTTL(e.ttl))
	result.Record = &record
	slog.Debug("Update required", "host", fqdn, "record", record)

	if e.dryRun {
		slog.Info("Dry run mode - would write record", "method", e.method, "name", record.Name, "type", record.Type, "content", record.Content, "ttl", record.TTL)
		e.metrics.IncDecision(DecisionDryRun)
		return result, e.saveState(ctx, fqdn, addr, false)
	}

	if err := e.write(ctx, record); err != nil {
		slog.Error("Failed to write record", "name", record.Name, "error", err)
		e.metrics.IncDecision(DecisionFailed)
		return result, err
	}
	result.Updated = true
	e.metrics.IncDecision(DecisionUpdated)
	slog.Info("Updated record", "host", fqdn, "ip", addr)

	return result, e.saveState(ctx, fqdn, addr, true)
}

// write sends record to the zone formed by everything after its first label.
func (e *engine) write(ctx context.Context, record provider.Record) error {
	_, domain, err := provider.SplitName(record.Name)
	if err != nil {
		return err
	}
	zone := domain + "."
	rr, err := provider.ToLibdns(record, zone)
	if err != nil {
		return err
	}

	recs := []libdns.Record{rr}
	if e.method == config.MethodPost {
		_, err = e.records.AppendRecords(ctx, zone, recs)
	} else {
		_, err = e.records.SetRecords(ctx, zone, recs)
	}
	return err
}

func (e *engine) countResolution(res resolver.Result) {
	switch {
	case res.OK():
		e.metrics.IncResolution("found")
	case res.Err.NotFound:
		e.metrics.IncResolution("not_found")
	default:
		e.metrics.IncResolution("error")
	}
}

// saveState always refreshes LastSeen; Address and LastUpdated only move
// after a successful write.
func (e *engine) saveState(ctx context.Context, fqdn string, addr netip.Addr, written bool) error {
	st, err := e.stateManager.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if st.Hosts == nil {
		st.Hosts = make(map[string]state.HostState)
	}

	now := time.Now().Unix()
	hs := st.Hosts[fqdn]
	hs.LastSeen = now
	if written {
		hs.Address = addr.String()
		hs.LastUpdated = now
	}
	st.Hosts[fqdn] = hs

	if err := e.stateManager.SaveState(ctx, st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
