package provider

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/libdns/libdns"
)

// Libdns exposes a Provider through the libdns interfaces. Zone names may
// carry a trailing dot; record names are relative to the zone.
type Libdns struct {
	Provider Provider
}

var (
	_ libdns.RecordGetter   = (*Libdns)(nil)
	_ libdns.RecordAppender = (*Libdns)(nil)
	_ libdns.RecordSetter   = (*Libdns)(nil)
	_ libdns.ZoneLister     = (*Libdns)(nil)
)

func FromLibdns(r libdns.Record, zone string) Record {
	rr := r.RR()
	return NewRecord(
		strings.TrimSuffix(libdns.AbsoluteName(rr.Name, zone), "."),
		rr.Data,
		WithType(rr.Type),
		WithTTL(int(rr.TTL/time.Second)),
	)
}

func ToLibdns(r Record, zone string) (libdns.Record, error) {
	name := libdns.RelativeName(r.Name, zone)
	ttl := time.Duration(r.TTL) * time.Second
	switch r.Type {
	case TypeA:
		addr, err := netip.ParseAddr(r.Content)
		if err != nil {
			return nil, fmt.Errorf("fail parse ip addr %s, err=%w", r.Content, err)
		}
		return libdns.Address{Name: name, TTL: ttl, IP: addr}, nil
	default:
		rr := libdns.RR{Name: name, TTL: ttl, Type: r.Type, Data: r.Content}
		return rr.Parse()
	}
}

func (l *Libdns) ListZones(ctx context.Context) ([]libdns.Zone, error) {
	zones, err := l.Provider.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]libdns.Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, libdns.Zone{Name: z.Name + "."})
	}
	return out, nil
}

func (l *Libdns) GetRecords(ctx context.Context, zone string) ([]libdns.Record, error) {
	records, err := l.Provider.ListRecords(ctx, trimZone(zone))
	if err != nil {
		return nil, err
	}
	out := make([]libdns.Record, 0, len(records))
	for _, r := range records {
		rec, err := ToLibdns(absolute(r, zone), zone)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// AppendRecords creates every record in zone.
func (l *Libdns) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	return l.write(ctx, zone, recs, l.Provider.CreateRecord)
}

// SetRecords upserts every record in zone. Records not named are left alone.
func (l *Libdns) SetRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	return l.write(ctx, zone, recs, l.Provider.UpsertRecord)
}

func (l *Libdns) write(ctx context.Context, zone string, recs []libdns.Record, fn func(context.Context, string, Record) error) ([]libdns.Record, error) {
	done := make([]libdns.Record, 0, len(recs))
	for _, rec := range recs {
		r := FromLibdns(rec, zone)
		if err := fn(ctx, trimZone(zone), r); err != nil {
			return done, err
		}
		done = append(done, rec)
	}
	return done, nil
}

// absolute qualifies record names the API returned relative to the zone.
func absolute(r Record, zone string) Record {
	domain := trimZone(zone)
	name := strings.TrimSuffix(r.Name, ".")
	if name == "" || name == "@" {
		r.Name = domain
	} else if name != domain && !strings.HasSuffix(name, "."+domain) {
		r.Name = name + "." + domain
	} else {
		r.Name = name
	}
	return r
}

func trimZone(zone string) string {
	return strings.TrimSuffix(zone, ".")
}
