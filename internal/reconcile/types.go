package reconcile

import (
	"net/netip"

	"github.com/evanofslack/dyndns/internal/provider"
)

// Decision outcomes, also used as metric labels.
const (
	DecisionUpdated   = "updated"
	DecisionUnchanged = "unchanged"
	DecisionDryRun    = "dry_run"
	DecisionFailed    = "failed"
)

type Result struct {
	Host    string
	Address netip.Addr
	// Published holds the addresses the resolver returned, empty when the
	// lookup was skipped or failed.
	Published []netip.Addr
	Forced    bool
	Required  bool
	Updated   bool
	DryRun    bool
	// Record is the record written, or the one a dry run would write.
	Record *provider.Record
}

func (r Result) Decision() string {
	switch {
	case r.Updated:
		return DecisionUpdated
	case r.DryRun && r.Required:
		return DecisionDryRun
	case !r.Required:
		return DecisionUnchanged
	}
	return DecisionFailed
}
