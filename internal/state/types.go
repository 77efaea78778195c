package state

import "time"

type State struct {
	Hosts map[string]HostState
}

// HostState records what dyndns last saw and wrote for one FQDN.
type HostState struct {
	Address     string `json:"address"`
	LastSeen    int64  `json:"lastSeen"`
	LastUpdated int64  `json:"lastUpdated,omitempty"`
}

func (h HostState) LastSeenTime() time.Time {
	return time.Unix(h.LastSeen, 0)
}

// LastUpdatedTime is the zero time when the host was never written.
func (h HostState) LastUpdatedTime() time.Time {
	if h.LastUpdated == 0 {
		return time.Time{}
	}
	return time.Unix(h.LastUpdated, 0)
}

func newState() State {
	return State{Hosts: make(map[string]HostState)}
}
