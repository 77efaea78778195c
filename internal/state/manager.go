package state

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/evanofslack/dyndns/internal/metrics"
)

const hostPrefix = "host:"

type Manager interface {
	LoadState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, state State) error
	Close() error
}

type badgerManager struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

// New opens a badger backed manager at path, or an in-memory manager when
// path is empty.
func New(path string, metrics *metrics.Metrics) (Manager, error) {
	if path == "" {
		return NewMemory(), nil
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	m := &badgerManager{db: db, metrics: metrics}
	return m, nil
}

func (m *badgerManager) LoadState(ctx context.Context) (State, error) {
	state := newState()

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(hostPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			host := key[len(hostPrefix):]

			err := item.Value(func(val []byte) error {
				var hs HostState
				if err := json.Unmarshal(val, &hs); err != nil {
					return fmt.Errorf("decode state for %s: %w", host, err)
				}
				state.Hosts[host] = hs
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	m.metrics.IncBadgerRequest("read", err == nil)
	return state, err
}

// SaveState replaces the stored state. Hosts absent from state are removed.
func (m *badgerManager) SaveState(ctx context.Context, state State) error {
	txn := m.db.NewTransaction(true)
	defer txn.Discard()

	existingHosts := make(map[string]bool)

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	prefix := []byte(hostPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := string(it.Item().Key())
		existingHosts[key[len(hostPrefix):]] = true
	}
	it.Close()

	for host, hs := range state.Hosts {
		data, err := json.Marshal(hs)
		if err != nil {
			m.metrics.IncBadgerRequest("update", false)
			return err
		}
		if err := txn.Set([]byte(hostPrefix+host), data); err != nil {
			m.metrics.IncBadgerRequest("update", false)
			return err
		}
		delete(existingHosts, host)
	}

	for host := range existingHosts {
		if err := txn.Delete([]byte(hostPrefix + host)); err != nil {
			m.metrics.IncBadgerRequest("update", false)
			return err
		}
	}
	err := txn.Commit()
	m.metrics.IncBadgerRequest("update", err == nil)
	return err
}

func (m *badgerManager) Close() error {
	return m.db.Close()
}

type memoryManager struct {
	mu    sync.Mutex
	state State
}

// NewMemory returns a manager that keeps state for the life of the process.
func NewMemory() Manager {
	return &memoryManager{state: newState()}
}

func (m *memoryManager) LoadState(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Hosts: maps.Clone(m.state.Hosts)}, nil
}

func (m *memoryManager) SaveState(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hosts := maps.Clone(state.Hosts)
	if hosts == nil {
		hosts = make(map[string]HostState)
	}
	m.state = State{Hosts: hosts}
	return nil
}

func (m *memoryManager) Close() error { return nil }
