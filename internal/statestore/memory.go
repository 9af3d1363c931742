package statestore

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

type memoryEntry struct {
	serverID  string
	expiresAt time.Time
}

// Memory is the single-process Store, backed by a sharded xsync map so the
// hot sticky lookup path never takes a global lock.
type Memory struct {
	entries *xsync.Map[string, memoryEntry]
	ttl     time.Duration
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{entries: xsync.NewMap[string, memoryEntry](), ttl: ttl}
}

func (m *Memory) GetSticky(cookieName, ticket string) (string, bool) {
	e, ok := m.entries.Load(key(cookieName, ticket))
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		m.entries.Delete(key(cookieName, ticket))
		return "", false
	}
	return e.serverID, true
}

func (m *Memory) PutSticky(cookieName, ticket, serverID string) {
	m.entries.Store(key(cookieName, ticket), memoryEntry{
		serverID:  serverID,
		expiresAt: time.Now().Add(m.ttl),
	})
}

func (m *Memory) Close() error { return nil }

// MemoryNodeRegistry is the single-process NodeRegistry: in the common
// standalone deployment (cluster.enabled=false) there is exactly one node
// and no real membership to track, but the admin API's routes still need a
// live collaborator to call.
type MemoryNodeRegistry struct {
	nodes   *xsync.Map[string, Node]
	timeout time.Duration
}

func NewMemoryNodeRegistry(nodeTimeout time.Duration) *MemoryNodeRegistry {
	if nodeTimeout <= 0 {
		nodeTimeout = DefaultTTL
	}
	return &MemoryNodeRegistry{nodes: xsync.NewMap[string, Node](), timeout: nodeTimeout}
}

func (r *MemoryNodeRegistry) Heartbeat(node Node) error {
	node.LastHeartbeat = time.Now()
	r.nodes.Store(node.ID, node)
	return nil
}

func (r *MemoryNodeRegistry) Nodes() ([]Node, error) {
	cutoff := time.Now().Add(-r.timeout)
	out := make([]Node, 0)
	r.nodes.Range(func(id string, n Node) bool {
		if n.LastHeartbeat.Before(cutoff) {
			r.nodes.Delete(id)
			return true
		}
		out = append(out, n)
		return true
	})
	return out, nil
}

func (r *MemoryNodeRegistry) SetDraining(nodeID string, draining bool) error {
	n, ok := r.nodes.Load(nodeID)
	if !ok {
		return nil
	}
	if draining {
		n.Status = NodeDraining
	} else {
		n.Status = NodeActive
	}
	r.nodes.Store(nodeID, n)
	return nil
}
