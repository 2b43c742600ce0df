package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Manager materializes sessions by client id. A session is restored from the
// state store the first time its client is seen.
type Manager struct {
	backend Backend
	state   StateStore
	sealer  *Sealer
	log     *zap.Logger

	sessions *xsync.MapOf[string, *entry]
}

type entry struct {
	session  *Session
	once     sync.Once
	err      error
	lastSeen atomic.Int64
}

type ManagerOption func(*Manager)

func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(b Backend, state StateStore, sealer *Sealer, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:  b,
		state:    state,
		sealer:   sealer,
		log:      zap.NewNop(),
		sessions: xsync.NewMapOf[string, *entry](),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for clientID, restoring it on first use. Callers
// racing on a new client all wait for the same restore.
func (m *Manager) Get(ctx context.Context, clientID string) (*Session, error) {
	e, ok := m.sessions.Load(clientID)
	if !ok {
		fresh := &entry{session: newSession(clientID, m.backend, m.state, m.sealer, m.log)}
		fresh.lastSeen.Store(time.Now().UnixNano())
		e, _ = m.sessions.LoadOrStore(clientID, fresh)
	}
	e.once.Do(func() {
		e.err = e.session.restore(ctx)
	})
	if e.err != nil {
		// Let the next request retry the restore.
		m.drop(clientID, e)
		return nil, fmt.Errorf("restore session: %w", e.err)
	}
	e.lastSeen.Store(time.Now().UnixNano())
	return e.session, nil
}

// drop removes clientID only while it still maps to e, so a waiter on a
// failed restore cannot evict a newer entry.
func (m *Manager) drop(clientID string, e *entry) bool {
	dropped := false
	m.sessions.Compute(clientID, func(old *entry, loaded bool) (*entry, bool) {
		if loaded && old == e {
			dropped = true
			return nil, true
		}
		return old, !loaded
	})
	return dropped
}

func (m *Manager) Len() int {
	return m.sessions.Size()
}

// EvictIdle drops in-memory sessions not used since cutoff. Persisted state
// is kept, so an evicted client is restored on its next request.
func (m *Manager) EvictIdle(cutoff time.Time) int {
	limit := cutoff.UnixNano()
	var idle []string
	m.sessions.Range(func(id string, e *entry) bool {
		if e.lastSeen.Load() < limit {
			idle = append(idle, id)
		}
		return true
	})
	evicted := 0
	for _, id := range idle {
		e, ok := m.sessions.Load(id)
		if ok && e.lastSeen.Load() < limit && m.drop(id, e) {
			evicted++
		}
	}
	return evicted
}
