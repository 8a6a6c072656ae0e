// Package session glues the turn engine to a snapshot store: it loads a
// conversation's snapshot, runs one turn, and saves the result, serializing
// turns per conversation so concurrent requests cannot lose updates.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed process can hold a distributed
// conversation lock.
const DefaultLockTTL = 30 * time.Second

// Manager runs turns against stored conversations.
type Manager struct {
	engine  *parley.Engine
	store   ports.SnapshotStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	locks map[string]*convLock
}

type convLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocker adds cross-process serialization, needed when several hosts
// share one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) { m.locker = locker }
}

// WithLockTTL overrides the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a session manager over an engine and a store.
func NewManager(engine *parley.Engine, store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		lockTTL: DefaultLockTTL,
		logger:  slog.Default(),
		locks:   make(map[string]*convLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleTurn processes one user message for a conversation: load (or create)
// the snapshot, run the turn, save the result. Turns for the same
// conversation never interleave.
func (m *Manager) HandleTurn(ctx context.Context, conversationID, text string) (*parley.TurnResult, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID is required")
	}

	release := m.acquire(conversationID)
	defer release()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, conversationID, m.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("locking conversation: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("releasing conversation lock failed",
					"conversation", conversationID, "error", err)
			}
		}()
	}

	snap, err := m.store.Load(ctx, conversationID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		snap = m.engine.NewConversation(conversationID)
	} else if err != nil {
		return nil, err
	}

	res, err := m.engine.ProcessTurn(ctx, snap, text)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, conversationID, res.Snapshot); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return res, nil
}

// Reset forgets a conversation entirely.
func (m *Manager) Reset(ctx context.Context, conversationID string) error {
	release := m.acquire(conversationID)
	defer release()
	return m.store.Delete(ctx, conversationID)
}

// Conversations lists stored conversation IDs.
func (m *Manager) Conversations(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// acquire takes the in-process per-conversation lock, reference counted so
// idle entries do not accumulate.
func (m *Manager) acquire(conversationID string) func() {
	m.mu.Lock()
	cl, ok := m.locks[conversationID]
	if !ok {
		cl = &convLock{}
		m.locks[conversationID] = cl
	}
	cl.refs++
	m.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		m.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(m.locks, conversationID)
		}
		m.mu.Unlock()
	}
}
