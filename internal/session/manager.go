package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"babytrack-go/internal/db"
	"babytrack-go/pkg/logger"
)

// DefaultIdleTimeout is how long a client's session survives without
// requests or open watchers.
const DefaultIdleTimeout = 30 * time.Minute

type clientKey struct {
	userID   string
	clientID string
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Manager keeps one Session per client of a user. Clients of the same user
// share the saved selection preference but select and watch independently.
type Manager struct {
	babies BabyLister
	roles  RoleResolver
	hub    Subscriber
	prefs  PreferenceStore
	log    logger.Logger

	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[clientKey]*entry
	closed   bool
}

func NewManager(babies BabyLister, roles RoleResolver, hub Subscriber, prefs PreferenceStore, log logger.Logger) *Manager {
	if prefs == nil {
		prefs = NewMemoryStore()
	}
	return &Manager{
		babies:      babies,
		roles:       roles,
		hub:         hub,
		prefs:       prefs,
		log:         log,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[clientKey]*entry),
	}
}

// Get returns the session of clientID for userID, initializing it on first
// use. Initialization talks to the store and runs without the manager lock;
// when two requests race, the first stored session wins. A failed
// initialization is not cached.
func (m *Manager) Get(ctx context.Context, userID, clientID string) (*Session, error) {
	key := clientKey{userID: userID, clientID: clientID}
	if sess, ok := m.lookup(key); ok {
		return sess, nil
	}

	sess := New(userID, m.babies, m.roles, m.hub, m.prefs)
	if err := sess.Init(ctx); err != nil {
		sess.Close()
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		sess.Close()
		return nil, ErrSessionClosed
	}

	now := m.now()
	if existing, ok := m.sessions[key]; ok {
		sess.Close()
		existing.lastUsed = now
		return existing.session, nil
	}

	m.evictIdleLocked(now)
	m.sessions[key] = &entry{session: sess, lastUsed: now}
	m.log.Debug("session.get: initialized", "user_id", userID, "client_id", clientID, "baby_id", sess.BabyID())
	return sess, nil
}

// Refresh re-resolves the role of every client session of userIDs. Called
// after collaborator changes so advisory flags stay current. Each lookup
// runs as the session's own user, not as the caller.
func (m *Manager) Refresh(ctx context.Context, userIDs ...string) {
	wanted := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		wanted[userID] = struct{}{}
	}

	m.mu.Lock()
	var targets []*Session
	for key, e := range m.sessions {
		if _, ok := wanted[key.userID]; ok {
			targets = append(targets, e.session)
		}
	}
	m.mu.Unlock()

	for _, sess := range targets {
		userID := sess.UserID()
		err := sess.Refresh(db.WithIdentity(ctx, db.Identity{UserID: userID}))
		if err != nil && !errors.Is(err, ErrSessionClosed) {
			m.log.Warn("session.refresh: failed", "user_id", userID, "error", err)
		}
	}
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for key, e := range m.sessions {
		e.session.Close()
		delete(m.sessions, key)
	}
}

func (m *Manager) lookup(key clientKey) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = m.now()
	return e.session, true
}

// evictIdleLocked drops sessions that have neither been used within the
// idle timeout nor have a watcher open.
func (m *Manager) evictIdleLocked(now time.Time) {
	if m.idleTimeout <= 0 {
		return
	}
	for key, e := range m.sessions {
		if now.Sub(e.lastUsed) < m.idleTimeout || e.session.watching() {
			continue
		}
		e.session.Close()
		delete(m.sessions, key)
		m.log.Debug("session.evict: idle session closed", "user_id", key.userID, "client_id", key.clientID)
	}
}
