package session

import (
	"context"
	"errors"
	"iter"
	"sync"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
	"babytrack-go/internal/realtime"
)

var ErrSessionClosed = errors.New("session closed")

type BabyLister interface {
	// ListBabies returns the babies the user may access, most recently
	// created first.
	ListBabies(ctx context.Context, actorID string) ([]baby.BabyWithRole, error)
}

type RoleResolver interface {
	ResolveRole(ctx context.Context, babyID, userID string) (access.Role, error)
}

type Subscriber interface {
	Subscribe(babyID string, tables ...string) *realtime.Subscription
}

// Session is one client's "which baby, which role" context. Every Watcher
// opened on it holds its own realtime subscription for the selected baby.
// Role flags are advisory; the services check access again on every call.
type Session struct {
	userID string
	babies BabyLister
	roles  RoleResolver
	hub    Subscriber
	prefs  PreferenceStore

	mu         sync.Mutex
	babyID     string
	role       access.Role
	generation uint64
	watchers   map[*Watcher]struct{}
	changed    chan struct{}
	closed     bool
}

func New(userID string, babies BabyLister, roles RoleResolver, hub Subscriber, prefs PreferenceStore) *Session {
	return &Session{
		userID:   userID,
		babies:   babies,
		roles:    roles,
		hub:      hub,
		prefs:    prefs,
		watchers: make(map[*Watcher]struct{}),
		changed:  make(chan struct{}),
	}
}

// Init restores the saved selection when the user can still access it,
// otherwise selects the most recently created accessible baby. A user with
// no babies ends up with an empty selection.
func (s *Session) Init(ctx context.Context) error {
	saved, err := s.prefs.Load(ctx, s.userID)
	if err != nil {
		return err
	}
	if saved != "" {
		role, err := s.roles.ResolveRole(ctx, saved, s.userID)
		if err != nil {
			return err
		}
		if role != access.RoleNone {
			return s.apply(saved, role)
		}
	}
	return s.fallback(ctx)
}

// SelectBaby switches the selection, re-resolving the role first. Every
// open Watcher moves to the new baby.
func (s *Session) SelectBaby(ctx context.Context, babyID string) error {
	role, err := s.roles.ResolveRole(ctx, babyID, s.userID)
	if err != nil {
		return err
	}
	if role == access.RoleNone {
		return access.ErrPermissionDenied
	}
	if err := s.apply(babyID, role); err != nil {
		return err
	}
	return s.prefs.Save(ctx, s.userID, babyID)
}

// Refresh re-resolves the role for the current selection, falling back to
// another baby when access was revoked.
func (s *Session) Refresh(ctx context.Context) error {
	current := s.BabyID()
	if current == "" {
		return s.fallback(ctx)
	}
	role, err := s.roles.ResolveRole(ctx, current, s.userID)
	if err != nil {
		return err
	}
	if role == access.RoleNone {
		return s.fallback(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.babyID == current {
		s.role = role
	}
	return nil
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) BabyID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.babyID
}

func (s *Session) Role() access.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) CanEdit() bool {
	return access.CanEdit(s.Role())
}

func (s *Session) IsOwner() bool {
	return s.Role() == access.RoleOwner
}

// Watch subscribes a new watcher to the selected baby. The subscription
// exists as soon as Watch returns, so nothing published afterwards is
// missed. Callers must Stop the watcher.
func (s *Session) Watch() *Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := &Watcher{session: s}
	if s.closed {
		w.stopped = true
		return w
	}
	w.subscribeLocked()
	s.watchers[w] = struct{}{}
	return w
}

// Close stops every watcher. Later selections fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for w := range s.watchers {
		w.stopLocked()
	}
	s.generation++
	close(s.changed)
}

func (s *Session) watching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers) > 0
}

func (s *Session) fallback(ctx context.Context) error {
	babies, err := s.babies.ListBabies(ctx, s.userID)
	if err != nil {
		return err
	}
	if len(babies) == 0 {
		if err := s.apply("", access.RoleNone); err != nil {
			return err
		}
		return s.prefs.Clear(ctx, s.userID)
	}

	first := babies[0]
	if err := s.apply(first.ID, first.Role); err != nil {
		return err
	}
	return s.prefs.Save(ctx, s.userID, first.ID)
}

func (s *Session) apply(babyID string, role access.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if s.babyID == babyID {
		s.role = role
		return nil
	}

	s.babyID = babyID
	s.role = role
	s.generation++
	for w := range s.watchers {
		w.subscribeLocked()
	}
	close(s.changed)
	s.changed = make(chan struct{})
	return nil
}

func (s *Session) isGeneration(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == generation
}

// Watcher is one consumer of a session's changes, typically one open
// stream. Its fields are guarded by the session's mutex.
type Watcher struct {
	session *Session
	sub     *realtime.Subscription
	stopped bool
}

// Changes yields changes for whichever baby is selected while it runs.
// Changes queued for a previous selection are never yielded after the
// switch. It returns when ctx is done, the consumer stops, the watcher is
// stopped or the session closes.
func (w *Watcher) Changes(ctx context.Context) iter.Seq[realtime.Change] {
	s := w.session
	return func(yield func(realtime.Change) bool) {
		for {
			s.mu.Lock()
			sub, generation, changed, done := w.sub, s.generation, s.changed, w.stopped || s.closed
			s.mu.Unlock()
			if done {
				return
			}

			if sub == nil {
				select {
				case <-ctx.Done():
					return
				case <-changed:
					continue
				}
			}

			watchCtx, cancel := context.WithCancel(ctx)
			go func() {
				select {
				case <-changed:
					cancel()
				case <-watchCtx.Done():
				}
			}()

			stopped := false
			for change := range sub.Changes(watchCtx) {
				if !s.isGeneration(generation) {
					break
				}
				if !yield(change) {
					stopped = true
					break
				}
			}
			cancel()

			if stopped || ctx.Err() != nil {
				return
			}
			select {
			case <-changed:
			default:
				// The subscription ended without a new selection: the
				// watcher was stopped or the hub is shutting down.
				return
			}
		}
	}
}

// Stop releases the watcher's subscription and ends Changes. Calling it more
// than once is a no-op.
func (w *Watcher) Stop() {
	s := w.session
	s.mu.Lock()
	defer s.mu.Unlock()
	w.stopLocked()
}

func (w *Watcher) stopLocked() {
	if w.stopped {
		return
	}
	w.stopped = true
	delete(w.session.watchers, w)
	if w.sub != nil {
		w.sub.Unsubscribe()
		w.sub = nil
	}
}

func (w *Watcher) subscribeLocked() {
	if w.sub != nil {
		w.sub.Unsubscribe()
		w.sub = nil
	}
	if babyID := w.session.babyID; babyID != "" {
		w.sub = w.session.hub.Subscribe(babyID)
	}
}
