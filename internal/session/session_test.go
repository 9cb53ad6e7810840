package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
	"babytrack-go/internal/realtime"
	"babytrack-go/pkg/logger"
)

type fakeDirectory struct {
	babies []baby.BabyWithRole
	err    error
}

func (f *fakeDirectory) ListBabies(ctx context.Context, actorID string) ([]baby.BabyWithRole, error) {
	return f.babies, f.err
}

func (f *fakeDirectory) ResolveRole(ctx context.Context, babyID, userID string) (access.Role, error) {
	for _, b := range f.babies {
		if b.ID == babyID {
			return b.Role, nil
		}
	}
	return access.RoleNone, nil
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{babies: []baby.BabyWithRole{
		{Baby: baby.Baby{ID: "newest"}, Role: access.RoleViewer},
		{Baby: baby.Baby{ID: "older"}, Role: access.RoleOwner},
	}}
}

func TestInitSelectsMostRecentBabyAndPersists(t *testing.T) {
	dir := newDirectory()
	prefs := NewMemoryStore()
	sess := New("u1", dir, dir, realtime.NewHub(logger.Nop(), 4), prefs)
	defer sess.Close()

	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.BabyID() != "newest" || sess.Role() != access.RoleViewer || sess.CanEdit() {
		t.Fatalf("unexpected selection %s/%s", sess.BabyID(), sess.Role())
	}
	if saved, _ := prefs.Load(context.Background(), "u1"); saved != "newest" {
		t.Fatalf("expected selection persisted, got %q", saved)
	}
}

func TestInitRestoresSavedSelection(t *testing.T) {
	dir := newDirectory()
	prefs := NewMemoryStore()
	_ = prefs.Save(context.Background(), "u1", "older")

	sess := New("u1", dir, dir, realtime.NewHub(logger.Nop(), 4), prefs)
	defer sess.Close()
	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.BabyID() != "older" || !sess.IsOwner() {
		t.Fatalf("expected saved owner selection, got %s/%s", sess.BabyID(), sess.Role())
	}
}

func TestInitIgnoresSavedSelectionWithoutAccess(t *testing.T) {
	dir := newDirectory()
	prefs := NewMemoryStore()
	_ = prefs.Save(context.Background(), "u1", "revoked")

	sess := New("u1", dir, dir, realtime.NewHub(logger.Nop(), 4), prefs)
	defer sess.Close()
	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.BabyID() != "newest" {
		t.Fatalf("expected fallback selection, got %s", sess.BabyID())
	}
}

func TestInitWithoutBabies(t *testing.T) {
	dir := &fakeDirectory{}
	sess := New("u1", dir, dir, realtime.NewHub(logger.Nop(), 4), NewMemoryStore())
	defer sess.Close()
	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.BabyID() != "" || sess.Role() != access.RoleNone {
		t.Fatalf("expected empty selection")
	}
}

func TestSelectBabyRequiresAccess(t *testing.T) {
	dir := newDirectory()
	sess := New("u1", dir, dir, realtime.NewHub(logger.Nop(), 4), NewMemoryStore())
	defer sess.Close()
	_ = sess.Init(context.Background())

	if err := sess.SelectBaby(context.Background(), "stranger"); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if sess.BabyID() != "newest" {
		t.Fatalf("selection must not change on denial")
	}

	if err := sess.SelectBaby(context.Background(), "older"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !sess.CanEdit() || !sess.IsOwner() {
		t.Fatalf("expected owner flags after switch")
	}
}

func TestRefreshFallsBackWhenAccessRevoked(t *testing.T) {
	dir := newDirectory()
	sess := New("u1", dir, dir, realtime.NewHub(logger.Nop(), 4), NewMemoryStore())
	defer sess.Close()
	_ = sess.Init(context.Background())

	dir.babies = dir.babies[1:]
	if err := sess.Refresh(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.BabyID() != "older" {
		t.Fatalf("expected fallback to remaining baby, got %s", sess.BabyID())
	}
}

func TestWatchFollowsSelectionWithoutStaleChanges(t *testing.T) {
	dir := newDirectory()
	hub := realtime.NewHub(logger.Nop(), 8)
	sess := New("u1", dir, dir, hub, NewMemoryStore())
	defer sess.Close()
	_ = sess.Init(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	watcher := sess.Watch()
	defer watcher.Stop()
	got := make(chan realtime.Change, 8)
	go func() {
		for change := range watcher.Changes(ctx) {
			got <- change
		}
		close(got)
	}()

	hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "feeding_records", BabyID: "newest"})
	first := <-got
	if first.BabyID != "newest" {
		t.Fatalf("unexpected first change %+v", first)
	}

	if err := sess.SelectBaby(context.Background(), "older"); err != nil {
		t.Fatalf("select: %v", err)
	}
	hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "sleep_records", BabyID: "newest"})
	hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "diaper_records", BabyID: "older"})

	second := <-got
	if second.BabyID != "older" || second.Table != "diaper_records" {
		t.Fatalf("expected change for new selection only, got %+v", second)
	}

	sess.Close()
	if _, open := <-got; open {
		t.Fatalf("expected watch to end after close")
	}
}

func TestWatchersOfOneSessionEachReceiveEveryChange(t *testing.T) {
	dir := newDirectory()
	hub := realtime.NewHub(logger.Nop(), 32)
	sess := New("u1", dir, dir, hub, NewMemoryStore())
	defer sess.Close()
	_ = sess.Init(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	const published = 20
	first, second := sess.Watch(), sess.Watch()
	defer first.Stop()
	defer second.Stop()

	counts := make(chan int, 2)
	for _, w := range []*Watcher{first, second} {
		go func(w *Watcher) {
			n := 0
			for range w.Changes(ctx) {
				n++
				if n == published {
					break
				}
			}
			counts <- n
		}(w)
	}

	for i := 0; i < published; i++ {
		hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "feeding_records", BabyID: "newest"})
	}
	for i := 0; i < 2; i++ {
		if n := <-counts; n != published {
			t.Fatalf("expected every watcher to receive %d changes, got %d", published, n)
		}
	}
}

func TestStoppedWatcherEndsAndReleasesSubscription(t *testing.T) {
	dir := newDirectory()
	hub := realtime.NewHub(logger.Nop(), 4)
	sess := New("u1", dir, dir, hub, NewMemoryStore())
	defer sess.Close()
	_ = sess.Init(context.Background())

	watcher := sess.Watch()
	if !sess.watching() {
		t.Fatalf("expected session to report an open watcher")
	}
	done := make(chan struct{})
	go func() {
		for range watcher.Changes(context.Background()) {
		}
		close(done)
	}()

	watcher.Stop()
	watcher.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Changes to end after Stop")
	}
	if sess.watching() {
		t.Fatalf("expected no watchers after Stop")
	}
}

func TestManagerReusesSessionsPerClient(t *testing.T) {
	dir := newDirectory()
	manager := NewManager(dir, dir, realtime.NewHub(logger.Nop(), 4), nil, logger.Nop())
	defer manager.Close()
	ctx := context.Background()

	first, err := manager.Get(ctx, "u1", "tab-a")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	again, _ := manager.Get(ctx, "u1", "tab-a")
	if first != again {
		t.Fatalf("expected the same session for the same client")
	}
	other, _ := manager.Get(ctx, "u1", "tab-b")
	if other == first {
		t.Fatalf("expected a separate session per client")
	}

	if err := other.SelectBaby(ctx, "older"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if first.BabyID() != "newest" || other.BabyID() != "older" {
		t.Fatalf("expected independent selections, got %s and %s", first.BabyID(), other.BabyID())
	}

	dir.err = errors.New("store down")
	if _, err := manager.Get(ctx, "u2", "tab-a"); err == nil {
		t.Fatalf("expected init failure")
	}
}

type blockingDirectory struct {
	*fakeDirectory
	slowUser string
	entered  chan struct{}
	release  chan struct{}
}

func (b *blockingDirectory) ListBabies(ctx context.Context, actorID string) ([]baby.BabyWithRole, error) {
	if actorID == b.slowUser {
		close(b.entered)
		<-b.release
	}
	return b.fakeDirectory.ListBabies(ctx, actorID)
}

func TestManagerInitDoesNotBlockOtherUsers(t *testing.T) {
	dir := &blockingDirectory{
		fakeDirectory: newDirectory(),
		slowUser:      "slow",
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	manager := NewManager(dir, dir, realtime.NewHub(logger.Nop(), 4), nil, logger.Nop())
	defer manager.Close()

	slowDone := make(chan error, 1)
	go func() {
		_, err := manager.Get(context.Background(), "slow", "c1")
		slowDone <- err
	}()
	<-dir.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := manager.Get(context.Background(), "fast", "c1")
		fastDone <- err
	}()
	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("session lookup blocked behind another user's initialization")
	}

	close(dir.release)
	if err := <-slowDone; err != nil {
		t.Fatalf("expected slow init to succeed, got %v", err)
	}
}

func TestManagerEvictsIdleSessionsWithoutWatchers(t *testing.T) {
	dir := newDirectory()
	manager := NewManager(dir, dir, realtime.NewHub(logger.Nop(), 4), nil, logger.Nop())
	defer manager.Close()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return now }
	ctx := context.Background()

	idle, _ := manager.Get(ctx, "u1", "idle")
	streaming, _ := manager.Get(ctx, "u1", "streaming")
	watcher := streaming.Watch()
	defer watcher.Stop()

	now = now.Add(DefaultIdleTimeout + time.Minute)
	if _, err := manager.Get(ctx, "u2", "new"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := idle.SelectBaby(ctx, "older"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected idle session closed, got %v", err)
	}
	if again, _ := manager.Get(ctx, "u1", "streaming"); again != streaming {
		t.Fatalf("expected watched session kept")
	}
	if again, _ := manager.Get(ctx, "u1", "idle"); again == idle || again.BabyID() != "newest" {
		t.Fatalf("expected a fresh session for the evicted client")
	}
}

func TestManagerRefreshReachesEveryClientOfUser(t *testing.T) {
	dir := newDirectory()
	manager := NewManager(dir, dir, realtime.NewHub(logger.Nop(), 4), nil, logger.Nop())
	defer manager.Close()
	ctx := context.Background()

	a, _ := manager.Get(ctx, "u1", "a")
	b, _ := manager.Get(ctx, "u1", "b")
	dir.babies = dir.babies[1:]

	manager.Refresh(ctx, "u1")
	if a.BabyID() != "older" || b.BabyID() != "older" {
		t.Fatalf("expected both clients moved off the revoked baby, got %s and %s", a.BabyID(), b.BabyID())
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	store := NewFileStore(path)
	ctx := context.Background()

	if got, err := store.Load(ctx, "u1"); err != nil || got != "" {
		t.Fatalf("expected empty load, got %q (%v)", got, err)
	}
	if err := store.Save(ctx, "u1", "b1"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "u2", "b2"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := NewFileStore(path)
	if got, _ := reopened.Load(ctx, "u1"); got != "b1" {
		t.Fatalf("expected b1, got %q", got)
	}
	if err := reopened.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := store.Load(ctx, "u1"); got != "" {
		t.Fatalf("expected cleared selection, got %q", got)
	}
	if got, _ := store.Load(ctx, "u2"); got != "b2" {
		t.Fatalf("expected other users untouched, got %q", got)
	}
}
