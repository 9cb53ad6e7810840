package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
	"babytrack-go/internal/realtime"
	sessionpkg "babytrack-go/internal/session"
	"babytrack-go/internal/transport/httpserver/middleware"
	"babytrack-go/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type fakeDirectory struct {
	babies []baby.BabyWithRole
}

func (f *fakeDirectory) ListBabies(ctx context.Context, actorID string) ([]baby.BabyWithRole, error) {
	return f.babies, nil
}

func (f *fakeDirectory) ResolveRole(ctx context.Context, babyID, userID string) (access.Role, error) {
	for _, b := range f.babies {
		if b.ID == babyID {
			return b.Role, nil
		}
	}
	return access.RoleNone, nil
}

func setup(t *testing.T) (*realtime.Hub, *sessionpkg.Manager, http.Handler) {
	t.Helper()
	dir := &fakeDirectory{babies: []baby.BabyWithRole{
		{Baby: baby.Baby{ID: "b2"}, Role: access.RoleViewer},
		{Baby: baby.Baby{ID: "b1"}, Role: access.RoleOwner},
	}}
	hub := realtime.NewHub(logger.Nop(), 8)
	manager := sessionpkg.NewManager(dir, dir, hub, nil, logger.Nop())
	t.Cleanup(func() {
		manager.Close()
		hub.Close()
	})

	h := New(manager, logger.Nop())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req = req.WithContext(middleware.WithUser(req.Context(), middleware.User{ID: "alice"}))
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/session", h.GetSession)
	r.Put("/session/baby", h.SelectBaby)
	r.Get("/session/changes", h.StreamChanges)
	return hub, manager, r
}

const testClient = "8d3c4a52-6f0e-4b7e-9a51-3f7f3d2b9c10"

func request(router http.Handler, method, target, clientID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if clientID != "" {
		req.Header.Set(clientIDHeader, clientID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var body sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return body
}

func TestGetAndSelect(t *testing.T) {
	_, _, router := setup(t)

	rec := request(router, http.MethodGet, "/session", "", "")
	body := decodeSession(t, rec)
	if body.BabyID == nil || *body.BabyID != "b2" || body.CanEdit {
		t.Fatalf("expected newest baby selected read-only, got %+v", body)
	}
	if body.ClientID == "" || rec.Header().Get(clientIDHeader) != body.ClientID {
		t.Fatalf("expected an issued client id, got %q", body.ClientID)
	}
	clientID := body.ClientID

	rec = request(router, http.MethodPut, "/session/baby", clientID, `{"baby_id":"b1"}`)
	body = decodeSession(t, rec)
	if rec.Code != http.StatusOK || *body.BabyID != "b1" || !body.IsOwner {
		t.Fatalf("expected owner selection of b1, got %d %+v", rec.Code, body)
	}

	rec = request(router, http.MethodGet, "/session", clientID, "")
	if body = decodeSession(t, rec); *body.BabyID != "b1" || body.ClientID != clientID {
		t.Fatalf("expected the client's selection kept, got %+v", body)
	}

	rec = request(router, http.MethodPut, "/session/baby", clientID, `{"baby_id":"b9"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for inaccessible baby, got %d", rec.Code)
	}

	rec = request(router, http.MethodPut, "/session/baby", clientID, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing baby_id, got %d", rec.Code)
	}
}

func TestClientIDValidation(t *testing.T) {
	_, _, router := setup(t)

	rec := request(router, http.MethodPut, "/session/baby", "", `{"baby_id":"b1"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "client_id") {
		t.Fatalf("expected 400 for missing client id, got %d %s", rec.Code, rec.Body.String())
	}
	rec = request(router, http.MethodGet, "/session", "not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed client id, got %d", rec.Code)
	}
	rec = request(router, http.MethodGet, "/session/changes", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for stream without client id, got %d", rec.Code)
	}
}

func TestClientsSelectIndependently(t *testing.T) {
	_, _, router := setup(t)

	phone := decodeSession(t, request(router, http.MethodGet, "/session", "", "")).ClientID
	laptop := decodeSession(t, request(router, http.MethodGet, "/session", "", "")).ClientID
	if phone == laptop {
		t.Fatalf("expected distinct client ids")
	}

	if rec := request(router, http.MethodPut, "/session/baby", phone, `{"baby_id":"b1"}`); rec.Code != http.StatusOK {
		t.Fatalf("select: %d", rec.Code)
	}
	body := decodeSession(t, request(router, http.MethodGet, "/session", laptop, ""))
	if *body.BabyID != "b2" {
		t.Fatalf("expected the other client's selection untouched, got %s", *body.BabyID)
	}
}

type stream struct {
	resp   *http.Response
	reader *bufio.Reader
}

func openStream(t *testing.T, ctx context.Context, serverURL, clientID string) *stream {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/session/changes?client_id="+clientID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	reader := bufio.NewReader(resp.Body)
	if line, _ := reader.ReadString('\n'); !strings.HasPrefix(line, "retry:") {
		t.Fatalf("expected retry preamble, got %q", line)
	}
	return &stream{resp: resp, reader: reader}
}

func (s *stream) next(t *testing.T) realtime.Change {
	t.Helper()
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var change realtime.Change
		if err := json.Unmarshal(bytes.TrimSpace([]byte(strings.TrimPrefix(line, "data: "))), &change); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return change
	}
}

func TestStreamChanges(t *testing.T) {
	hub, manager, router := setup(t)
	if _, err := manager.Get(context.Background(), "alice", testClient); err != nil {
		t.Fatalf("session: %v", err)
	}
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := openStream(t, ctx, server.URL, testClient)

	hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "feeding_records", BabyID: "b1"})
	hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "feeding_records", BabyID: "b2"})

	if change := s.next(t); change.BabyID != "b2" {
		t.Fatalf("expected only the selected baby's change, got %+v", change)
	}
}

func TestStreamsOfOneClientEachReceiveEveryChange(t *testing.T) {
	hub, _, router := setup(t)
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	first := openStream(t, ctx, server.URL, testClient)
	second := openStream(t, ctx, server.URL, testClient)

	const published = 5
	for i := 0; i < published; i++ {
		hub.Publish(realtime.Change{Type: realtime.ChangeInsert, Table: "sleep_records", BabyID: "b2"})
	}
	for _, s := range []*stream{first, second} {
		for i := 0; i < published; i++ {
			if change := s.next(t); change.Table != "sleep_records" {
				t.Fatalf("unexpected change %+v", change)
			}
		}
	}
}
