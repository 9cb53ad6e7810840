package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
	invitationdomain "babytrack-go/internal/domain/invitation"
	"babytrack-go/internal/transport/httpserver/middleware"
	"babytrack-go/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type fakeRepo struct {
	invitations   map[string]*invitationdomain.Invitation
	collaborators map[string]*baby.Collaborator
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		invitations:   make(map[string]*invitationdomain.Invitation),
		collaborators: make(map[string]*baby.Collaborator),
	}
}

func key(babyID, userID string) string {
	return babyID + "/" + userID
}

func (r *fakeRepo) GetAcceptedRole(ctx context.Context, babyID, userID string) (access.Role, error) {
	c, ok := r.collaborators[key(babyID, userID)]
	if !ok || c.Status != baby.StatusAccepted {
		return access.RoleNone, nil
	}
	return c.Role, nil
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(invitationdomain.Repository) error) error {
	return fn(r)
}

func (r *fakeRepo) Create(ctx context.Context, inv *invitationdomain.Invitation) error {
	copied := *inv
	r.invitations[inv.ID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*invitationdomain.Invitation, error) {
	inv, ok := r.invitations[id]
	if !ok {
		return nil, invitationdomain.ErrInvitationNotFound
	}
	copied := *inv
	return &copied, nil
}

func (r *fakeRepo) GetByToken(ctx context.Context, token string) (*invitationdomain.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, invitationdomain.ErrInvitationNotFound
}

func (r *fakeRepo) GetByTokenForUpdate(ctx context.Context, token string) (*invitationdomain.Invitation, error) {
	return r.GetByToken(ctx, token)
}

func (r *fakeRepo) ListPendingByEmail(ctx context.Context, babyID, email string) ([]invitationdomain.Invitation, error) {
	var result []invitationdomain.Invitation
	for _, inv := range r.invitations {
		if inv.BabyID == babyID && inv.Email == email && inv.Status == invitationdomain.StatusPending {
			result = append(result, *inv)
		}
	}
	return result, nil
}

func (r *fakeRepo) ListPending(ctx context.Context, babyID string) ([]invitationdomain.Invitation, error) {
	var result []invitationdomain.Invitation
	for _, inv := range r.invitations {
		if inv.BabyID == babyID && inv.Status == invitationdomain.StatusPending {
			result = append(result, *inv)
		}
	}
	return result, nil
}

func (r *fakeRepo) Update(ctx context.Context, inv *invitationdomain.Invitation) error {
	copied := *inv
	r.invitations[inv.ID] = &copied
	return nil
}

func (r *fakeRepo) IsTokenTaken(ctx context.Context, token string) (bool, error) {
	_, err := r.GetByToken(ctx, token)
	return err == nil, nil
}

func (r *fakeRepo) GetBabyName(ctx context.Context, babyID string) (string, error) {
	return "Aiden", nil
}

func (r *fakeRepo) GetCollaborator(ctx context.Context, babyID, userID string) (*baby.Collaborator, error) {
	c, ok := r.collaborators[key(babyID, userID)]
	if !ok {
		return nil, baby.ErrCollaboratorNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeRepo) AddCollaborator(ctx context.Context, c *baby.Collaborator) error {
	copied := *c
	r.collaborators[key(c.BabyID, c.UserID)] = &copied
	return nil
}

func (r *fakeRepo) ActivateCollaborator(ctx context.Context, collaboratorID string, role access.Role, invitedBy string, acceptedAt time.Time) error {
	for _, c := range r.collaborators {
		if c.ID == collaboratorID {
			c.Role = role
			c.Status = baby.StatusAccepted
			c.AcceptedAt = &acceptedAt
		}
	}
	return nil
}

type testUser struct {
	id    string
	email string
}

func newTestRouter(repo *fakeRepo) http.Handler {
	resolver := access.NewResolver(repo, nil, 0)
	service := invitationdomain.NewService(repo, resolver, invitationdomain.Options{BaseURL: "https://app.example.com"})
	h := New(service, nil, "https://app.example.com/", logger.Nop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get("X-Test-User"); id != "" {
				user := middleware.User{ID: id, Email: req.Header.Get("X-Test-Email")}
				req = req.WithContext(middleware.WithUser(req.Context(), user))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/babies/{baby_id}/invitations", h.ListInvitations)
	r.Post("/babies/{baby_id}/invitations", h.CreateInvitation)
	r.Post("/invitations/{invitation_id}/cancel", h.CancelInvitation)
	r.Post("/invitations/{invitation_id}/resend", h.ResendInvitation)
	r.Get("/invitations/token/{token}", h.GetInvitationByToken)
	r.Post("/invitations/token/{token}/accept", h.AcceptInvitation)
	r.Post("/invitations/token/{token}/decline", h.DeclineInvitation)
	return r
}

func do(t *testing.T, handler http.Handler, method, path string, user *testUser, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if user != nil {
		req.Header.Set("X-Test-User", user.id)
		req.Header.Set("X-Test-Email", user.email)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var (
	alice = &testUser{id: "alice", email: "alice@example.com"}
	bob   = &testUser{id: "bob", email: "bob@example.com"}
	carol = &testUser{id: "carol", email: "carol@example.com"}
)

func setup(t *testing.T) (*fakeRepo, http.Handler, string) {
	t.Helper()
	repo := newFakeRepo()
	repo.collaborators[key("b1", "alice")] = &baby.Collaborator{ID: "c1", BabyID: "b1", UserID: "alice", Role: access.RoleOwner, Status: baby.StatusAccepted}
	router := newTestRouter(repo)

	rec := do(t, router, http.MethodPost, "/babies/b1/invitations", alice, map[string]any{"email": "Bob@Example.com", "role": "editor"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created sendResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Invitation.Email != "bob@example.com" || created.EmailSent {
		t.Fatalf("unexpected create result %+v", created)
	}
	token := repo.invitations[created.Invitation.ID].Token
	if created.Link != "https://app.example.com/invite/"+token {
		t.Fatalf("unexpected link %s", created.Link)
	}
	return repo, router, token
}

func TestPreviewOffersSignInToAnonymousVisitors(t *testing.T) {
	_, router, token := setup(t)

	rec := do(t, router, http.MethodGet, "/invitations/token/"+token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body invitationSummaryResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	expected := "https://app.example.com/auth?redirect=%2Finvite%2F" + token
	if body.BabyName != "Aiden" || body.SignInURL != expected || body.Authenticated {
		t.Fatalf("unexpected preview %+v", body)
	}

	rec = do(t, router, http.MethodGet, "/invitations/token/"+token, carol, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Authenticated || body.EmailMatches == nil || *body.EmailMatches {
		t.Fatalf("expected signed-in mismatch preview, got %+v", body)
	}

	if rec := do(t, router, http.MethodGet, "/invitations/token/unknown", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", rec.Code)
	}
}

func TestAcceptInvitation(t *testing.T) {
	repo, router, token := setup(t)

	if rec := do(t, router, http.MethodPost, "/invitations/token/"+token+"/accept", carol, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other email, got %d", rec.Code)
	}

	rec := do(t, router, http.MethodPost, "/invitations/token/"+token+"/accept", bob, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body acceptResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.BabyID != "b1" || body.Role != "editor" || body.AlreadyCollaborator {
		t.Fatalf("unexpected accept %+v", body)
	}
	if role, _ := repo.GetAcceptedRole(context.Background(), "b1", "bob"); role != access.RoleEditor {
		t.Fatalf("expected bob editor, got %s", role)
	}

	rec = do(t, router, http.MethodPost, "/invitations/token/"+token+"/accept", bob, nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || !body.AlreadyCollaborator {
		t.Fatalf("expected idempotent accept, got %d %+v", rec.Code, body)
	}
}

func TestAcceptExpiredInvitation(t *testing.T) {
	repo, router, token := setup(t)
	for _, inv := range repo.invitations {
		inv.ExpiresAt = time.Now().Add(-time.Hour)
	}

	if rec := do(t, router, http.MethodPost, "/invitations/token/"+token+"/accept", bob, nil); rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/invitations/token/"+token, nil, nil); rec.Code != http.StatusGone {
		t.Fatalf("expected 410 preview, got %d", rec.Code)
	}
}

func TestOwnerManagesPendingInvitations(t *testing.T) {
	repo, router, _ := setup(t)
	var id string
	for invID := range repo.invitations {
		id = invID
	}

	if rec := do(t, router, http.MethodPost, "/babies/b1/invitations", alice, map[string]any{"email": "bob@example.com", "role": "viewer"}); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/babies/b1/invitations", bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/babies/b1/invitations", alice, nil)
	var list invitationListResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Items) != 1 || list.Items[0].Expired {
		t.Fatalf("unexpected list %+v", list)
	}

	if rec := do(t, router, http.MethodPost, "/invitations/"+id+"/resend", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 resend, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/invitations/"+id+"/cancel", alice, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 cancel, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/invitations/"+id+"/cancel", alice, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 cancelling twice, got %d", rec.Code)
	}
}

func TestDeclineInvitation(t *testing.T) {
	repo, router, token := setup(t)

	if rec := do(t, router, http.MethodPost, "/invitations/token/"+token+"/decline", bob, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	for _, inv := range repo.invitations {
		if inv.Status != invitationdomain.StatusCancelled {
			t.Fatalf("expected cancelled, got %s", inv.Status)
		}
	}
	if rec := do(t, router, http.MethodPost, "/invitations/token/"+token+"/accept", bob, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after decline, got %d", rec.Code)
	}
}
