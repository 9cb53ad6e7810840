package records

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/validation"
)

type fakeRoles map[string]access.Role

func (f fakeRoles) GetAcceptedRole(ctx context.Context, babyID, userID string) (access.Role, error) {
	return f[babyID+"/"+userID], nil
}

type fakeRecordRepo[T any, P interface {
	*T
	Record
}] struct {
	items  map[string]T
	writes int
}

func newFakeRecordRepo[T any, P interface {
	*T
	Record
}]() *fakeRecordRepo[T, P] {
	return &fakeRecordRepo[T, P]{items: make(map[string]T)}
}

func (r *fakeRecordRepo[T, P]) List(ctx context.Context, babyID string, filter Filter) ([]T, error) {
	result := make([]T, 0)
	for _, item := range r.items {
		item := item
		record := P(&item)
		if record.meta().BabyID != babyID {
			continue
		}
		if !filter.From.IsZero() && record.At().Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && record.At().After(filter.To) {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return P(&result[i]).At().After(P(&result[j]).At())
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *fakeRecordRepo[T, P]) Get(ctx context.Context, babyID, id string) (*T, error) {
	item, ok := r.items[id]
	if !ok || P(&item).meta().BabyID != babyID {
		return nil, ErrRecordNotFound
	}
	return &item, nil
}

func (r *fakeRecordRepo[T, P]) Create(ctx context.Context, item *T) error {
	r.writes++
	r.items[P(item).meta().ID] = *item
	return nil
}

func (r *fakeRecordRepo[T, P]) Update(ctx context.Context, item *T) error {
	r.writes++
	r.items[P(item).meta().ID] = *item
	return nil
}

func (r *fakeRecordRepo[T, P]) Delete(ctx context.Context, babyID, id string) error {
	if _, err := r.Get(ctx, babyID, id); err != nil {
		return err
	}
	r.writes++
	delete(r.items, id)
	return nil
}

var (
	t0    = time.Date(2025, 4, 10, 22, 0, 0, 0, time.UTC)
	roles = fakeRoles{
		"baby-1/owner":  access.RoleOwner,
		"baby-1/editor": access.RoleEditor,
		"baby-1/viewer": access.RoleViewer,
		"baby-2/owner":  access.RoleOwner,
	}
)

func newFeedingService() (*FeedingService, *fakeRecordRepo[Feeding, *Feeding]) {
	repo := newFakeRecordRepo[Feeding, *Feeding]()
	svc := NewService[Feeding](repo, access.NewResolver(roles, nil, 0))
	svc.now = func() time.Time { return t0 }
	return svc, repo
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateThenListRoundTrip(t *testing.T) {
	svc, _ := newFeedingService()

	input := Feeding{
		Timestamp: t0.Add(-time.Hour),
		Type:      FeedingFormula,
		Amount:    ptr(120.0),
		Unit:      ptr(UnitML),
		Notes:     ptr("finished the bottle"),
	}
	created, err := svc.Create(context.Background(), "editor", "baby-1", input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.ID == "" || created.BabyID != "baby-1" || created.UserID != "editor" {
		t.Fatalf("expected server-assigned meta, got %+v", created.Meta)
	}

	list, err := svc.List(context.Background(), "viewer", "baby-1", Filter{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}
	got := list[0]
	got.Meta = Meta{}
	if !reflect.DeepEqual(got, input) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, input)
	}
}

func TestViewerCannotMutate(t *testing.T) {
	svc, repo := newFeedingService()
	created, err := svc.Create(context.Background(), "owner", "baby-1", Feeding{Type: FeedingBreastLeft, Duration: ptr(10)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	writes := repo.writes

	if _, err := svc.Create(context.Background(), "viewer", "baby-1", Feeding{Type: FeedingFormula}); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("expected create denied, got %v", err)
	}
	if _, err := svc.Update(context.Background(), "viewer", "baby-1", created.ID, Feeding{Type: FeedingFormula}); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("expected update denied, got %v", err)
	}
	if err := svc.Delete(context.Background(), "viewer", "baby-1", created.ID); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("expected delete denied, got %v", err)
	}
	if repo.writes != writes {
		t.Fatalf("expected no store writes, got %d", repo.writes-writes)
	}

	list, _ := svc.List(context.Background(), "viewer", "baby-1", Filter{})
	if len(list) != 1 || list[0].Type != FeedingBreastLeft {
		t.Fatalf("expected store unchanged, got %+v", list)
	}
}

func TestStrangerCannotRead(t *testing.T) {
	svc, _ := newFeedingService()
	if _, err := svc.List(context.Background(), "stranger", "baby-1", Filter{}); !errors.Is(err, access.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestUpdateAcrossBabiesIsNotFound(t *testing.T) {
	svc, _ := newFeedingService()
	created, _ := svc.Create(context.Background(), "owner", "baby-2", Feeding{Type: FeedingFormula})

	if _, err := svc.Update(context.Background(), "owner", "baby-1", created.ID, Feeding{Type: FeedingMixed}); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), "owner", "baby-1", created.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateKeepsAuthorship(t *testing.T) {
	svc, repo := newFeedingService()
	created, _ := svc.Create(context.Background(), "owner", "baby-1", Feeding{Type: FeedingFormula})

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	updated, err := svc.Update(context.Background(), "editor", "baby-1", created.ID, Feeding{
		Meta: Meta{ID: "spoofed", UserID: "editor", BabyID: "baby-2"},
		Type: FeedingMixed,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.ID != created.ID || updated.UserID != "owner" || updated.BabyID != "baby-1" {
		t.Fatalf("expected stored meta kept, got %+v", updated.Meta)
	}
	if !updated.CreatedAt.Equal(t0) || !updated.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("unexpected timestamps %+v", updated.Meta)
	}
	if repo.items[created.ID].Type != FeedingMixed {
		t.Fatalf("expected stored type updated")
	}
}

func TestFeedingValidation(t *testing.T) {
	cases := []struct {
		name  string
		input Feeding
		field string
	}{
		{name: "unknown type", input: Feeding{Type: "bottle"}, field: "type"},
		{name: "zero amount", input: Feeding{Type: FeedingFormula, Amount: ptr(0.0)}, field: "amount"},
		{name: "negative amount", input: Feeding{Type: FeedingFormula, Amount: ptr(-5.0)}, field: "amount"},
		{name: "nan amount", input: Feeding{Type: FeedingFormula, Amount: ptr(math.NaN())}, field: "amount"},
		{name: "bad unit", input: Feeding{Type: FeedingFormula, Amount: ptr(4.0), Unit: ptr("cups")}, field: "unit"},
		{name: "negative duration", input: Feeding{Type: FeedingBreastBoth, Duration: ptr(-1)}, field: "duration"},
	}
	for _, tc := range cases {
		err := tc.input.normalize(t0)
		var verr *validation.Error
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.name, tc.field, err)
		}
	}

	feeding := Feeding{Type: FeedingFormula, Amount: ptr(4.0)}
	if err := feeding.normalize(t0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if feeding.Unit == nil || *feeding.Unit != UnitML || !feeding.Timestamp.Equal(t0) {
		t.Fatalf("expected defaults applied, got %+v", feeding)
	}
	oz := Feeding{Type: FeedingFormula, Amount: ptr(2.0), Unit: ptr(UnitOZ)}
	if math.Abs(oz.AmountML()-59.147) > 0.001 {
		t.Fatalf("unexpected ml conversion %f", oz.AmountML())
	}
}

func TestSleepDurationDerivedOnUpdate(t *testing.T) {
	repo := newFakeRecordRepo[Sleep, *Sleep]()
	svc := NewService[Sleep](repo, access.NewResolver(roles, nil, 0))
	svc.now = func() time.Time { return t0 }

	created, err := svc.Create(context.Background(), "editor", "baby-1", Sleep{StartTime: t0, Type: SleepNight})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.Duration != nil || created.EndTime != nil {
		t.Fatalf("expected open sleep, got %+v", created)
	}

	end := t0.Add(95*time.Minute + 40*time.Second)
	updated, err := svc.Update(context.Background(), "editor", "baby-1", created.ID, Sleep{
		StartTime: t0,
		EndTime:   &end,
		Duration:  ptr(1000),
		Type:      SleepNight,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Duration == nil || *updated.Duration != 95 {
		t.Fatalf("expected duration 95, got %v", updated.Duration)
	}
}

func TestSleepValidation(t *testing.T) {
	before := t0.Add(-time.Minute)
	cases := []struct {
		name  string
		input Sleep
		field string
	}{
		{name: "missing start", input: Sleep{Type: SleepNap}, field: "start_time"},
		{name: "end before start", input: Sleep{StartTime: t0, EndTime: &before, Type: SleepNap}, field: "end_time"},
		{name: "bad type", input: Sleep{StartTime: t0, Type: "siesta"}, field: "type"},
		{name: "bad quality", input: Sleep{StartTime: t0, Type: SleepNap, Quality: ptr("great")}, field: "quality"},
	}
	for _, tc := range cases {
		err := tc.input.normalize(t0)
		var verr *validation.Error
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.name, tc.field, err)
		}
	}

	same := Sleep{StartTime: t0, EndTime: &t0, Type: SleepNap}
	if err := same.normalize(t0); err != nil || *same.Duration != 0 {
		t.Fatalf("expected zero-length sleep accepted, got %v", err)
	}
}

func TestDiaperValidation(t *testing.T) {
	wet := Diaper{Type: DiaperWet, PoopColor: ptr("yellow")}
	var verr *validation.Error
	if err := wet.normalize(t0); !errors.As(err, &verr) || verr.Field != "poop_color" {
		t.Fatalf("expected poop_color rejected for wet, got %v", err)
	}
	wet = Diaper{Type: DiaperWet, Consistency: ptr("soft")}
	if err := wet.normalize(t0); !errors.As(err, &verr) || verr.Field != "consistency" {
		t.Fatalf("expected consistency rejected for wet, got %v", err)
	}
	wet = Diaper{Type: DiaperWet, PoopColor: ptr("")}
	if err := wet.normalize(t0); err != nil || wet.PoopColor != nil {
		t.Fatalf("expected empty poop color cleared, got %v", err)
	}

	poop := Diaper{Type: DiaperPoop, PoopColor: ptr("purple")}
	if err := poop.normalize(t0); !errors.As(err, &verr) || verr.Field != "poop_color" {
		t.Fatalf("expected unknown color rejected, got %v", err)
	}
	mixed := Diaper{Type: DiaperMixed, PoopColor: ptr("green"), Consistency: ptr("liquid")}
	if err := mixed.normalize(t0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestHealthUnitDerivedAndLocationRules(t *testing.T) {
	temp := Health{Type: HealthTemperature, Value: 37.2, Unit: "F", Location: ptr("ear")}
	if err := temp.normalize(t0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if temp.Unit != "°C" {
		t.Fatalf("expected unit derived, got %q", temp.Unit)
	}

	for kind, unit := range map[string]string{HealthWeight: "kg", HealthHeight: "cm", HealthHead: "cm"} {
		h := Health{Type: kind, Value: 3.4}
		if err := h.normalize(t0); err != nil || h.Unit != unit {
			t.Fatalf("%s: expected unit %s, got %q (%v)", kind, unit, h.Unit, err)
		}
	}

	var verr *validation.Error
	weight := Health{Type: HealthWeight, Value: 3.4, Location: ptr("ear")}
	if err := weight.normalize(t0); !errors.As(err, &verr) || verr.Field != "location" {
		t.Fatalf("expected location rejected, got %v", err)
	}
	inf := Health{Type: HealthWeight, Value: math.Inf(1)}
	if err := inf.normalize(t0); !errors.As(err, &verr) || verr.Field != "value" {
		t.Fatalf("expected infinite value rejected, got %v", err)
	}
	bad := Health{Type: "bmi", Value: 1}
	if err := bad.normalize(t0); !errors.As(err, &verr) || verr.Field != "type" {
		t.Fatalf("expected type rejected, got %v", err)
	}
}

func TestListNewestFirstWithFilter(t *testing.T) {
	svc, _ := newFeedingService()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), "owner", "baby-1", Feeding{Type: FeedingFormula, Timestamp: t0.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	list, err := svc.List(context.Background(), "owner", "baby-1", Filter{From: t0.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 2 || !list[0].Timestamp.After(list[1].Timestamp) {
		t.Fatalf("expected two records newest first, got %+v", list)
	}
	if svc.Kind() != KindFeeding {
		t.Fatalf("unexpected kind %s", svc.Kind())
	}
}
