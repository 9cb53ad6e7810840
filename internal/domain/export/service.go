package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/records"
	"golang.org/x/sync/errgroup"
)

// Source lists records on behalf of actorID; records.Services implements it.
type Source interface {
	ListFeedings(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Feeding, error)
	ListSleeps(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Sleep, error)
	ListDiapers(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Diaper, error)
	ListHealth(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Health, error)
}

// Archiver stores an encoded snapshot under key and returns a time-limited
// download link.
type Archiver interface {
	Archive(ctx context.Context, key string, body []byte) (*Archived, error)
}

type Service struct {
	source   Source
	resolver *access.Resolver
	archiver Archiver
	now      func() time.Time
}

// NewService builds the export service. archiver may be nil, in which case
// Archive returns ErrArchiveDisabled.
func NewService(source Source, resolver *access.Resolver, archiver Archiver) *Service {
	return &Service{
		source:   source,
		resolver: resolver,
		archiver: archiver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ArchiveEnabled() bool {
	return s.archiver != nil
}

// Export reads all four record types concurrently. Any role on the baby may
// export; the first failing read aborts the others.
func (s *Service) Export(ctx context.Context, actorID, babyID string) (*Snapshot, error) {
	if _, err := s.resolver.RequireAccess(ctx, babyID, actorID); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{BabyID: babyID, ExportDate: s.now()}
	all := records.Filter{Limit: records.MaxListLimit}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snapshot.Feeding, err = s.source.ListFeedings(gctx, actorID, babyID, all)
		return err
	})
	g.Go(func() (err error) {
		snapshot.Sleep, err = s.source.ListSleeps(gctx, actorID, babyID, all)
		return err
	})
	g.Go(func() (err error) {
		snapshot.Diaper, err = s.source.ListDiapers(gctx, actorID, babyID, all)
		return err
	})
	g.Go(func() (err error) {
		snapshot.Health, err = s.source.ListHealth(gctx, actorID, babyID, all)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot.Feeding = nonNil(snapshot.Feeding)
	snapshot.Sleep = nonNil(snapshot.Sleep)
	snapshot.Diaper = nonNil(snapshot.Diaper)
	snapshot.Health = nonNil(snapshot.Health)
	return snapshot, nil
}

// Archive exports and hands the encoded snapshot to the archiver under
// <baby id>/<filename>.
func (s *Service) Archive(ctx context.Context, actorID, babyID string) (*Archived, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	snapshot, err := s.Export(ctx, actorID, babyID)
	if err != nil {
		return nil, err
	}
	return s.Store(ctx, snapshot)
}

// Store encodes an already taken snapshot and archives it.
func (s *Service) Store(ctx context.Context, snapshot *Snapshot) (*Archived, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	key := snapshot.BabyID + "/" + Filename(snapshot.ExportDate)
	return s.archiver.Archive(ctx, key, body)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
