package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"babytrack-go/internal/domain/records"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDays  = 7
	MaxDays      = 90
	seriesLength = 10
)

// Source lists records on behalf of actorID. records.Services implements it
// and applies the access checks.
type Source interface {
	ListFeedings(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Feeding, error)
	ListSleeps(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Sleep, error)
	ListDiapers(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Diaper, error)
	ListHealth(ctx context.Context, actorID, babyID string, filter records.Filter) ([]records.Health, error)
}

type Service struct {
	source Source
	now    func() time.Time
}

func NewService(source Source) *Service {
	return &Service{source: source, now: time.Now}
}

// Summary aggregates the last q.Days calendar days (today included) in
// q.Location. Weight and temperature series are the latest measurements
// regardless of the window, oldest first.
func (s *Service) Summary(ctx context.Context, actorID, babyID string, q Query) (*Summary, error) {
	days := q.Days
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from := today.AddDate(0, 0, -(days - 1))
	window := records.Filter{From: from, Limit: records.MaxListLimit}

	var (
		feedings []records.Feeding
		sleeps   []records.Sleep
		diapers  []records.Diaper
		health   []records.Health
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		feedings, err = s.source.ListFeedings(gctx, actorID, babyID, window)
		return err
	})
	g.Go(func() (err error) {
		sleeps, err = s.source.ListSleeps(gctx, actorID, babyID, window)
		return err
	})
	g.Go(func() (err error) {
		diapers, err = s.source.ListDiapers(gctx, actorID, babyID, window)
		return err
	})
	g.Go(func() (err error) {
		health, err = s.source.ListHealth(gctx, actorID, babyID, records.Filter{Limit: records.MaxListLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dayKey := func(t time.Time) string { return t.In(loc).Format(time.DateOnly) }
	feedingsByDay := lo.GroupBy(feedings, func(f records.Feeding) string { return dayKey(f.Timestamp) })
	sleepsByDay := lo.GroupBy(sleeps, func(r records.Sleep) string { return dayKey(r.StartTime) })
	diapersByDay := lo.GroupBy(diapers, func(d records.Diaper) string { return dayKey(d.Timestamp) })

	daily := make([]Day, 0, days)
	for i := 0; i < days; i++ {
		key := from.AddDate(0, 0, i).Format(time.DateOnly)
		dayFeedings := feedingsByDay[key]
		minutes := lo.SumBy(sleepsByDay[key], func(r records.Sleep) int {
			if r.Duration == nil {
				return 0
			}
			return *r.Duration
		})
		daily = append(daily, Day{
			Date:     key,
			Feedings: len(dayFeedings),
			FeedingML: round1(lo.SumBy(dayFeedings, func(f records.Feeding) float64 {
				return f.AmountML()
			})),
			SleepHours: round1(float64(minutes) / 60),
			Diapers:    len(diapersByDay[key]),
		})
	}

	return &Summary{
		Days:  days,
		From:  from,
		To:    today.AddDate(0, 0, 1),
		Daily: daily,
		Diapers: DiaperBreakdown{
			Wet:   lo.CountBy(diapers, func(d records.Diaper) bool { return d.Type == records.DiaperWet }),
			Poop:  lo.CountBy(diapers, func(d records.Diaper) bool { return d.Type == records.DiaperPoop }),
			Mixed: lo.CountBy(diapers, func(d records.Diaper) bool { return d.Type == records.DiaperMixed }),
		},
		Weight:      series(health, records.HealthWeight),
		Temperature: series(health, records.HealthTemperature),
	}, nil
}

func series(health []records.Health, kind string) []Point {
	matching := lo.Filter(health, func(h records.Health, _ int) bool { return h.Type == kind })
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].Timestamp.After(matching[j].Timestamp) })
	if len(matching) > seriesLength {
		matching = matching[:seriesLength]
	}

	points := lo.Map(matching, func(h records.Health, _ int) Point {
		return Point{At: h.Timestamp, Value: h.Value}
	})
	sort.SliceStable(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
	return points
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
