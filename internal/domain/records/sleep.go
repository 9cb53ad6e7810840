package records

import (
	"time"

	"babytrack-go/internal/domain/validation"
)

const (
	SleepNight = "night"
	SleepNap   = "nap"

	QualityDeep     = "deep"
	QualityLight    = "light"
	QualityRestless = "restless"
)

// Sleep may be open (no EndTime) while the baby is still asleep. Duration is
// always derived from the interval; a client-supplied value is discarded.
type Sleep struct {
	Meta
	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	Type      string     `gorm:"type:varchar(8);not null" json:"type"`
	Quality   *string    `gorm:"type:varchar(16)" json:"quality,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

func (*Sleep) Kind() Kind {
	return KindSleep
}

func (*Sleep) TableName() string {
	return "sleep_records"
}

func (*Sleep) OrderColumn() string {
	return "start_time"
}

func (s *Sleep) At() time.Time {
	return s.StartTime
}

func (s *Sleep) normalize(now time.Time) error {
	if s.StartTime.IsZero() {
		return validation.New("start_time", "is required")
	}
	if err := validation.OneOf("type", s.Type, SleepNight, SleepNap); err != nil {
		return err
	}
	if s.Quality != nil {
		if *s.Quality == "" {
			s.Quality = nil
		} else if err := validation.OneOf("quality", *s.Quality, QualityDeep, QualityLight, QualityRestless); err != nil {
			return err
		}
	}

	s.Duration = nil
	if s.EndTime != nil {
		if s.EndTime.Before(s.StartTime) {
			return validation.New("end_time", "must not be before start_time")
		}
		minutes := SleepMinutes(s.StartTime, *s.EndTime)
		s.Duration = &minutes
	}
	s.Notes = trimNotes(s.Notes)
	return nil
}

// SleepMinutes is floor((end-start) in minutes).
func SleepMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}
