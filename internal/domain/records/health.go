package records

import (
	"math"
	"time"

	"babytrack-go/internal/domain/validation"
)

const (
	HealthTemperature = "temperature"
	HealthWeight      = "weight"
	HealthHeight      = "height"
	HealthHead        = "head"
)

var temperatureLocations = []string{"axillary", "ear", "forehead", "rectal"}

// HealthUnit is the only unit a measurement of the given type is stored in.
func HealthUnit(kind string) (string, bool) {
	switch kind {
	case HealthTemperature:
		return "°C", true
	case HealthWeight:
		return "kg", true
	case HealthHeight, HealthHead:
		return "cm", true
	default:
		return "", false
	}
}

type Health struct {
	Meta
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Type      string    `gorm:"type:varchar(16);not null" json:"type"`
	Value     float64   `gorm:"not null" json:"value"`
	Unit      string    `gorm:"type:varchar(4);not null" json:"unit"`
	Location  *string   `gorm:"type:varchar(16)" json:"location,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

func (*Health) Kind() Kind {
	return KindHealth
}

func (*Health) TableName() string {
	return "health_records"
}

func (*Health) OrderColumn() string {
	return "timestamp"
}

func (h *Health) At() time.Time {
	return h.Timestamp
}

func (h *Health) normalize(now time.Time) error {
	if h.Timestamp.IsZero() {
		h.Timestamp = now
	}
	unit, ok := HealthUnit(h.Type)
	if !ok {
		return validation.OneOf("type", h.Type, HealthTemperature, HealthWeight, HealthHeight, HealthHead)
	}
	h.Unit = unit

	if math.IsNaN(h.Value) || math.IsInf(h.Value, 0) {
		return validation.New("value", "must be a finite number")
	}

	if h.Location != nil && *h.Location == "" {
		h.Location = nil
	}
	if h.Location != nil {
		if h.Type != HealthTemperature {
			return validation.New("location", "only allowed for temperature")
		}
		if err := validation.OneOf("location", *h.Location, temperatureLocations...); err != nil {
			return err
		}
	}
	h.Notes = trimNotes(h.Notes)
	return nil
}
