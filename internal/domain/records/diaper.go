package records

import (
	"time"

	"babytrack-go/internal/domain/validation"
)

const (
	DiaperWet   = "wet"
	DiaperPoop  = "poop"
	DiaperMixed = "mixed"
)

var (
	poopColors    = []string{"yellow", "green", "brown", "black", "red", "white"}
	consistencies = []string{"liquid", "soft", "formed", "hard"}
)

type Diaper struct {
	Meta
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
	Type        string    `gorm:"type:varchar(8);not null" json:"type"`
	PoopColor   *string   `gorm:"type:varchar(16)" json:"poop_color,omitempty"`
	Consistency *string   `gorm:"type:varchar(16)" json:"consistency,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

func (*Diaper) Kind() Kind {
	return KindDiaper
}

func (*Diaper) TableName() string {
	return "diaper_records"
}

func (*Diaper) OrderColumn() string {
	return "timestamp"
}

func (d *Diaper) At() time.Time {
	return d.Timestamp
}

func (d *Diaper) normalize(now time.Time) error {
	if d.Timestamp.IsZero() {
		d.Timestamp = now
	}
	if err := validation.OneOf("type", d.Type, DiaperWet, DiaperPoop, DiaperMixed); err != nil {
		return err
	}

	if d.PoopColor != nil && *d.PoopColor == "" {
		d.PoopColor = nil
	}
	if d.Consistency != nil && *d.Consistency == "" {
		d.Consistency = nil
	}

	if d.Type == DiaperWet {
		if d.PoopColor != nil {
			return validation.New("poop_color", "not allowed for a wet diaper")
		}
		if d.Consistency != nil {
			return validation.New("consistency", "not allowed for a wet diaper")
		}
	}
	if d.PoopColor != nil {
		if err := validation.OneOf("poop_color", *d.PoopColor, poopColors...); err != nil {
			return err
		}
	}
	if d.Consistency != nil {
		if err := validation.OneOf("consistency", *d.Consistency, consistencies...); err != nil {
			return err
		}
	}
	d.Notes = trimNotes(d.Notes)
	return nil
}
