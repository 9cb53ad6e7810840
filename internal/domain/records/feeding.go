package records

import (
	"math"
	"time"

	"babytrack-go/internal/domain/validation"
)

const (
	FeedingBreastLeft  = "breast-left"
	FeedingBreastRight = "breast-right"
	FeedingBreastBoth  = "breast-both"
	FeedingFormula     = "formula"
	FeedingMixed       = "mixed"

	UnitML = "ml"
	UnitOZ = "oz"
)

type Feeding struct {
	Meta
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Type      string    `gorm:"type:varchar(16);not null" json:"type"`
	Amount    *float64  `json:"amount,omitempty"`
	Unit      *string   `gorm:"type:varchar(4)" json:"unit,omitempty"`
	Duration  *int      `json:"duration,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

func (*Feeding) Kind() Kind {
	return KindFeeding
}

func (*Feeding) TableName() string {
	return "feeding_records"
}

func (*Feeding) OrderColumn() string {
	return "timestamp"
}

func (f *Feeding) At() time.Time {
	return f.Timestamp
}

func (f *Feeding) normalize(now time.Time) error {
	if f.Timestamp.IsZero() {
		f.Timestamp = now
	}
	if err := validation.OneOf("type", f.Type, FeedingBreastLeft, FeedingBreastRight, FeedingBreastBoth, FeedingFormula, FeedingMixed); err != nil {
		return err
	}

	if f.Amount != nil {
		if math.IsNaN(*f.Amount) || math.IsInf(*f.Amount, 0) || *f.Amount <= 0 {
			return validation.New("amount", "must be greater than zero")
		}
		if f.Unit == nil || *f.Unit == "" {
			unit := UnitML
			f.Unit = &unit
		}
	}
	if f.Unit != nil {
		if *f.Unit == "" {
			f.Unit = nil
		} else if err := validation.OneOf("unit", *f.Unit, UnitML, UnitOZ); err != nil {
			return err
		}
	}

	if f.Duration != nil && *f.Duration < 0 {
		return validation.New("duration", "cannot be negative")
	}
	f.Notes = trimNotes(f.Notes)
	return nil
}

// AmountML converts the amount to millilitres; zero when no amount was logged.
func (f *Feeding) AmountML() float64 {
	if f.Amount == nil {
		return 0
	}
	if f.Unit != nil && *f.Unit == UnitOZ {
		return *f.Amount * mlPerOunce
	}
	return *f.Amount
}

const mlPerOunce = 29.5735
