package export

import (
	"time"

	"babytrack-go/internal/domain/records"
)

// Snapshot is a point-in-time copy of every record of one baby. The JSON
// shape is what the download endpoint serves.
type Snapshot struct {
	BabyID     string            `json:"-"`
	Feeding    []records.Feeding `json:"feeding"`
	Sleep      []records.Sleep   `json:"sleep"`
	Diaper     []records.Diaper  `json:"diaper"`
	Health     []records.Health  `json:"health"`
	ExportDate time.Time         `json:"exportDate"`
}

// Archived describes a snapshot stored by an Archiver.
type Archived struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Filename is the download name for a snapshot taken at t.
func Filename(t time.Time) string {
	return "baby-records-" + t.Format(time.DateOnly) + ".json"
}
