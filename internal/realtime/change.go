package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is one row-level modification of a baby-owned table. New and Old
// are the row images when the source had room to send them; subscribers
// treat a change as a refetch signal and must not rely on either.
type Change struct {
	Type       ChangeType      `json:"type"`
	Table      string          `json:"table"`
	BabyID     string          `json:"baby_id"`
	New        json.RawMessage `json:"new,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

var ErrMalformedChange = errors.New("malformed change payload")

// ParseChange decodes the JSON payload produced by the notify_change trigger
// (and mirrored onto the kafka topic).
func ParseChange(payload []byte, receivedAt time.Time) (Change, error) {
	var change Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return Change{}, fmt.Errorf("%w: %v", ErrMalformedChange, err)
	}

	change.Type = ChangeType(strings.ToUpper(string(change.Type)))
	switch change.Type {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return Change{}, fmt.Errorf("%w: unknown type %q", ErrMalformedChange, change.Type)
	}
	if change.Table == "" || change.BabyID == "" {
		return Change{}, fmt.Errorf("%w: table and baby_id are required", ErrMalformedChange)
	}
	if isJSONNull(change.New) {
		change.New = nil
	}
	if isJSONNull(change.Old) {
		change.Old = nil
	}
	change.ReceivedAt = receivedAt
	return change, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
