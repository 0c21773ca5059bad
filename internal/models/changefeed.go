package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChangeOperation enumerates the mutations recorded on the change feed.
type ChangeOperation string

const (
	ChangeOperationCreated ChangeOperation = "created"
	ChangeOperationUpdated ChangeOperation = "updated"
	ChangeOperationDeleted ChangeOperation = "deleted"
)

// ChangeEntry is one committed mutation on the occupancy change feed.
// Version is global and strictly increasing; sync clients resume from
// the highest version they have seen.
type ChangeEntry struct {
	Version     int64           `db:"version" json:"version"`
	OccupancyID string          `db:"occupancy_id" json:"occupancy_id"`
	Operation   ChangeOperation `db:"operation" json:"operation"`
	OccurredAt  time.Time       `db:"occurred_at" json:"occurred_at"`
	Details     ChangeDetails   `db:"details" json:"details"`
}

// ChangeDetails snapshots what a feed consumer needs to reconcile the
// mutation without re-fetching: the occupancy label, its subject, the
// new interval (creates and updates) and the previous interval
// (updates and deletes).
type ChangeDetails struct {
	Name          string     `json:"name,omitempty"`
	SubjectID     string     `json:"subject_id,omitempty"`
	ClassID       string     `json:"class_id,omitempty"`
	GroupNumber   *int       `json:"group_number,omitempty"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
	PreviousStart *time.Time `json:"previous_start,omitempty"`
	PreviousEnd   *time.Time `json:"previous_end,omitempty"`
}

// Value marshals details to JSON for persistence.
func (d ChangeDetails) Value() (driver.Value, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal change details: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the details struct.
func (d *ChangeDetails) Scan(value interface{}) error {
	if value == nil {
		*d = ChangeDetails{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ChangeDetails", value)
	}
	if len(data) == 0 {
		*d = ChangeDetails{}
		return nil
	}
	if err := json.Unmarshal(data, d); err != nil {
		return fmt.Errorf("unmarshal change details: %w", err)
	}
	return nil
}
