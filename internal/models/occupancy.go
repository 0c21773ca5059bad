package models

import (
	"time"

	"github.com/lib/pq"
)

// OccupancyKind enumerates the supported session categories.
type OccupancyKind string

const (
	OccupancyKindLecture   OccupancyKind = "CM"
	OccupancyKindTutorial  OccupancyKind = "TD"
	OccupancyKindPractical OccupancyKind = "TP"
	OccupancyKindProject   OccupancyKind = "PROJECT"
)

// Valid reports whether the kind is one of the supported values.
func (k OccupancyKind) Valid() bool {
	switch k {
	case OccupancyKindLecture, OccupancyKindTutorial, OccupancyKindPractical, OccupancyKindProject:
		return true
	default:
		return false
	}
}

// WholeClass reports whether the kind books the full class rather than
// one of its groups.
func (k OccupancyKind) WholeClass() bool {
	return k == OccupancyKindLecture || k == OccupancyKindProject
}

// ServiceWeight returns the teaching-service coefficient applied to a
// booked hour of this kind.
func (k OccupancyKind) ServiceWeight() float64 {
	switch k {
	case OccupancyKindLecture:
		return 1.5
	case OccupancyKindTutorial:
		return 1.0
	case OccupancyKindPractical:
		return 0.5
	case OccupancyKindProject:
		return 1.0
	default:
		return 0
	}
}

// Occupancy is a scheduled booking of a time slot against a subject,
// a set of teachers, a classroom, and the subject's class or one of its
// groups.
type Occupancy struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Kind        OccupancyKind  `db:"kind" json:"kind"`
	SubjectID   string         `db:"subject_id" json:"subject_id"`
	ClassID     string         `db:"class_id" json:"class_id"`
	ClassroomID string         `db:"classroom_id" json:"classroom_id"`
	GroupNumber *int           `db:"group_number" json:"group_number,omitempty"`
	TeacherIDs  pq.StringArray `db:"teacher_ids" json:"teacher_ids"`
	StartAt     time.Time      `db:"start_at" json:"start"`
	EndAt       time.Time      `db:"end_at" json:"end"`
	Version     int64          `db:"version" json:"version"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Duration returns the booked time span.
func (o *Occupancy) Duration() time.Duration {
	return o.EndAt.Sub(o.StartAt)
}

// ConflictDimension names the resource dimension a double-booking was
// detected on.
type ConflictDimension string

const (
	ConflictDimensionTeacher   ConflictDimension = "teacher"
	ConflictDimensionClassroom ConflictDimension = "classroom"
	ConflictDimensionClass     ConflictDimension = "class"
	ConflictDimensionVersion   ConflictDimension = "version"
)

// ConflictDetail identifies the booking that blocked a mutation.
type ConflictDetail struct {
	Dimension           ConflictDimension `json:"dimension"`
	ResourceID          string            `json:"resource_id,omitempty"`
	BlockingOccupancyID string            `json:"blocking_occupancy_id,omitempty"`
}

// OccupancyFilter constrains listing queries. At most one resource
// filter is set per call.
type OccupancyFilter struct {
	TeacherID   string
	ClassroomID string
	ClassID     string
	SubjectID   string
	GroupNumber *int
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// DaySchedule groups one calendar day's occupancies, ordered by start.
type DaySchedule struct {
	Date        string      `json:"date"`
	Occupancies []Occupancy `json:"occupancies"`
}

// ServiceReport totals a teacher's weighted teaching hours over a
// period.
type ServiceReport struct {
	TeacherID    string                    `json:"teacher_id"`
	From         *time.Time                `json:"from,omitempty"`
	To           *time.Time                `json:"to,omitempty"`
	TotalHours   float64                   `json:"total_hours"`
	ServiceHours float64                   `json:"service_hours"`
	ByKind       map[OccupancyKind]float64 `json:"by_kind"`
}
