package models

// Directory entities are owned by the surrounding school-administration
// system; this service only reads them for existence and membership
// checks.

// Subject is a taught course attached to exactly one class, optionally
// split into numbered student groups (1..GroupCount).
type Subject struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	ClassID    string `db:"class_id" json:"class_id"`
	GroupCount int    `db:"group_count" json:"group_count"`
}

// HasGroup reports whether the 1-based group number exists for the
// subject.
func (s *Subject) HasGroup(n int) bool {
	return n >= 1 && n <= s.GroupCount
}

// Teacher is a directory record of a teaching staff member.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// Classroom is a bookable room.
type Classroom struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// Class is a cohort of students.
type Class struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Student is a directory record of an enrolled student.
type Student struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	ClassID  string `db:"class_id" json:"class_id"`
}

// StudentEnrollment links a student to a subject and, when the subject
// is split, to one of its groups.
type StudentEnrollment struct {
	SubjectID   string `db:"subject_id" json:"subject_id"`
	StudentID   string `db:"student_id" json:"student_id"`
	GroupNumber *int   `db:"group_number" json:"group_number,omitempty"`
}

// Pagination mirrors listing metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
