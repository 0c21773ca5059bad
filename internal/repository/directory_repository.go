package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusctl/edt-api/internal/models"
)

// DirectoryRepository reads the externally-owned school directory:
// subjects, teachers, classrooms, classes, students, and their
// membership links. This service never writes these tables.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository creates a new directory repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// SubjectByID loads a subject record.
func (r *DirectoryRepository) SubjectByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, class_id, group_count FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// TeacherByID loads a teacher record.
func (r *DirectoryRepository) TeacherByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, full_name, email FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ClassroomByID loads a classroom record.
func (r *DirectoryRepository) ClassroomByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, capacity FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// ClassByID loads a class record.
func (r *DirectoryRepository) ClassByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// StudentByID loads a student record.
func (r *DirectoryRepository) StudentByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, class_id FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistingTeacherIDs returns which of the given teacher ids are present
// in the directory.
func (r *DirectoryRepository) ExistingTeacherIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	const query = `SELECT id FROM teachers WHERE id = ANY($1)`
	var found []string
	if err := r.db.SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve teachers: %w", err)
	}
	existing := make(map[string]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// SubjectTeacherIDs returns the teacher ids assigned to a subject.
func (r *DirectoryRepository) SubjectTeacherIDs(ctx context.Context, subjectID string) (map[string]bool, error) {
	const query = `SELECT teacher_id FROM subject_teachers WHERE subject_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, subjectID); err != nil {
		return nil, fmt.Errorf("subject teachers: %w", err)
	}
	assigned := make(map[string]bool, len(ids))
	for _, id := range ids {
		assigned[id] = true
	}
	return assigned, nil
}

// GroupStudentIDs returns the students of one subject group, ordered by
// name for stable output.
func (r *DirectoryRepository) GroupStudentIDs(ctx context.Context, subjectID string, groupNumber int) ([]string, error) {
	const query = `SELECT ss.student_id FROM subject_students ss
JOIN students s ON s.id = ss.student_id
WHERE ss.subject_id = $1 AND ss.group_number = $2
ORDER BY s.full_name ASC, s.id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, subjectID, groupNumber); err != nil {
		return nil, fmt.Errorf("group students: %w", err)
	}
	return ids, nil
}
