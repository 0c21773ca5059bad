package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusctl/edt-api/internal/models"
)

const occupancySelect = `SELECT o.id, o.name, o.kind, o.subject_id, o.class_id, o.classroom_id, o.group_number,
       o.start_at, o.end_at, o.version, o.created_at, o.updated_at,
       COALESCE(array_agg(ot.teacher_id ORDER BY ot.teacher_id) FILTER (WHERE ot.teacher_id IS NOT NULL), '{}') AS teacher_ids
FROM occupancies o
LEFT JOIN occupancy_teachers ot ON ot.occupancy_id = o.id`

// OccupancyRepository is the durable occupancy store. Mutations run
// inside a caller-owned transaction so the change-feed append commits
// with them.
type OccupancyRepository struct {
	db *sqlx.DB
}

// NewOccupancyRepository creates a new occupancy repository.
func NewOccupancyRepository(db *sqlx.DB) *OccupancyRepository {
	return &OccupancyRepository{db: db}
}

// BeginTx opens a mutation transaction.
func (r *OccupancyRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin occupancy tx: %w", err)
	}
	return tx, nil
}

// GetByID loads one occupancy with its teacher set.
func (r *OccupancyRepository) GetByID(ctx context.Context, id string) (*models.Occupancy, error) {
	query := occupancySelect + ` WHERE o.id = $1 GROUP BY o.id`
	var occ models.Occupancy
	if err := r.db.GetContext(ctx, &occ, query, id); err != nil {
		return nil, err
	}
	return &occ, nil
}

// List returns occupancies matching the filter ordered by start time,
// plus the unpaginated total.
func (r *OccupancyRepository) List(ctx context.Context, filter models.OccupancyFilter) ([]models.Occupancy, int, error) {
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM occupancy_teachers x WHERE x.occupancy_id = o.id AND x.teacher_id = $%d)", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("o.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("o.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("o.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.GroupNumber != nil {
		conditions = append(conditions, fmt.Sprintf("o.group_number = $%d", len(args)+1))
		args = append(args, *filter.GroupNumber)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("o.end_at > $%d", len(args)+1))
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("o.start_at < $%d", len(args)+1))
		args = append(args, filter.To.UTC())
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	paging := ""
	if filter.Limit > 0 {
		paging = fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	query := occupancySelect + where + " GROUP BY o.id ORDER BY o.start_at ASC, o.id ASC" + paging
	var occupancies []models.Occupancy
	if err := r.db.SelectContext(ctx, &occupancies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list occupancies: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM occupancies o" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count occupancies: %w", err)
	}

	return occupancies, total, nil
}

// ListAll streams the whole store, used to rebuild the interval indexes
// at boot.
func (r *OccupancyRepository) ListAll(ctx context.Context) ([]models.Occupancy, error) {
	query := occupancySelect + ` GROUP BY o.id ORDER BY o.start_at ASC, o.id ASC`
	var occupancies []models.Occupancy
	if err := r.db.SelectContext(ctx, &occupancies, query); err != nil {
		return nil, fmt.Errorf("list all occupancies: %w", err)
	}
	return occupancies, nil
}

// ListForStudent returns the occupancies a student attends: whole-class
// bookings of their class plus bookings of groups they belong to.
func (r *OccupancyRepository) ListForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.Occupancy, error) {
	conditions := []string{`((o.group_number IS NULL AND o.class_id = (SELECT class_id FROM students WHERE id = $1))
   OR EXISTS (SELECT 1 FROM subject_students ss WHERE ss.student_id = $1 AND ss.subject_id = o.subject_id AND ss.group_number = o.group_number))`}
	args := []interface{}{studentID}

	if from != nil {
		conditions = append(conditions, fmt.Sprintf("o.end_at > $%d", len(args)+1))
		args = append(args, from.UTC())
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("o.start_at < $%d", len(args)+1))
		args = append(args, to.UTC())
	}

	query := occupancySelect + " WHERE " + strings.Join(conditions, " AND ") + " GROUP BY o.id ORDER BY o.start_at ASC, o.id ASC"
	var occupancies []models.Occupancy
	if err := r.db.SelectContext(ctx, &occupancies, query, args...); err != nil {
		return nil, fmt.Errorf("list occupancies for student: %w", err)
	}
	return occupancies, nil
}

// InsertTx writes a new occupancy and its teacher rows.
func (r *OccupancyRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, occ *models.Occupancy) error {
	const query = `INSERT INTO occupancies (id, name, kind, subject_id, class_id, classroom_id, group_number, start_at, end_at, version, created_at, updated_at)
VALUES (:id, :name, :kind, :subject_id, :class_id, :classroom_id, :group_number, :start_at, :end_at, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, occ); err != nil {
		return fmt.Errorf("insert occupancy: %w", err)
	}
	return r.replaceTeachersTx(ctx, tx, occ.ID, occ.TeacherIDs, false)
}

// UpdateTx rewrites an occupancy row and its teacher set.
func (r *OccupancyRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, occ *models.Occupancy) error {
	const query = `UPDATE occupancies SET name = :name, kind = :kind, classroom_id = :classroom_id, group_number = :group_number,
start_at = :start_at, end_at = :end_at, version = :version, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, occ); err != nil {
		return fmt.Errorf("update occupancy: %w", err)
	}
	return r.replaceTeachersTx(ctx, tx, occ.ID, occ.TeacherIDs, true)
}

// DeleteTx removes an occupancy and reports whether a row existed.
func (r *OccupancyRepository) DeleteTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM occupancy_teachers WHERE occupancy_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete occupancy teachers: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM occupancies WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete occupancy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete occupancy rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *OccupancyRepository) replaceTeachersTx(ctx context.Context, tx *sqlx.Tx, occupancyID string, teacherIDs []string, clear bool) error {
	if clear {
		if _, err := tx.ExecContext(ctx, `DELETE FROM occupancy_teachers WHERE occupancy_id = $1`, occupancyID); err != nil {
			return fmt.Errorf("clear occupancy teachers: %w", err)
		}
	}
	for _, teacherID := range teacherIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO occupancy_teachers (occupancy_id, teacher_id) VALUES ($1, $2)`, occupancyID, teacherID); err != nil {
			return fmt.Errorf("insert occupancy teacher: %w", err)
		}
	}
	return nil
}
