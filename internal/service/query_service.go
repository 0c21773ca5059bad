package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

// dayKeyFormat renders the day bucket of grouped listings.
const dayKeyFormat = "02-01-2006"

type occupancyLister interface {
	List(ctx context.Context, filter models.OccupancyFilter) ([]models.Occupancy, int, error)
	ListForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.Occupancy, error)
}

type directoryLookup interface {
	SubjectByID(ctx context.Context, id string) (*models.Subject, error)
	TeacherByID(ctx context.Context, id string) (*models.Teacher, error)
	ClassroomByID(ctx context.Context, id string) (*models.Classroom, error)
	ClassByID(ctx context.Context, id string) (*models.Class, error)
	StudentByID(ctx context.Context, id string) (*models.Student, error)
}

// ScheduleQueryService exposes the read-only occupancy views per
// external resource. Pure projections over the store's listing
// capability; mutations never pass through here.
type ScheduleQueryService struct {
	repo      occupancyLister
	directory directoryLookup
	cache     *CacheService
	logger    *zap.Logger
}

// NewScheduleQueryService constructs the query facade.
func NewScheduleQueryService(repo occupancyLister, directory directoryLookup, cache *CacheService, logger *zap.Logger) *ScheduleQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleQueryService{repo: repo, directory: directory, cache: cache, logger: logger}
}

// List returns occupancies with pagination metadata, ordered by start.
func (s *ScheduleQueryService) List(ctx context.Context, filter models.OccupancyFilter, page, pageSize int) ([]models.Occupancy, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	occupancies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occupancies")
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return occupancies, pagination, nil
}

// ForTeacher returns a teacher's occupancies within the optional
// range. The boolean reports whether the answer came from cache.
func (s *ScheduleQueryService) ForTeacher(ctx context.Context, teacherID string, from, to *time.Time) ([]models.Occupancy, bool, error) {
	if _, err := s.directory.TeacherByID(ctx, teacherID); err != nil {
		return nil, false, notFoundOr(err, "teacher")
	}
	key := s.cache.Key("teacher", teacherID, rangeKey(from, to))
	return s.cachedList(ctx, key, func() ([]models.Occupancy, error) {
		occupancies, _, err := s.repo.List(ctx, models.OccupancyFilter{TeacherID: teacherID, From: from, To: to})
		return occupancies, err
	})
}

// ForClassroom returns a classroom's occupancies within the optional range.
func (s *ScheduleQueryService) ForClassroom(ctx context.Context, classroomID string, from, to *time.Time) ([]models.Occupancy, bool, error) {
	if _, err := s.directory.ClassroomByID(ctx, classroomID); err != nil {
		return nil, false, notFoundOr(err, "classroom")
	}
	key := s.cache.Key("classroom", classroomID, rangeKey(from, to))
	return s.cachedList(ctx, key, func() ([]models.Occupancy, error) {
		occupancies, _, err := s.repo.List(ctx, models.OccupancyFilter{ClassroomID: classroomID, From: from, To: to})
		return occupancies, err
	})
}

// ForClass returns a class's occupancies, whole-class and group-level alike.
func (s *ScheduleQueryService) ForClass(ctx context.Context, classID string, from, to *time.Time) ([]models.Occupancy, bool, error) {
	if _, err := s.directory.ClassByID(ctx, classID); err != nil {
		return nil, false, notFoundOr(err, "class")
	}
	key := s.cache.Key("class", classID, rangeKey(from, to))
	return s.cachedList(ctx, key, func() ([]models.Occupancy, error) {
		occupancies, _, err := s.repo.List(ctx, models.OccupancyFilter{ClassID: classID, From: from, To: to})
		return occupancies, err
	})
}

// ForSubject returns a subject's occupancies across all its groups.
func (s *ScheduleQueryService) ForSubject(ctx context.Context, subjectID string, from, to *time.Time) ([]models.Occupancy, bool, error) {
	if _, err := s.directory.SubjectByID(ctx, subjectID); err != nil {
		return nil, false, notFoundOr(err, "subject")
	}
	key := s.cache.Key("subject", subjectID, rangeKey(from, to))
	return s.cachedList(ctx, key, func() ([]models.Occupancy, error) {
		occupancies, _, err := s.repo.List(ctx, models.OccupancyFilter{SubjectID: subjectID, From: from, To: to})
		return occupancies, err
	})
}

// ForGroup returns the occupancies of one group of a subject. Here the
// group is the addressed resource, so an out-of-range number is a
// NotFound rather than an assignment error.
func (s *ScheduleQueryService) ForGroup(ctx context.Context, subjectID string, groupNumber int, from, to *time.Time) ([]models.Occupancy, bool, error) {
	subject, err := s.directory.SubjectByID(ctx, subjectID)
	if err != nil {
		return nil, false, notFoundOr(err, "subject")
	}
	if !subject.HasGroup(groupNumber) {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s has no group %d", subjectID, groupNumber))
	}
	key := s.cache.Key("subject", subjectID, fmt.Sprintf("group%d", groupNumber), rangeKey(from, to))
	return s.cachedList(ctx, key, func() ([]models.Occupancy, error) {
		occupancies, _, err := s.repo.List(ctx, models.OccupancyFilter{SubjectID: subjectID, GroupNumber: &groupNumber, From: from, To: to})
		return occupancies, err
	})
}

// ForStudent returns the occupancies a student attends: whole-class
// bookings of their class plus the group bookings they are enrolled in.
func (s *ScheduleQueryService) ForStudent(ctx context.Context, studentID string, from, to *time.Time) ([]models.Occupancy, bool, error) {
	if _, err := s.directory.StudentByID(ctx, studentID); err != nil {
		return nil, false, notFoundOr(err, "student")
	}
	key := s.cache.Key("student", studentID, rangeKey(from, to))
	return s.cachedList(ctx, key, func() ([]models.Occupancy, error) {
		return s.repo.ListForStudent(ctx, studentID, from, to)
	})
}

// Daily groups a listing into per-day buckets keyed dd-mm-yyyy, each
// day's occupancies ordered by start. perDay caps how many entries a
// single day carries; zero means no cap.
func (s *ScheduleQueryService) Daily(ctx context.Context, filter models.OccupancyFilter, perDay int) ([]models.DaySchedule, error) {
	occupancies, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occupancies")
	}
	days := make([]models.DaySchedule, 0)
	for _, occ := range occupancies {
		date := occ.StartAt.UTC().Format(dayKeyFormat)
		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, models.DaySchedule{Date: date})
		}
		last := &days[len(days)-1]
		if perDay > 0 && len(last.Occupancies) >= perDay {
			continue
		}
		last.Occupancies = append(last.Occupancies, occ)
	}
	return days, nil
}

// TeacherService totals a teacher's booked and service-weighted hours
// over the optional range.
func (s *ScheduleQueryService) TeacherService(ctx context.Context, teacherID string, from, to *time.Time) (*models.ServiceReport, error) {
	if _, err := s.directory.TeacherByID(ctx, teacherID); err != nil {
		return nil, notFoundOr(err, "teacher")
	}
	occupancies, _, err := s.repo.List(ctx, models.OccupancyFilter{TeacherID: teacherID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher occupancies")
	}
	report := &models.ServiceReport{
		TeacherID: teacherID,
		From:      from,
		To:        to,
		ByKind:    make(map[models.OccupancyKind]float64),
	}
	for _, occ := range occupancies {
		hours := occ.Duration().Hours()
		weighted := hours * occ.Kind.ServiceWeight()
		report.TotalHours += hours
		report.ServiceHours += weighted
		report.ByKind[occ.Kind] += weighted
	}
	return report, nil
}

func (s *ScheduleQueryService) cachedList(ctx context.Context, key string, fetch func() ([]models.Occupancy, error)) ([]models.Occupancy, bool, error) {
	if s.cache.Enabled() {
		var cached []models.Occupancy
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, true, nil
		}
	}
	occupancies, err := fetch()
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occupancies")
	}
	if occupancies == nil {
		occupancies = []models.Occupancy{}
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, occupancies, 0)
	}
	return occupancies, false, nil
}

func rangeKey(from, to *time.Time) string {
	render := func(t *time.Time) string {
		if t == nil {
			return "any"
		}
		return t.UTC().Format("20060102T1504")
	}
	return render(from) + "_" + render(to)
}

func notFoundOr(err error, label string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, label+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve "+label)
}
