package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/interval"
	"github.com/campusctl/edt-api/internal/models"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
	"github.com/campusctl/edt-api/pkg/lockset"
)

// maxLockAttempts bounds how often a mutation re-acquires its resource
// locks when a concurrent update moved the occupancy between the
// initial read and the lock grab. Exhaustion surfaces as a conflict,
// never as unbounded waiting.
const maxLockAttempts = 3

type occupancyStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	GetByID(ctx context.Context, id string) (*models.Occupancy, error)
	ListAll(ctx context.Context) ([]models.Occupancy, error)
	InsertTx(ctx context.Context, tx *sqlx.Tx, occ *models.Occupancy) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, occ *models.Occupancy) error
	DeleteTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error)
}

type changeFeedStore interface {
	AppendTx(ctx context.Context, tx *sqlx.Tx, entry *models.ChangeEntry) error
}

type resourceDirectory interface {
	SubjectByID(ctx context.Context, id string) (*models.Subject, error)
	ClassroomByID(ctx context.Context, id string) (*models.Classroom, error)
	ExistingTeacherIDs(ctx context.Context, ids []string) (map[string]bool, error)
	SubjectTeacherIDs(ctx context.Context, subjectID string) (map[string]bool, error)
}

type feedNotifier interface {
	Notify(entry models.ChangeEntry)
}

// CreateOccupancyRequest describes the payload for booking a time slot
// on a subject, either for the whole class or for one of its groups.
// SubjectID and GroupNumber come from the route, not the body.
type CreateOccupancyRequest struct {
	SubjectID   string    `json:"-" validate:"required"`
	GroupNumber *int      `json:"-"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	TeacherIDs  []string  `json:"teacher_ids" validate:"required,min=1,dive,required"`
	ClassroomID string    `json:"classroom_id" validate:"required"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
}

// UpdateOccupancyRequest carries the changed fields for an existing
// occupancy. Nil fields stay untouched. Setting a whole-class kind
// clears the group number. ExpectedVersion, when present, rejects the
// update unless it matches the stored version.
type UpdateOccupancyRequest struct {
	Name            *string    `json:"name"`
	Kind            *string    `json:"kind"`
	GroupNumber     *int       `json:"group_number"`
	TeacherIDs      []string   `json:"teacher_ids" validate:"omitempty,min=1,dive,required"`
	ClassroomID     *string    `json:"classroom_id"`
	Start           *time.Time `json:"start"`
	End             *time.Time `json:"end"`
	ExpectedVersion *int64     `json:"expected_version"`
}

// OccupancyService is the sole entry point for occupancy mutations. It
// validates candidates against the resource directory, runs the
// conflict checks over the interval index under per-resource locks, and
// commits the store write together with its change feed entry in one
// transaction.
type OccupancyService struct {
	store     occupancyStore
	feed      changeFeedStore
	directory resourceDirectory
	index     *interval.Index
	locks     *lockset.Set
	cache     *CacheService
	metrics   *MetricsService
	notifier  feedNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOccupancyService instantiates the scheduling engine.
func NewOccupancyService(
	store occupancyStore,
	feed changeFeedStore,
	directory resourceDirectory,
	index *interval.Index,
	locks *lockset.Set,
	cache *CacheService,
	metrics *MetricsService,
	notifier feedNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *OccupancyService {
	if index == nil {
		index = interval.NewIndex()
	}
	if locks == nil {
		locks = lockset.New()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyService{
		store:     store,
		feed:      feed,
		directory: directory,
		index:     index,
		locks:     locks,
		cache:     cache,
		metrics:   metrics,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// WarmUp rebuilds the interval index from the store. Call before the
// service accepts mutations; the index is derived state, never the
// source of truth.
func (s *OccupancyService) WarmUp(ctx context.Context) error {
	occupancies, err := s.store.ListAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancies for index warm-up")
	}
	snapshot := make(map[string][]interval.Entry)
	for i := range occupancies {
		occ := &occupancies[i]
		entry := indexEntry(occ)
		for _, key := range resourceKeys(occ) {
			snapshot[key] = append(snapshot[key], entry)
		}
	}
	s.index.Load(snapshot)
	s.logger.Info("interval index warmed",
		zap.Int("occupancies", len(occupancies)),
		zap.Int("resource_keys", len(snapshot)))
	return nil
}

// Get returns a single occupancy by id.
func (s *OccupancyService) Get(ctx context.Context, id string) (*models.Occupancy, error) {
	return s.loadOccupancy(ctx, id)
}

// Create books a new occupancy after membership validation and conflict
// checks across all three resource dimensions.
func (s *OccupancyService) Create(ctx context.Context, req CreateOccupancyRequest) (*models.Occupancy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid occupancy payload")
	}

	kind, err := resolveKind(req.Kind, req.GroupNumber)
	if err != nil {
		return nil, err
	}

	occ := &models.Occupancy{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Kind:        kind,
		SubjectID:   req.SubjectID,
		ClassroomID: strings.TrimSpace(req.ClassroomID),
		GroupNumber: copyGroupNumber(req.GroupNumber),
		TeacherIDs:  pq.StringArray(normalizeTeacherIDs(req.TeacherIDs)),
		StartAt:     req.Start.UTC(),
		EndAt:       req.End.UTC(),
	}
	if err := s.validateCandidate(ctx, occ); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(resourceKeys(occ))
	defer unlock()

	if detail := s.firstConflict(occ, ""); detail != nil {
		s.metrics.RecordConflict(detail.Dimension)
		return nil, conflictError(detail)
	}

	now := time.Now().UTC()
	occ.CreatedAt = now
	occ.UpdatedAt = now
	entry := &models.ChangeEntry{
		OccupancyID: occ.ID,
		Operation:   models.ChangeOperationCreated,
		OccurredAt:  now,
		Details:     changeDetails(occ, nil),
	}
	err = s.commitMutation(ctx, entry, func(tx *sqlx.Tx) error {
		occ.Version = entry.Version
		if err := s.store.InsertTx(ctx, tx, occ); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert occupancy")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.indexInsert(occ)
	s.finishMutation(ctx, entry)
	s.logger.Info("occupancy created",
		zap.String("occupancy_id", occ.ID),
		zap.String("subject_id", occ.SubjectID),
		zap.Int64("version", occ.Version))
	return occ, nil
}

// Update applies the changed fields to an existing occupancy, running
// the full validation and conflict checks against the post-change
// booking while excluding its own current intervals.
func (s *OccupancyService) Update(ctx context.Context, id string, req UpdateOccupancyRequest) (*models.Occupancy, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid occupancy payload")
	}

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, err := s.loadOccupancy(ctx, id)
		if err != nil {
			return nil, err
		}
		candidate, err := s.mergeCandidate(ctx, current, req)
		if err != nil {
			return nil, err
		}
		updated, retry, err := s.tryUpdate(ctx, req, current, candidate)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		return updated, nil
	}
	s.metrics.RecordConflict(models.ConflictDimensionVersion)
	return nil, appErrors.Clone(appErrors.ErrConflict, "occupancy is being modified concurrently")
}

// Delete removes an occupancy and all of its index entries. No conflict
// checks apply.
func (s *OccupancyService) Delete(ctx context.Context, id string) error {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, err := s.loadOccupancy(ctx, id)
		if err != nil {
			return err
		}
		retry, err := s.tryDelete(ctx, current)
		if err != nil {
			return err
		}
		if retry {
			continue
		}
		return nil
	}
	s.metrics.RecordConflict(models.ConflictDimensionVersion)
	return appErrors.Clone(appErrors.ErrConflict, "occupancy is being modified concurrently")
}

// tryUpdate performs the locked section of an update. retry means a
// concurrent mutation moved the occupancy before the locks were held
// and the caller should re-resolve.
func (s *OccupancyService) tryUpdate(ctx context.Context, req UpdateOccupancyRequest, current, candidate *models.Occupancy) (*models.Occupancy, bool, error) {
	keys := append(resourceKeys(current), resourceKeys(candidate)...)
	unlock := s.locks.Lock(keys)
	defer unlock()

	fresh, err := s.loadOccupancy(ctx, current.ID)
	if err != nil {
		return nil, false, err
	}
	if fresh.Version != current.Version {
		return nil, true, nil
	}

	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		detail := &models.ConflictDetail{
			Dimension:           models.ConflictDimensionVersion,
			ResourceID:          current.ID,
			BlockingOccupancyID: current.ID,
		}
		s.metrics.RecordConflict(detail.Dimension)
		return nil, false, conflictError(detail)
	}

	if detail := s.firstConflict(candidate, current.ID); detail != nil {
		s.metrics.RecordConflict(detail.Dimension)
		return nil, false, conflictError(detail)
	}

	now := time.Now().UTC()
	candidate.UpdatedAt = now
	entry := &models.ChangeEntry{
		OccupancyID: current.ID,
		Operation:   models.ChangeOperationUpdated,
		OccurredAt:  now,
		Details:     changeDetails(candidate, current),
	}
	err = s.commitMutation(ctx, entry, func(tx *sqlx.Tx) error {
		candidate.Version = entry.Version
		if err := s.store.UpdateTx(ctx, tx, candidate); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update occupancy")
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.indexRemove(current)
	s.indexInsert(candidate)
	s.finishMutation(ctx, entry)
	s.logger.Info("occupancy updated",
		zap.String("occupancy_id", candidate.ID),
		zap.Int64("version", candidate.Version))
	return candidate, false, nil
}

// tryDelete performs the locked section of a delete.
func (s *OccupancyService) tryDelete(ctx context.Context, current *models.Occupancy) (bool, error) {
	unlock := s.locks.Lock(resourceKeys(current))
	defer unlock()

	fresh, err := s.loadOccupancy(ctx, current.ID)
	if err != nil {
		return false, err
	}
	if fresh.Version != current.Version {
		return true, nil
	}

	now := time.Now().UTC()
	entry := &models.ChangeEntry{
		OccupancyID: current.ID,
		Operation:   models.ChangeOperationDeleted,
		OccurredAt:  now,
		Details:     changeDetails(nil, current),
	}
	err = s.commitMutation(ctx, entry, func(tx *sqlx.Tx) error {
		existed, err := s.store.DeleteTx(ctx, tx, current.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete occupancy")
		}
		if !existed {
			return appErrors.Clone(appErrors.ErrNotFound, "occupancy not found")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.indexRemove(current)
	s.finishMutation(ctx, entry)
	s.logger.Info("occupancy deleted",
		zap.String("occupancy_id", current.ID),
		zap.Int64("version", entry.Version))
	return false, nil
}

// validateCandidate enforces the interval, kind, membership, and
// directory checks in their short-circuit order. It also resolves the
// class association and defaults the display name from the subject.
func (s *OccupancyService) validateCandidate(ctx context.Context, occ *models.Occupancy) error {
	if !occ.StartAt.Before(occ.EndAt) {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, "start must be strictly before end")
	}
	if !occ.Kind.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("unsupported occupancy kind %q", occ.Kind))
	}
	if occ.Kind.WholeClass() && occ.GroupNumber != nil {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("kind %s books the whole class and cannot target a group", occ.Kind))
	}
	if !occ.Kind.WholeClass() && occ.GroupNumber == nil {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("kind %s requires a group number", occ.Kind))
	}

	subject, err := s.directory.SubjectByID(ctx, occ.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
	}

	if len(occ.TeacherIDs) == 0 {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, "at least one teacher is required")
	}
	known, err := s.directory.ExistingTeacherIDs(ctx, occ.TeacherIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teachers")
	}
	for _, teacherID := range occ.TeacherIDs {
		if !known[teacherID] {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s not found", teacherID))
		}
	}
	assigned, err := s.directory.SubjectTeacherIDs(ctx, occ.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject teachers")
	}
	for _, teacherID := range occ.TeacherIDs {
		if !assigned[teacherID] {
			return appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("teacher %s is not assigned to subject %s", teacherID, occ.SubjectID))
		}
	}

	if occ.GroupNumber != nil && !subject.HasGroup(*occ.GroupNumber) {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("subject %s has no group %d", occ.SubjectID, *occ.GroupNumber))
	}

	if _, err := s.directory.ClassroomByID(ctx, occ.ClassroomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classroom")
	}

	occ.ClassID = subject.ClassID
	if occ.Name == "" {
		occ.Name = subject.Name
	}
	return nil
}

// mergeCandidate builds the hypothetical post-change occupancy and runs
// the full candidate validation against it. Membership is read fresh on
// every call, never cached across requests.
func (s *OccupancyService) mergeCandidate(ctx context.Context, current *models.Occupancy, req UpdateOccupancyRequest) (*models.Occupancy, error) {
	next := *current
	next.TeacherIDs = append(pq.StringArray(nil), current.TeacherIDs...)
	next.GroupNumber = copyGroupNumber(current.GroupNumber)

	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Kind != nil {
		kind := models.OccupancyKind(strings.ToUpper(strings.TrimSpace(*req.Kind)))
		if !kind.Valid() {
			return nil, appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("unsupported occupancy kind %q", *req.Kind))
		}
		next.Kind = kind
		if kind.WholeClass() {
			next.GroupNumber = nil
		}
	}
	if req.GroupNumber != nil {
		next.GroupNumber = copyGroupNumber(req.GroupNumber)
	}
	if req.TeacherIDs != nil {
		next.TeacherIDs = pq.StringArray(normalizeTeacherIDs(req.TeacherIDs))
	}
	if req.ClassroomID != nil {
		next.ClassroomID = strings.TrimSpace(*req.ClassroomID)
	}
	if req.Start != nil {
		next.StartAt = req.Start.UTC()
	}
	if req.End != nil {
		next.EndAt = req.End.UTC()
	}

	if err := s.validateCandidate(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// firstConflict scans the interval index in dimension order: teachers,
// classroom, then class population. excludeID skips the occupancy's own
// entries so a booking can be moved without self-conflicting.
func (s *OccupancyService) firstConflict(occ *models.Occupancy, excludeID string) *models.ConflictDetail {
	notSelf := func(e interval.Entry) bool {
		return excludeID == "" || e.OccupancyID != excludeID
	}

	for _, teacherID := range occ.TeacherIDs {
		if e, ok := s.index.Conflicting(teacherKey(teacherID), occ.StartAt, occ.EndAt, notSelf); ok {
			return &models.ConflictDetail{
				Dimension:           models.ConflictDimensionTeacher,
				ResourceID:          teacherID,
				BlockingOccupancyID: e.OccupancyID,
			}
		}
	}

	if e, ok := s.index.Conflicting(classroomKey(occ.ClassroomID), occ.StartAt, occ.EndAt, notSelf); ok {
		return &models.ConflictDetail{
			Dimension:           models.ConflictDimensionClassroom,
			ResourceID:          occ.ClassroomID,
			BlockingOccupancyID: e.OccupancyID,
		}
	}

	population := func(e interval.Entry) bool {
		return notSelf(e) && populationsOverlap(occ.SubjectID, occ.GroupNumber, e)
	}
	if e, ok := s.index.Conflicting(classKey(occ.ClassID), occ.StartAt, occ.EndAt, population); ok {
		return &models.ConflictDetail{
			Dimension:           models.ConflictDimensionClass,
			ResourceID:          occ.ClassID,
			BlockingOccupancyID: e.OccupancyID,
		}
	}
	return nil
}

// commitMutation appends the feed entry and applies the store write in
// one transaction. The feed insert assigns the version the store write
// then persists, so no mutation is durable without its feed entry.
func (s *OccupancyService) commitMutation(ctx context.Context, entry *models.ChangeEntry, apply func(tx *sqlx.Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.feed.AppendTx(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record change feed entry")
	}
	if err := apply(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit mutation")
	}
	return nil
}

// finishMutation runs the post-commit side effects shared by all
// mutations: metrics, cache invalidation, and stream fan-out.
func (s *OccupancyService) finishMutation(ctx context.Context, entry *models.ChangeEntry) {
	s.metrics.RecordMutation(entry.Operation, entry.Version)
	if s.cache != nil {
		_ = s.cache.InvalidateOccupancies(ctx)
	}
	if s.notifier != nil {
		s.notifier.Notify(*entry)
	}
}

func (s *OccupancyService) loadOccupancy(ctx context.Context, id string) (*models.Occupancy, error) {
	occ, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "occupancy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy")
	}
	return occ, nil
}

func (s *OccupancyService) indexInsert(occ *models.Occupancy) {
	entry := indexEntry(occ)
	for _, key := range resourceKeys(occ) {
		s.index.Insert(key, entry)
	}
}

func (s *OccupancyService) indexRemove(occ *models.Occupancy) {
	for _, key := range resourceKeys(occ) {
		s.index.Remove(key, occ.ID)
	}
}

func conflictError(detail *models.ConflictDetail) error {
	var message string
	switch detail.Dimension {
	case models.ConflictDimensionTeacher:
		message = fmt.Sprintf("teacher %s already has a booking in this slot", detail.ResourceID)
	case models.ConflictDimensionClassroom:
		message = fmt.Sprintf("classroom %s is already booked in this slot", detail.ResourceID)
	case models.ConflictDimensionClass:
		message = "the targeted students already have a booking in this slot"
	case models.ConflictDimensionVersion:
		message = "occupancy version mismatch"
	default:
		message = "occupancy conflicts with an existing booking"
	}
	return appErrors.Clone(appErrors.ErrConflict, message).WithDetails(detail)
}

// populationsOverlap applies the class population rule: a whole-class
// booking collides with everything in the class, and two group-level
// bookings collide only when they target the same group of the same
// subject.
func populationsOverlap(subjectID string, group *int, e interval.Entry) bool {
	if group == nil || e.GroupNumber == nil {
		return true
	}
	return e.SubjectID == subjectID && *e.GroupNumber == *group
}

func resolveKind(raw string, group *int) (models.OccupancyKind, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		if group != nil {
			return models.OccupancyKindTutorial, nil
		}
		return models.OccupancyKindLecture, nil
	}
	kind := models.OccupancyKind(trimmed)
	if !kind.Valid() {
		return "", appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("unsupported occupancy kind %q", raw))
	}
	return kind, nil
}

func changeDetails(next, previous *models.Occupancy) models.ChangeDetails {
	source := next
	if source == nil {
		source = previous
	}
	details := models.ChangeDetails{
		Name:        source.Name,
		SubjectID:   source.SubjectID,
		ClassID:     source.ClassID,
		GroupNumber: copyGroupNumber(source.GroupNumber),
	}
	if next != nil {
		start, end := next.StartAt, next.EndAt
		details.Start = &start
		details.End = &end
	}
	if previous != nil {
		start, end := previous.StartAt, previous.EndAt
		details.PreviousStart = &start
		details.PreviousEnd = &end
	}
	return details
}

func indexEntry(occ *models.Occupancy) interval.Entry {
	return interval.Entry{
		Start:       occ.StartAt,
		End:         occ.EndAt,
		OccupancyID: occ.ID,
		SubjectID:   occ.SubjectID,
		GroupNumber: occ.GroupNumber,
	}
}

// resourceKeys lists every lock and index key the occupancy touches:
// one per teacher, the classroom, and the class population key.
func resourceKeys(occ *models.Occupancy) []string {
	keys := make([]string, 0, len(occ.TeacherIDs)+2)
	for _, teacherID := range occ.TeacherIDs {
		keys = append(keys, teacherKey(teacherID))
	}
	keys = append(keys, classroomKey(occ.ClassroomID), classKey(occ.ClassID))
	return keys
}

func teacherKey(id string) string   { return "teacher:" + id }
func classroomKey(id string) string { return "classroom:" + id }
func classKey(id string) string     { return "class:" + id }

func normalizeTeacherIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func copyGroupNumber(group *int) *int {
	if group == nil {
		return nil
	}
	n := *group
	return &n
}
