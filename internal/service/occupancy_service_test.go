package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

type mockOccupancyStore struct {
	db             *sqlx.DB
	items          map[string]*models.Occupancy
	insertErr      error
	vanishOnDelete bool
}

func (m *mockOccupancyStore) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, nil)
}

func (m *mockOccupancyStore) GetByID(ctx context.Context, id string) (*models.Occupancy, error) {
	occ, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *occ
	cp.TeacherIDs = append(cp.TeacherIDs[:0:0], occ.TeacherIDs...)
	return &cp, nil
}

func (m *mockOccupancyStore) ListAll(ctx context.Context) ([]models.Occupancy, error) {
	out := make([]models.Occupancy, 0, len(m.items))
	for _, occ := range m.items {
		out = append(out, *occ)
	}
	return out, nil
}

func (m *mockOccupancyStore) InsertTx(ctx context.Context, tx *sqlx.Tx, occ *models.Occupancy) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	cp := *occ
	m.items[occ.ID] = &cp
	return nil
}

func (m *mockOccupancyStore) UpdateTx(ctx context.Context, tx *sqlx.Tx, occ *models.Occupancy) error {
	cp := *occ
	m.items[occ.ID] = &cp
	return nil
}

func (m *mockOccupancyStore) DeleteTx(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	if m.vanishOnDelete {
		return false, nil
	}
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

type mockFeedStore struct {
	next      int64
	entries   []models.ChangeEntry
	appendErr error
}

func (m *mockFeedStore) AppendTx(ctx context.Context, tx *sqlx.Tx, entry *models.ChangeEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.next++
	entry.Version = m.next
	m.entries = append(m.entries, *entry)
	return nil
}

type mockDirectory struct {
	subjects        map[string]*models.Subject
	classrooms      map[string]*models.Classroom
	classes         map[string]*models.Class
	teachers        map[string]*models.Teacher
	students        map[string]*models.Student
	subjectTeachers map[string]map[string]bool
}

func (m *mockDirectory) SubjectByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *subject
	return &cp, nil
}

func (m *mockDirectory) ClassroomByID(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, ok := m.classrooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *classroom
	return &cp, nil
}

func (m *mockDirectory) ClassByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := m.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *class
	return &cp, nil
}

func (m *mockDirectory) TeacherByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := m.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *teacher
	return &cp, nil
}

func (m *mockDirectory) StudentByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *student
	return &cp, nil
}

func (m *mockDirectory) ExistingTeacherIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.teachers[id]; ok {
			known[id] = true
		}
	}
	return known, nil
}

func (m *mockDirectory) SubjectTeacherIDs(ctx context.Context, subjectID string) (map[string]bool, error) {
	assigned := make(map[string]bool, len(m.subjectTeachers[subjectID]))
	for id := range m.subjectTeachers[subjectID] {
		assigned[id] = true
	}
	return assigned, nil
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		subjects: map[string]*models.Subject{
			"subject-algo":  {ID: "subject-algo", Name: "Algorithmique", ClassID: "class-b1", GroupCount: 2},
			"subject-maths": {ID: "subject-maths", Name: "Mathématiques", ClassID: "class-b1", GroupCount: 0},
			"subject-web":   {ID: "subject-web", Name: "Développement Web", ClassID: "class-b1", GroupCount: 2},
		},
		classrooms: map[string]*models.Classroom{
			"room-a101": {ID: "room-a101", Name: "A101", Capacity: 30},
			"room-a102": {ID: "room-a102", Name: "A102", Capacity: 30},
			"room-b201": {ID: "room-b201", Name: "B201", Capacity: 60},
		},
		classes: map[string]*models.Class{
			"class-b1": {ID: "class-b1", Name: "B1 Informatique"},
		},
		teachers: map[string]*models.Teacher{
			"teacher-durand":  {ID: "teacher-durand", FullName: "Claire Durand"},
			"teacher-martin":  {ID: "teacher-martin", FullName: "Paul Martin"},
			"teacher-bernard": {ID: "teacher-bernard", FullName: "Julie Bernard"},
			"teacher-petit":   {ID: "teacher-petit", FullName: "Louis Petit"},
		},
		students: map[string]*models.Student{
			"student-1": {ID: "student-1", FullName: "Emma Roux", ClassID: "class-b1"},
		},
		subjectTeachers: map[string]map[string]bool{
			"subject-algo":  {"teacher-durand": true, "teacher-martin": true},
			"subject-maths": {"teacher-bernard": true},
			"subject-web":   {"teacher-petit": true, "teacher-martin": true},
		},
	}
}

type notifierStub struct {
	entries []models.ChangeEntry
}

func (n *notifierStub) Notify(entry models.ChangeEntry) {
	n.entries = append(n.entries, entry)
}

type occupancyFixture struct {
	service   *OccupancyService
	store     *mockOccupancyStore
	feed      *mockFeedStore
	directory *mockDirectory
	notifier  *notifierStub
	mock      sqlmock.Sqlmock
}

func newOccupancyFixture(t *testing.T) *occupancyFixture {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })

	store := &mockOccupancyStore{db: sqlxdb, items: make(map[string]*models.Occupancy)}
	feed := &mockFeedStore{}
	directory := newMockDirectory()
	notifier := &notifierStub{}

	service := NewOccupancyService(store, feed, directory, nil, nil, nil, nil, notifier, validator.New(), zap.NewNop())
	return &occupancyFixture{
		service:   service,
		store:     store,
		feed:      feed,
		directory: directory,
		notifier:  notifier,
		mock:      mock,
	}
}

func (f *occupancyFixture) expectCommits(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *occupancyFixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func hourOf(h int) time.Time {
	return time.Date(2026, time.March, 2, h, 0, 0, 0, time.UTC)
}

func groupPtr(n int) *int {
	return &n
}

func algoLecture(start, end time.Time) CreateOccupancyRequest {
	return CreateOccupancyRequest{
		SubjectID:   "subject-algo",
		Kind:        "CM",
		TeacherIDs:  []string{"teacher-durand"},
		ClassroomID: "room-a101",
		Start:       start,
		End:         end,
	}
}

func TestOccupancyServiceCreate(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	req := algoLecture(hourOf(8), hourOf(10))
	req.TeacherIDs = []string{"teacher-martin", "teacher-durand", " teacher-martin "}
	occ, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, occ.ID)
	assert.Equal(t, "Algorithmique", occ.Name, "blank name falls back to the subject name")
	assert.Equal(t, models.OccupancyKindLecture, occ.Kind)
	assert.Equal(t, "class-b1", occ.ClassID, "class comes from the subject, not the payload")
	assert.Equal(t, []string{"teacher-durand", "teacher-martin"}, []string(occ.TeacherIDs))
	assert.Nil(t, occ.GroupNumber)
	assert.Equal(t, int64(1), occ.Version)

	require.Len(t, f.feed.entries, 1)
	entry := f.feed.entries[0]
	assert.Equal(t, models.ChangeOperationCreated, entry.Operation)
	assert.Equal(t, occ.ID, entry.OccupancyID)
	assert.Equal(t, occ.Version, entry.Version)
	require.NotNil(t, entry.Details.Start)
	assert.True(t, entry.Details.Start.Equal(hourOf(8)))

	require.Len(t, f.notifier.entries, 1)
	assert.Equal(t, entry.Version, f.notifier.entries[0].Version)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceCreateDefaultsKind(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(2)

	wholeClass := algoLecture(hourOf(8), hourOf(9))
	wholeClass.Kind = ""
	occ, err := f.service.Create(context.Background(), wholeClass)
	require.NoError(t, err)
	assert.Equal(t, models.OccupancyKindLecture, occ.Kind)

	grouped := algoLecture(hourOf(9), hourOf(10))
	grouped.Kind = ""
	grouped.GroupNumber = groupPtr(1)
	occ, err = f.service.Create(context.Background(), grouped)
	require.NoError(t, err)
	assert.Equal(t, models.OccupancyKindTutorial, occ.Kind)
	require.NotNil(t, occ.GroupNumber)
	assert.Equal(t, 1, *occ.GroupNumber)
}

func TestOccupancyServiceCreateMissingTeachers(t *testing.T) {
	f := newOccupancyFixture(t)

	req := algoLecture(hourOf(8), hourOf(10))
	req.TeacherIDs = nil
	_, err := f.service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.feed.entries)
}

func TestOccupancyServiceCreateInvalidAssignments(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateOccupancyRequest)
	}{
		{"start equals end", func(r *CreateOccupancyRequest) { r.End = r.Start }},
		{"start after end", func(r *CreateOccupancyRequest) { r.Start, r.End = r.End, r.Start }},
		{"unknown kind", func(r *CreateOccupancyRequest) { r.Kind = "LAB" }},
		{"whole-class kind with group", func(r *CreateOccupancyRequest) { r.GroupNumber = groupPtr(1) }},
		{"group kind without group", func(r *CreateOccupancyRequest) { r.Kind = "TD" }},
		{"group out of range", func(r *CreateOccupancyRequest) {
			r.Kind = "TD"
			r.GroupNumber = groupPtr(3)
		}},
		{"group on ungrouped subject", func(r *CreateOccupancyRequest) {
			r.SubjectID = "subject-maths"
			r.TeacherIDs = []string{"teacher-bernard"}
			r.Kind = "TD"
			r.GroupNumber = groupPtr(1)
		}},
		{"teacher not assigned to subject", func(r *CreateOccupancyRequest) { r.TeacherIDs = []string{"teacher-bernard"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOccupancyFixture(t)
			req := algoLecture(hourOf(8), hourOf(10))
			tc.mutate(&req)

			_, err := f.service.Create(context.Background(), req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrInvalidAssignment.Code, appErr.Code)
			assert.Empty(t, f.feed.entries)
			assert.Empty(t, f.store.items)
		})
	}
}

func TestOccupancyServiceCreateUnknownResources(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateOccupancyRequest)
	}{
		{"unknown subject", func(r *CreateOccupancyRequest) { r.SubjectID = "subject-ghost" }},
		{"unknown teacher", func(r *CreateOccupancyRequest) { r.TeacherIDs = []string{"teacher-ghost"} }},
		{"unknown classroom", func(r *CreateOccupancyRequest) { r.ClassroomID = "room-ghost" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOccupancyFixture(t)
			req := algoLecture(hourOf(8), hourOf(10))
			tc.mutate(&req)

			_, err := f.service.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestOccupancyServiceCreateMembershipErrorsBeforeConflict(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	_, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	req := CreateOccupancyRequest{
		SubjectID:   "subject-maths",
		Kind:        "CM",
		TeacherIDs:  []string{"teacher-martin"},
		ClassroomID: "room-a101",
		Start:       hourOf(8),
		End:         hourOf(10),
	}
	_, err = f.service.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidAssignment.Code, appErr.Code,
		"an unassigned teacher must be reported before the slot conflict")
}

func TestOccupancyServiceCreateTeacherConflict(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	first, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	req := CreateOccupancyRequest{
		SubjectID:   "subject-algo",
		Kind:        "TD",
		GroupNumber: groupPtr(1),
		TeacherIDs:  []string{"teacher-martin", "teacher-durand"},
		ClassroomID: "room-a102",
		Start:       hourOf(9),
		End:         hourOf(11),
	}
	_, err = f.service.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	detail, ok := appErr.Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionTeacher, detail.Dimension)
	assert.Equal(t, "teacher-durand", detail.ResourceID)
	assert.Equal(t, first.ID, detail.BlockingOccupancyID)

	assert.Len(t, f.feed.entries, 1, "rejected mutations leave no feed trace")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceCreateClassroomConflict(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	first, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	req := CreateOccupancyRequest{
		SubjectID:   "subject-algo",
		Kind:        "TD",
		GroupNumber: groupPtr(1),
		TeacherIDs:  []string{"teacher-martin"},
		ClassroomID: "room-a101",
		Start:       hourOf(9),
		End:         hourOf(11),
	}
	_, err = f.service.Create(context.Background(), req)
	require.Error(t, err)
	detail, ok := appErrors.FromError(err).Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionClassroom, detail.Dimension)
	assert.Equal(t, "room-a101", detail.ResourceID)
	assert.Equal(t, first.ID, detail.BlockingOccupancyID)
}

func TestOccupancyServiceCreateClassPopulationConflict(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	req := algoLecture(hourOf(8), hourOf(10))
	req.Kind = "TD"
	req.GroupNumber = groupPtr(1)
	first, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)

	wholeClass := CreateOccupancyRequest{
		SubjectID:   "subject-maths",
		Kind:        "CM",
		TeacherIDs:  []string{"teacher-bernard"},
		ClassroomID: "room-b201",
		Start:       hourOf(9),
		End:         hourOf(11),
	}
	_, err = f.service.Create(context.Background(), wholeClass)
	require.Error(t, err)
	detail, ok := appErrors.FromError(err).Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionClass, detail.Dimension)
	assert.Equal(t, "class-b1", detail.ResourceID)
	assert.Equal(t, first.ID, detail.BlockingOccupancyID,
		"a whole-class booking collides with any group of the class")
}

func TestOccupancyServiceCreateSameGroupConflict(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	req := algoLecture(hourOf(8), hourOf(10))
	req.Kind = "TD"
	req.GroupNumber = groupPtr(1)
	_, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)

	again := CreateOccupancyRequest{
		SubjectID:   "subject-algo",
		Kind:        "TP",
		GroupNumber: groupPtr(1),
		TeacherIDs:  []string{"teacher-martin"},
		ClassroomID: "room-a102",
		Start:       hourOf(9),
		End:         hourOf(11),
	}
	_, err = f.service.Create(context.Background(), again)
	require.Error(t, err)
	detail, ok := appErrors.FromError(err).Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionClass, detail.Dimension)
}

func TestOccupancyServiceCreateDistinctPopulationsShareSlot(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(3)

	group1 := algoLecture(hourOf(8), hourOf(10))
	group1.Kind = "TD"
	group1.GroupNumber = groupPtr(1)
	_, err := f.service.Create(context.Background(), group1)
	require.NoError(t, err)

	group2 := CreateOccupancyRequest{
		SubjectID:   "subject-algo",
		Kind:        "TD",
		GroupNumber: groupPtr(2),
		TeacherIDs:  []string{"teacher-martin"},
		ClassroomID: "room-a102",
		Start:       hourOf(8),
		End:         hourOf(10),
	}
	_, err = f.service.Create(context.Background(), group2)
	require.NoError(t, err, "two groups of the same subject may run in parallel")

	otherSubject := CreateOccupancyRequest{
		SubjectID:   "subject-web",
		Kind:        "TP",
		GroupNumber: groupPtr(1),
		TeacherIDs:  []string{"teacher-petit"},
		ClassroomID: "room-b201",
		Start:       hourOf(8),
		End:         hourOf(10),
	}
	_, err = f.service.Create(context.Background(), otherSubject)
	require.NoError(t, err, "group bookings of different subjects never collide")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceCreateAbuttingSlots(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(2)

	_, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), algoLecture(hourOf(10), hourOf(12)))
	require.NoError(t, err, "a booking starting where another ends is not a conflict")
}

func TestOccupancyServiceCreateFeedAppendFailureRollsBack(t *testing.T) {
	f := newOccupancyFixture(t)
	f.feed.appendErr = assert.AnError
	f.expectRollback()

	_, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.store.items)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceCreateInsertFailureRollsBack(t *testing.T) {
	f := newOccupancyFixture(t)
	f.store.insertErr = assert.AnError
	f.expectRollback()

	_, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.notifier.entries, "no fan-out for rolled back mutations")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceUpdate(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(2)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	start, end := hourOf(14), hourOf(16)
	updated, err := f.service.Update(context.Background(), occ.ID, UpdateOccupancyRequest{
		Start: &start,
		End:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.StartAt.Equal(start))

	require.Len(t, f.feed.entries, 2)
	entry := f.feed.entries[1]
	assert.Equal(t, models.ChangeOperationUpdated, entry.Operation)
	require.NotNil(t, entry.Details.PreviousStart)
	assert.True(t, entry.Details.PreviousStart.Equal(hourOf(8)), "updates record the vacated interval")
	require.NotNil(t, entry.Details.Start)
	assert.True(t, entry.Details.Start.Equal(start))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceUpdateFreesOldSlot(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(3)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	start, end := hourOf(14), hourOf(16)
	_, err = f.service.Update(context.Background(), occ.ID, UpdateOccupancyRequest{Start: &start, End: &end})
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err, "the vacated interval is immediately bookable")
}

func TestOccupancyServiceUpdateSelfOverlapAllowed(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(2)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	start, end := hourOf(9), hourOf(11)
	updated, err := f.service.Update(context.Background(), occ.ID, UpdateOccupancyRequest{Start: &start, End: &end})
	require.NoError(t, err, "a booking sliding over its own interval must not self-conflict")
	assert.True(t, updated.StartAt.Equal(start))
}

func TestOccupancyServiceUpdateConflict(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(2)

	first, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	second, err := f.service.Create(context.Background(), CreateOccupancyRequest{
		SubjectID:   "subject-maths",
		Kind:        "CM",
		TeacherIDs:  []string{"teacher-bernard"},
		ClassroomID: "room-a102",
		Start:       hourOf(10),
		End:         hourOf(12),
	})
	require.NoError(t, err)

	start, end := hourOf(9), hourOf(11)
	_, err = f.service.Update(context.Background(), second.ID, UpdateOccupancyRequest{Start: &start, End: &end})
	require.Error(t, err)
	detail, ok := appErrors.FromError(err).Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionClass, detail.Dimension)
	assert.Equal(t, first.ID, detail.BlockingOccupancyID)

	stored, err := f.store.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartAt.Equal(hourOf(10)), "a rejected update leaves the booking untouched")
	assert.Equal(t, int64(2), stored.Version)
	assert.Len(t, f.feed.entries, 2)
}

func TestOccupancyServiceUpdateExpectedVersionMismatch(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	stale := int64(99)
	name := "Rescheduled"
	_, err = f.service.Update(context.Background(), occ.ID, UpdateOccupancyRequest{
		Name:            &name,
		ExpectedVersion: &stale,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	detail, ok := appErr.Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, models.ConflictDimensionVersion, detail.Dimension)
}

func TestOccupancyServiceUpdateKindSwitchClearsGroup(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(2)

	req := algoLecture(hourOf(8), hourOf(10))
	req.Kind = "TD"
	req.GroupNumber = groupPtr(2)
	occ, err := f.service.Create(context.Background(), req)
	require.NoError(t, err)

	kind := "CM"
	updated, err := f.service.Update(context.Background(), occ.ID, UpdateOccupancyRequest{Kind: &kind})
	require.NoError(t, err)
	assert.Equal(t, models.OccupancyKindLecture, updated.Kind)
	assert.Nil(t, updated.GroupNumber, "switching to a whole-class kind drops the group target")
}

func TestOccupancyServiceUpdateNotFound(t *testing.T) {
	f := newOccupancyFixture(t)

	name := "Rescheduled"
	_, err := f.service.Update(context.Background(), "occ-ghost", UpdateOccupancyRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOccupancyServiceDelete(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(3)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), occ.ID)
	require.NoError(t, err)
	assert.Empty(t, f.store.items)

	require.Len(t, f.feed.entries, 2)
	entry := f.feed.entries[1]
	assert.Equal(t, models.ChangeOperationDeleted, entry.Operation)
	assert.Equal(t, occ.ID, entry.OccupancyID)
	assert.Nil(t, entry.Details.Start)
	require.NotNil(t, entry.Details.PreviousStart)
	assert.True(t, entry.Details.PreviousStart.Equal(hourOf(8)))

	_, err = f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err, "a deleted booking frees its slot")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceDeleteNotFound(t *testing.T) {
	f := newOccupancyFixture(t)

	err := f.service.Delete(context.Background(), "occ-ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOccupancyServiceDeleteRowVanished(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(1)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	f.store.vanishOnDelete = true
	f.expectRollback()
	err = f.service.Delete(context.Background(), occ.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestOccupancyServiceWarmUp(t *testing.T) {
	f := newOccupancyFixture(t)
	f.store.items["occ-seed"] = &models.Occupancy{
		ID:          "occ-seed",
		Name:        "Algorithmique",
		Kind:        models.OccupancyKindLecture,
		SubjectID:   "subject-algo",
		ClassID:     "class-b1",
		ClassroomID: "room-a101",
		TeacherIDs:  []string{"teacher-durand"},
		StartAt:     hourOf(8),
		EndAt:       hourOf(10),
		Version:     5,
	}
	f.feed.next = 5

	require.NoError(t, f.service.WarmUp(context.Background()))

	_, err := f.service.Create(context.Background(), algoLecture(hourOf(9), hourOf(11)))
	require.Error(t, err)
	detail, ok := appErrors.FromError(err).Details.(*models.ConflictDetail)
	require.True(t, ok)
	assert.Equal(t, "occ-seed", detail.BlockingOccupancyID, "persisted bookings guard their slots after a restart")
}

func TestOccupancyServiceVersionsAreMonotonic(t *testing.T) {
	f := newOccupancyFixture(t)
	f.expectCommits(3)

	occ, err := f.service.Create(context.Background(), algoLecture(hourOf(8), hourOf(10)))
	require.NoError(t, err)

	name := "Algo avancé"
	_, err = f.service.Update(context.Background(), occ.ID, UpdateOccupancyRequest{Name: &name})
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), occ.ID)
	require.NoError(t, err)

	require.Len(t, f.feed.entries, 3)
	for i, entry := range f.feed.entries {
		assert.Equal(t, int64(i+1), entry.Version)
	}
	require.Len(t, f.notifier.entries, 3)
	assert.Equal(t, f.feed.entries[2].Version, f.notifier.entries[2].Version)
}
