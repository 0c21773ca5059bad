package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

func newCalendarFixture(lister *mockOccupancyLister, cfg CalendarServiceConfig) *CalendarService {
	directory := newMockDirectory()
	queries := NewScheduleQueryService(lister, directory, nil, zap.NewNop())
	return NewCalendarService(queries, directory, validator.New(), zap.NewNop(), cfg)
}

func TestCalendarServiceMintAndResolve(t *testing.T) {
	lister := &mockOccupancyLister{
		items: []models.Occupancy{occupancyAt("occ-1", hourOf(8), hourOf(10), models.OccupancyKindLecture)},
	}
	service := newCalendarFixture(lister, CalendarServiceConfig{TokenSecret: "feed-secret", TokenTTL: time.Hour})

	token, err := service.MintToken(context.Background(), CalendarTokenRequest{
		Scope:      "teacher",
		ResourceID: "teacher-durand",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
	assert.Contains(t, token.FeedURL, "/calendar/occupancies?token=")
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	occupancies, err := service.Occupancies(context.Background(), token.Token, nil, nil)
	require.NoError(t, err)
	require.Len(t, occupancies, 1)
	assert.Equal(t, "teacher-durand", lister.lastFilter.TeacherID, "the token scope picks the filter")
}

func TestCalendarServiceMintUnknownResource(t *testing.T) {
	service := newCalendarFixture(&mockOccupancyLister{}, CalendarServiceConfig{TokenSecret: "feed-secret"})

	_, err := service.MintToken(context.Background(), CalendarTokenRequest{
		Scope:      "teacher",
		ResourceID: "teacher-ghost",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceMintValidation(t *testing.T) {
	service := newCalendarFixture(&mockOccupancyLister{}, CalendarServiceConfig{TokenSecret: "feed-secret"})
	ctx := context.Background()

	_, err := service.MintToken(ctx, CalendarTokenRequest{Scope: "teacher"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.MintToken(ctx, CalendarTokenRequest{Scope: "planet", ResourceID: "mars"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = service.MintToken(ctx, CalendarTokenRequest{
		Scope:       "teacher",
		ResourceID:  "teacher-durand",
		GroupNumber: groupPtr(1),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code,
		"group targeting is a subject-feed concept")
}

func TestCalendarServiceMintSubjectGroup(t *testing.T) {
	lister := &mockOccupancyLister{
		items: []models.Occupancy{occupancyAt("occ-1", hourOf(8), hourOf(10), models.OccupancyKindTutorial)},
	}
	service := newCalendarFixture(lister, CalendarServiceConfig{TokenSecret: "feed-secret"})

	token, err := service.MintToken(context.Background(), CalendarTokenRequest{
		Scope:       "subject",
		ResourceID:  "subject-algo",
		GroupNumber: groupPtr(2),
	})
	require.NoError(t, err)

	_, err = service.Occupancies(context.Background(), token.Token, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, lister.lastFilter.GroupNumber)
	assert.Equal(t, 2, *lister.lastFilter.GroupNumber)

	_, err = service.MintToken(context.Background(), CalendarTokenRequest{
		Scope:       "subject",
		ResourceID:  "subject-algo",
		GroupNumber: groupPtr(5),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceRejectsForgedToken(t *testing.T) {
	minting := newCalendarFixture(&mockOccupancyLister{}, CalendarServiceConfig{TokenSecret: "feed-secret"})
	serving := newCalendarFixture(&mockOccupancyLister{}, CalendarServiceConfig{TokenSecret: "other-secret"})

	token, err := minting.MintToken(context.Background(), CalendarTokenRequest{
		Scope:      "teacher",
		ResourceID: "teacher-durand",
	})
	require.NoError(t, err)

	_, err = serving.Occupancies(context.Background(), token.Token, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = serving.Occupancies(context.Background(), "not-a-token", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceRejectsExpiredToken(t *testing.T) {
	service := newCalendarFixture(&mockOccupancyLister{}, CalendarServiceConfig{TokenSecret: "feed-secret"})

	claims := &models.CalendarClaims{
		Scope:      models.CalendarScopeTeacher,
		ResourceID: "teacher-durand",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "teacher-durand",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("feed-secret"))
	require.NoError(t, err)

	_, err = service.Occupancies(context.Background(), expired, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceStudentScope(t *testing.T) {
	lister := &mockOccupancyLister{
		studentItems: []models.Occupancy{occupancyAt("occ-1", hourOf(8), hourOf(10), models.OccupancyKindLecture)},
	}
	service := newCalendarFixture(lister, CalendarServiceConfig{TokenSecret: "feed-secret"})

	token, err := service.MintToken(context.Background(), CalendarTokenRequest{
		Scope:      "student",
		ResourceID: "student-1",
	})
	require.NoError(t, err)

	occupancies, err := service.Occupancies(context.Background(), token.Token, nil, nil)
	require.NoError(t, err)
	assert.Len(t, occupancies, 1)
}
