package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

// CalendarTokenRequest mints a feed token for one resource.
type CalendarTokenRequest struct {
	Scope       string `json:"scope" validate:"required"`
	ResourceID  string `json:"resource_id" validate:"required"`
	GroupNumber *int   `json:"group_number"`
}

// CalendarServiceConfig carries the signing material for feed tokens.
type CalendarServiceConfig struct {
	APIPrefix   string
	TokenSecret string
	TokenTTL    time.Duration
}

// CalendarService mints and resolves the long-lived tokens external
// calendar generators use to pull one resource's occupancies without a
// session.
type CalendarService struct {
	queries   *ScheduleQueryService
	directory directoryLookup
	validator *validator.Validate
	logger    *zap.Logger
	cfg       CalendarServiceConfig
}

// NewCalendarService constructs the calendar token service.
func NewCalendarService(queries *ScheduleQueryService, directory directoryLookup, validate *validator.Validate, logger *zap.Logger, cfg CalendarServiceConfig) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 90 * 24 * time.Hour
	}
	return &CalendarService{
		queries:   queries,
		directory: directory,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// MintToken validates the target resource and issues a signed token.
func (s *CalendarService) MintToken(ctx context.Context, req CalendarTokenRequest) (*models.CalendarToken, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar token payload")
	}
	scope := models.CalendarScope(strings.ToLower(strings.TrimSpace(req.Scope)))
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported calendar scope")
	}
	if req.GroupNumber != nil && scope != models.CalendarScopeSubject {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group_number only applies to subject feeds")
	}
	if err := s.resolveScope(ctx, scope, req.ResourceID, req.GroupNumber); err != nil {
		return nil, err
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.cfg.TokenTTL)
	claims := &models.CalendarClaims{
		Scope:       scope,
		ResourceID:  req.ResourceID,
		GroupNumber: req.GroupNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.ResourceID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign calendar token")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &models.CalendarToken{
		Token:     signed,
		ExpiresAt: expiresAt,
		FeedURL:   fmt.Sprintf("%s/calendar/occupancies?token=%s", prefix, signed),
	}, nil
}

// Occupancies resolves a feed token and returns the occupancies of its
// resource within the optional range.
func (s *CalendarService) Occupancies(ctx context.Context, token string, from, to *time.Time) ([]models.Occupancy, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}
	var occupancies []models.Occupancy
	switch claims.Scope {
	case models.CalendarScopeTeacher:
		occupancies, _, err = s.queries.ForTeacher(ctx, claims.ResourceID, from, to)
	case models.CalendarScopeClassroom:
		occupancies, _, err = s.queries.ForClassroom(ctx, claims.ResourceID, from, to)
	case models.CalendarScopeClass:
		occupancies, _, err = s.queries.ForClass(ctx, claims.ResourceID, from, to)
	case models.CalendarScopeStudent:
		occupancies, _, err = s.queries.ForStudent(ctx, claims.ResourceID, from, to)
	case models.CalendarScopeSubject:
		if claims.GroupNumber != nil {
			occupancies, _, err = s.queries.ForGroup(ctx, claims.ResourceID, *claims.GroupNumber, from, to)
		} else {
			occupancies, _, err = s.queries.ForSubject(ctx, claims.ResourceID, from, to)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unsupported calendar scope")
	}
	return occupancies, err
}

func (s *CalendarService) parseToken(tokenString string) (*models.CalendarClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.CalendarClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid calendar token")
	}
	claims, ok := token.Claims.(*models.CalendarClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid calendar token claims")
	}
	return claims, nil
}

func (s *CalendarService) resolveScope(ctx context.Context, scope models.CalendarScope, resourceID string, group *int) error {
	var err error
	switch scope {
	case models.CalendarScopeTeacher:
		_, err = s.directory.TeacherByID(ctx, resourceID)
	case models.CalendarScopeClassroom:
		_, err = s.directory.ClassroomByID(ctx, resourceID)
	case models.CalendarScopeClass:
		_, err = s.directory.ClassByID(ctx, resourceID)
	case models.CalendarScopeStudent:
		_, err = s.directory.StudentByID(ctx, resourceID)
	case models.CalendarScopeSubject:
		var subject *models.Subject
		subject, err = s.directory.SubjectByID(ctx, resourceID)
		if err == nil && group != nil && !subject.HasGroup(*group) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %s has no group %d", resourceID, *group))
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", scope))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve calendar resource")
	}
	return nil
}
