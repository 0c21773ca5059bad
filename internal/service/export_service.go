package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	"github.com/campusctl/edt-api/pkg/export"
	"github.com/campusctl/edt-api/pkg/storage"
)

type timetableSource interface {
	List(ctx context.Context, filter models.OccupancyFilter) ([]models.Occupancy, int, error)
}

type exportDirectory interface {
	SubjectByID(ctx context.Context, id string) (*models.Subject, error)
	TeacherByID(ctx context.Context, id string) (*models.Teacher, error)
	ClassroomByID(ctx context.Context, id string) (*models.Classroom, error)
	ClassByID(ctx context.Context, id string) (*models.Class, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(t export.Timetable) ([]byte, error)
}

type pdfRenderer interface {
	Render(t export.Timetable) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds timetable datasets for a teacher, classroom, or
// class and persists the rendered files.
type ExportService struct {
	occupancies timetableSource
	directory   exportDirectory
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(occupancies timetableSource, directory exportDirectory, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		occupancies: occupancies,
		directory:   directory,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the timetable for the job scope and stores the
// rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	timetable, err := s.buildTimetable(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(timetable)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(timetable)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/exports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	resourcePart := sanitizeFilename(job.Params.ResourceID)
	return fmt.Sprintf("timetable_%s_%s_%s.%s", job.Params.Scope, resourcePart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildTimetable(ctx context.Context, params models.ExportParams) (export.Timetable, error) {
	filter := models.OccupancyFilter{From: params.From, To: params.To}
	var title string
	switch params.Scope {
	case models.ExportScopeTeacher:
		teacher, err := s.directory.TeacherByID(ctx, params.ResourceID)
		if err != nil {
			return export.Timetable{}, fmt.Errorf("resolve teacher %s: %w", params.ResourceID, err)
		}
		filter.TeacherID = teacher.ID
		title = fmt.Sprintf("Timetable of %s", teacher.FullName)
	case models.ExportScopeClassroom:
		classroom, err := s.directory.ClassroomByID(ctx, params.ResourceID)
		if err != nil {
			return export.Timetable{}, fmt.Errorf("resolve classroom %s: %w", params.ResourceID, err)
		}
		filter.ClassroomID = classroom.ID
		title = fmt.Sprintf("Timetable of room %s", classroom.Name)
	case models.ExportScopeClass:
		class, err := s.directory.ClassByID(ctx, params.ResourceID)
		if err != nil {
			return export.Timetable{}, fmt.Errorf("resolve class %s: %w", params.ResourceID, err)
		}
		filter.ClassID = class.ID
		title = fmt.Sprintf("Timetable of class %s", class.Name)
	default:
		return export.Timetable{}, fmt.Errorf("unsupported export scope %s", params.Scope)
	}

	occupancies, _, err := s.occupancies.List(ctx, filter)
	if err != nil {
		return export.Timetable{}, fmt.Errorf("list occupancies: %w", err)
	}

	subjectNames := make(map[string]string)
	teacherNames := make(map[string]string)
	classroomNames := make(map[string]string)

	rows := make([]export.Row, 0, len(occupancies))
	for _, occ := range occupancies {
		rows = append(rows, export.Row{
			Date:      occ.StartAt.UTC().Format(dayKeyFormat),
			Start:     occ.StartAt.UTC().Format("15:04"),
			End:       occ.EndAt.UTC().Format("15:04"),
			Subject:   s.subjectName(ctx, subjectNames, occ.SubjectID),
			Kind:      string(occ.Kind),
			Teachers:  s.teacherList(ctx, teacherNames, occ.TeacherIDs),
			Classroom: s.classroomName(ctx, classroomNames, occ.ClassroomID),
			Group:     groupLabel(occ.GroupNumber),
		})
	}

	return export.Timetable{
		Title:  title,
		Period: periodLabel(params.From, params.To),
		Rows:   rows,
	}, nil
}

func (s *ExportService) subjectName(ctx context.Context, memo map[string]string, id string) string {
	if name, ok := memo[id]; ok {
		return name
	}
	name := id
	if subject, err := s.directory.SubjectByID(ctx, id); err == nil {
		name = subject.Name
	}
	memo[id] = name
	return name
}

func (s *ExportService) teacherList(ctx context.Context, memo map[string]string, ids []string) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := memo[id]
		if !ok {
			name = id
			if teacher, err := s.directory.TeacherByID(ctx, id); err == nil {
				name = teacher.FullName
			}
			memo[id] = name
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (s *ExportService) classroomName(ctx context.Context, memo map[string]string, id string) string {
	if name, ok := memo[id]; ok {
		return name
	}
	name := id
	if classroom, err := s.directory.ClassroomByID(ctx, id); err == nil {
		name = classroom.Name
	}
	memo[id] = name
	return name
}

func groupLabel(group *int) string {
	if group == nil {
		return ""
	}
	return fmt.Sprintf("G%d", *group)
}

func periodLabel(from, to *time.Time) string {
	render := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format(dayKeyFormat)
	}
	switch {
	case from == nil && to == nil:
		return "full period"
	case from == nil:
		return "until " + render(to)
	case to == nil:
		return "from " + render(from)
	default:
		return render(from) + " to " + render(to)
	}
}
