package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	"github.com/campusctl/edt-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T, lister *mockOccupancyLister) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(lister, newMockDirectory(), store, signer, cfg, zap.NewNop(), nil, nil)
	return svc, store
}

func exportLister() *mockOccupancyLister {
	occ := occupancyAt("occ-1", hourOf(8), hourOf(10), models.OccupancyKindTutorial)
	occ.GroupNumber = groupPtr(1)
	return &mockOccupancyLister{items: []models.Occupancy{occ}}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	lister := exportLister()
	svc, store := newExportServiceForTest(t, lister)
	job := &models.ExportJob{
		ID: "job-1",
		Params: models.ExportParams{
			Scope:      models.ExportScopeTeacher,
			ResourceID: "teacher-durand",
			Format:     models.ExportFormatCSV,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	assert.Contains(t, result.URL, "/exports/download/")
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	assert.Equal(t, "teacher-durand", lister.lastFilter.TeacherID)

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "date,start,end,subject,kind,teachers,classroom,group"))
	assert.Contains(t, content, "Algorithmique")
	assert.Contains(t, content, "Claire Durand")
	assert.Contains(t, content, "A101")
	assert.Contains(t, content, "G1")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t, exportLister())
	job := &models.ExportJob{
		ID: "job-2",
		Params: models.ExportParams{
			Scope:      models.ExportScopeClassroom,
			ResourceID: "room-a101",
			Format:     models.ExportFormatPDF,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"), "PDF exports start with the PDF magic header")
}

func TestExportServiceGenerateUnknownResource(t *testing.T) {
	svc, _ := newExportServiceForTest(t, exportLister())
	job := &models.ExportJob{
		ID: "job-3",
		Params: models.ExportParams{
			Scope:      models.ExportScopeClass,
			ResourceID: "class-ghost",
			Format:     models.ExportFormatCSV,
		},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportServiceTokenRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t, exportLister())
	job := &models.ExportJob{
		ID: "job-4",
		Params: models.ExportParams{
			Scope:      models.ExportScopeTeacher,
			ResourceID: "teacher-durand",
			Format:     models.ExportFormatCSV,
		},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-4", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportServiceCleanup(t *testing.T) {
	svc, store := newExportServiceForTest(t, exportLister())
	job := &models.ExportJob{
		ID: "job-5",
		Params: models.ExportParams{
			Scope:      models.ExportScopeTeacher,
			ResourceID: "teacher-durand",
			Format:     models.ExportFormatCSV,
		},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(result.RelativePath), stale, stale))

	removed, err := svc.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Contains(t, removed, result.RelativePath)
	_, err = os.Stat(store.Path(result.RelativePath))
	assert.True(t, os.IsNotExist(err))
}
