package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusctl/edt-api/internal/middleware"
	"github.com/campusctl/edt-api/internal/service"
	"github.com/campusctl/edt-api/pkg/response"
)

// ScheduleHandler exposes per-resource timetable views.
type ScheduleHandler struct {
	queries *service.ScheduleQueryService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(queries *service.ScheduleQueryService) *ScheduleHandler {
	return &ScheduleHandler{queries: queries}
}

// ForTeacher godoc
// @Summary Timetable of one teacher
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/occupancies [get]
func (h *ScheduleHandler) ForTeacher(c *gin.Context) {
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, cacheHit, err := h.queries.ForTeacher(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, occupancies, nil, middleware.ExtractMeta(c))
}

// ForClassroom godoc
// @Summary Timetable of one classroom
// @Tags Schedules
// @Produce json
// @Param id path string true "Classroom ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{id}/occupancies [get]
func (h *ScheduleHandler) ForClassroom(c *gin.Context) {
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, cacheHit, err := h.queries.ForClassroom(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, occupancies, nil, middleware.ExtractMeta(c))
}

// ForClass godoc
// @Summary Timetable of one class
// @Tags Schedules
// @Produce json
// @Param id path string true "Class ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/occupancies [get]
func (h *ScheduleHandler) ForClass(c *gin.Context) {
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, cacheHit, err := h.queries.ForClass(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, occupancies, nil, middleware.ExtractMeta(c))
}

// ForSubject godoc
// @Summary Timetable of one subject
// @Tags Schedules
// @Produce json
// @Param id path string true "Subject ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/occupancies [get]
func (h *ScheduleHandler) ForSubject(c *gin.Context) {
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, cacheHit, err := h.queries.ForSubject(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, occupancies, nil, middleware.ExtractMeta(c))
}

// ForGroup godoc
// @Summary Timetable of one group of a subject
// @Tags Schedules
// @Produce json
// @Param id path string true "Subject ID"
// @Param number path int true "Group number"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/groups/{number}/occupancies [get]
func (h *ScheduleHandler) ForGroup(c *gin.Context) {
	number, err := pathGroupNumber(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, cacheHit, err := h.queries.ForGroup(c.Request.Context(), c.Param("id"), number, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, occupancies, nil, middleware.ExtractMeta(c))
}

// ForStudent godoc
// @Summary Timetable of one student
// @Tags Schedules
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/occupancies [get]
func (h *ScheduleHandler) ForStudent(c *gin.Context) {
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, cacheHit, err := h.queries.ForStudent(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, occupancies, nil, middleware.ExtractMeta(c))
}

// TeacherService godoc
// @Summary Teaching service report of one teacher
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/service [get]
func (h *ScheduleHandler) TeacherService(c *gin.Context) {
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.queries.TeacherService(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
