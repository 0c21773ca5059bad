package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusctl/edt-api/internal/models"
	"github.com/campusctl/edt-api/internal/service"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
	"github.com/campusctl/edt-api/pkg/response"
)

// OccupancyHandler manages occupancy booking endpoints.
type OccupancyHandler struct {
	occupancies *service.OccupancyService
	queries     *service.ScheduleQueryService
}

// NewOccupancyHandler constructs the handler.
func NewOccupancyHandler(occupancies *service.OccupancyService, queries *service.ScheduleQueryService) *OccupancyHandler {
	return &OccupancyHandler{occupancies: occupancies, queries: queries}
}

// CreateForSubject godoc
// @Summary Book a whole-class occupancy for a subject
// @Tags Occupancies
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body service.CreateOccupancyRequest true "Occupancy payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /subjects/{id}/occupancies [post]
func (h *OccupancyHandler) CreateForSubject(c *gin.Context) {
	var req service.CreateOccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.SubjectID = c.Param("id")
	req.GroupNumber = nil
	occupancy, err := h.occupancies.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, occupancy)
}

// CreateForGroup godoc
// @Summary Book an occupancy for one group of a subject
// @Tags Occupancies
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param number path int true "Group number"
// @Param payload body service.CreateOccupancyRequest true "Occupancy payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /subjects/{id}/groups/{number}/occupancies [post]
func (h *OccupancyHandler) CreateForGroup(c *gin.Context) {
	var req service.CreateOccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	number, err := pathGroupNumber(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.SubjectID = c.Param("id")
	req.GroupNumber = &number
	occupancy, err := h.occupancies.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, occupancy)
}

// Get godoc
// @Summary Get one occupancy
// @Tags Occupancies
// @Produce json
// @Param id path string true "Occupancy ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /occupancies/{id} [get]
func (h *OccupancyHandler) Get(c *gin.Context) {
	occupancy, err := h.occupancies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancy, nil)
}

// Update godoc
// @Summary Update an occupancy
// @Tags Occupancies
// @Accept json
// @Produce json
// @Param id path string true "Occupancy ID"
// @Param payload body service.UpdateOccupancyRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /occupancies/{id} [put]
func (h *OccupancyHandler) Update(c *gin.Context) {
	var req service.UpdateOccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	occupancy, err := h.occupancies.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancy, nil)
}

// Delete godoc
// @Summary Delete an occupancy
// @Tags Occupancies
// @Produce json
// @Param id path string true "Occupancy ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /occupancies/{id} [delete]
func (h *OccupancyHandler) Delete(c *gin.Context) {
	if err := h.occupancies.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List occupancies
// @Tags Occupancies
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param classroomId query string false "Filter by classroom"
// @Param classId query string false "Filter by class"
// @Param subjectId query string false "Filter by subject"
// @Param group query int false "Filter by group number"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /occupancies [get]
func (h *OccupancyHandler) List(c *gin.Context) {
	filter, err := occupancyFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := queryInt(c, "pageSize", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, pagination, err := h.queries.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancies, pagination)
}

// Daily godoc
// @Summary List occupancies grouped by day
// @Tags Occupancies
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param classroomId query string false "Filter by classroom"
// @Param classId query string false "Filter by class"
// @Param subjectId query string false "Filter by subject"
// @Param group query int false "Filter by group number"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Param perDay query int false "Max entries per day"
// @Success 200 {object} response.Envelope
// @Router /occupancies/daily [get]
func (h *OccupancyHandler) Daily(c *gin.Context) {
	filter, err := occupancyFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	perDay, err := queryInt(c, "perDay", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	days, err := h.queries.Daily(c.Request.Context(), filter, perDay)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

func occupancyFilter(c *gin.Context) (models.OccupancyFilter, error) {
	filter := models.OccupancyFilter{
		TeacherID:   strings.TrimSpace(c.Query("teacherId")),
		ClassroomID: strings.TrimSpace(c.Query("classroomId")),
		ClassID:     strings.TrimSpace(c.Query("classId")),
		SubjectID:   strings.TrimSpace(c.Query("subjectId")),
	}
	if raw := strings.TrimSpace(c.Query("group")); raw != "" {
		group, err := queryInt(c, "group", 0)
		if err != nil {
			return filter, err
		}
		filter.GroupNumber = &group
	}
	from, to, err := queryTimeRange(c)
	if err != nil {
		return filter, err
	}
	filter.From = from
	filter.To = to
	return filter, nil
}
