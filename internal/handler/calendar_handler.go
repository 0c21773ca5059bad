package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusctl/edt-api/internal/service"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
	"github.com/campusctl/edt-api/pkg/response"
)

// CalendarHandler manages tokenized calendar feeds.
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// MintToken godoc
// @Summary Mint a long-lived calendar feed token
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.CalendarTokenRequest true "Feed scope"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendar-tokens [post]
func (h *CalendarHandler) MintToken(c *gin.Context) {
	var req service.CalendarTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	token, err := h.calendar.MintToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}

// Occupancies godoc
// @Summary Calendar feed resolved from a signed token
// @Tags Calendar
// @Produce json
// @Param token query string true "Feed token"
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /calendar/occupancies [get]
func (h *CalendarHandler) Occupancies(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	from, to, err := queryTimeRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupancies, err := h.calendar.Occupancies(c.Request.Context(), token, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupancies, nil)
}
