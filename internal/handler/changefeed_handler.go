package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusctl/edt-api/internal/middleware"
	"github.com/campusctl/edt-api/internal/service"
	appErrors "github.com/campusctl/edt-api/pkg/errors"
	"github.com/campusctl/edt-api/pkg/response"
)

// ChangeFeedHandler exposes the occupancy modification feed.
type ChangeFeedHandler struct {
	feed *service.ChangeFeedService
}

// NewChangeFeedHandler constructs the handler.
func NewChangeFeedHandler(feed *service.ChangeFeedService) *ChangeFeedHandler {
	return &ChangeFeedHandler{feed: feed}
}

// Modifications godoc
// @Summary Occupancy mutations committed since a cursor
// @Description Returns change entries in ascending version order. Resume by
// @Description passing the returned latest_version back as afterVersion.
// @Tags ChangeFeed
// @Produce json
// @Param since query string false "Cursor timestamp (RFC3339)"
// @Param afterVersion query int false "Cursor version, takes precedence over since"
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /profile/last-occupancies-modifications [get]
func (h *ChangeFeedHandler) Modifications(c *gin.Context) {
	since, err := queryTime(c, "since")
	if err != nil {
		response.Error(c, err)
		return
	}
	var afterVersion int64
	if raw := strings.TrimSpace(c.Query("afterVersion")); raw != "" {
		afterVersion, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || afterVersion < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "afterVersion must be a non-negative integer"))
			return
		}
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, latest, err := h.feed.Since(c.Request.Context(), service.FeedQuery{
		Since:        since,
		AfterVersion: afterVersion,
		Limit:        limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ExtractMeta(c)
	meta["latest_version"] = latest
	response.JSON(c, http.StatusOK, entries, nil, meta)
}
