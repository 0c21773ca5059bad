package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campusctl/edt-api/pkg/errors"
)

// queryTime parses an optional RFC3339 query parameter.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be an RFC3339 timestamp", name))
	}
	utc := parsed.UTC()
	return &utc, nil
}

// queryTimeRange parses the from/to window shared by listing endpoints.
func queryTimeRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return nil, nil, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	return from, to, nil
}

// queryInt parses an optional integer query parameter, returning fallback when absent.
func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be an integer", name))
	}
	return value, nil
}

// pathGroupNumber parses the group number path segment. Groups are addressed
// resources, so a malformed segment reads as an unknown group.
func pathGroupNumber(c *gin.Context) (int, error) {
	raw := c.Param("number")
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("group %s not found", raw))
	}
	return number, nil
}
