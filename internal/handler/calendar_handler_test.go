package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusctl/edt-api/internal/models"
	"github.com/campusctl/edt-api/internal/service"
)

func newCalendarHandler(stub *scheduleStub) *CalendarHandler {
	queries := newViewsService(stub)
	calendar := service.NewCalendarService(queries, directoryStub{}, nil, zap.NewNop(), service.CalendarServiceConfig{
		APIPrefix:   "/api/v1",
		TokenSecret: "feed-secret",
		TokenTTL:    time.Hour,
	})
	return NewCalendarHandler(calendar)
}

func TestCalendarHandlerMintAndServe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &scheduleStub{
		items: []models.Occupancy{lectureAt("occ-1", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))},
		total: 1,
	}
	handler := newCalendarHandler(stub)

	payload, _ := json.Marshal(service.CalendarTokenRequest{Scope: "teacher", ResourceID: "teacher-durand"})
	c, w := newGinContext(http.MethodPost, "/calendar-tokens", payload)
	handler.MintToken(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var minted struct {
		Data models.CalendarToken `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &minted))
	require.NotEmpty(t, minted.Data.Token)
	require.Contains(t, minted.Data.FeedURL, "/calendar/occupancies?token=")

	c, w = newGinContext(http.MethodGet, "/calendar/occupancies?token="+url.QueryEscape(minted.Data.Token), nil)
	handler.Occupancies(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope occupancyListEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
}

func TestCalendarHandlerMintUnknownResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCalendarHandler(&scheduleStub{})

	payload, _ := json.Marshal(service.CalendarTokenRequest{Scope: "teacher", ResourceID: "teacher-ghost"})
	c, w := newGinContext(http.MethodPost, "/calendar-tokens", payload)
	handler.MintToken(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalendarHandlerMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCalendarHandler(&scheduleStub{})

	c, w := newGinContext(http.MethodGet, "/calendar/occupancies", nil)
	handler.Occupancies(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarHandlerForgedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCalendarHandler(&scheduleStub{})

	c, w := newGinContext(http.MethodGet, "/calendar/occupancies?token=not-a-token", nil)
	handler.Occupancies(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
