package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinharbor/deposit-monitor/internal/services"
)

type stubMonitor struct {
	watched   []string
	unwatched []string
	checked   []string
	watchErr  error
	checkErr  error
	status    services.MonitorStatus
}

func (s *stubMonitor) Watch(ctx context.Context, depositId string) error {
	s.watched = append(s.watched, depositId)
	return s.watchErr
}

func (s *stubMonitor) Unwatch(depositId string) {
	s.unwatched = append(s.unwatched, depositId)
}

func (s *stubMonitor) CheckOnce(ctx context.Context, depositId string) error {
	s.checked = append(s.checked, depositId)
	return s.checkErr
}

func (s *stubMonitor) Status() services.MonitorStatus {
	return s.status
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStartMonitoring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &stubMonitor{}
	router := NewRouter(mon)

	rec := perform(router, http.MethodPost, "/admin/monitoring/start", `{"deposit_id":"d1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d1"}, mon.watched)
}

func TestStartMonitoringRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &stubMonitor{}
	router := NewRouter(mon)

	rec := perform(router, http.MethodPost, "/admin/monitoring/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, mon.watched)
}

func TestStartMonitoringHidesInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &stubMonitor{watchErr: errors.New("explorer host unreachable: 10.0.0.5")}
	router := NewRouter(mon)

	rec := perform(router, http.MethodPost, "/admin/monitoring/start", `{"deposit_id":"d1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5", "provider detail must not leak")
	assert.JSONEq(t, `{"success":false}`, rec.Body.String())
}

func TestStopMonitoring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &stubMonitor{}
	router := NewRouter(mon)

	rec := perform(router, http.MethodPost, "/admin/monitoring/stop", `{"deposit_id":"d2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d2"}, mon.unwatched)
}

func TestMonitoringStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &stubMonitor{status: services.MonitorStatus{Running: true, ActiveIds: []string{"a", "b"}}}
	router := NewRouter(mon)

	rec := perform(router, http.MethodGet, "/admin/monitoring/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_running":true,"active_count":2,"active_ids":["a","b"]}`, rec.Body.String())
}

func TestCheckDeposit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mon := &stubMonitor{}
	router := NewRouter(mon)

	rec := perform(router, http.MethodPost, "/admin/monitoring/check", `{"deposit_id":"d3"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"d3"}, mon.checked)
}
