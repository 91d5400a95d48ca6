package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romarchive/domain"
)

type stubOrchestrator struct {
	startErr  error
	stopErr   error
	state     *domain.PipelineState
	startMode domain.Mode
}

func (s *stubOrchestrator) Start(mode domain.Mode) error {
	s.startMode = mode
	return s.startErr
}
func (s *stubOrchestrator) Stop() error                  { return s.stopErr }
func (s *stubOrchestrator) State() *domain.PipelineState { return s.state }

type stubScheduler struct {
	current  domain.ScheduleConfig
	applyErr error
}

func (s *stubScheduler) Current() domain.ScheduleConfig { return s.current }
func (s *stubScheduler) ApplyConfig(cfg domain.ScheduleConfig) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.current = cfg
	return nil
}

type stubStore struct {
	pingErr error
	count   int64
}

func (s *stubStore) Ping(ctx context.Context) error               { return s.pingErr }
func (s *stubStore) CountGames(ctx context.Context) (int64, error) { return s.count, nil }

type stubIndex struct {
	healthErr error
	count     int64
}

func (s *stubIndex) Health() error                   { return s.healthErr }
func (s *stubIndex) DocumentCount() (int64, error) { return s.count, nil }

func newTestAdmin() (*Admin, *stubOrchestrator, *stubScheduler) {
	orch := &stubOrchestrator{state: domain.NewPipelineState()}
	sched := &stubScheduler{current: domain.ScheduleConfig{Enabled: true, Mode: domain.ModeIncremental, Expression: "0 3 * * *"}}
	store := &stubStore{count: 42}
	index := &stubIndex{count: 40}
	return NewAdmin(orch, sched, store, index), orch, sched
}

func TestGetPipeline_ReturnsSnapshot(t *testing.T) {
	e := echo.New()
	admin, _, _ := newTestAdmin()

	req := httptest.NewRequest(http.MethodGet, "/admin/pipeline", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, admin.GetPipeline(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, domain.StatusIdle, snap.Status)
}

func TestStartPipeline_DefaultsToIncremental(t *testing.T) {
	e := echo.New()
	admin, orch, _ := newTestAdmin()

	req := httptest.NewRequest(http.MethodPost, "/admin/pipeline/start", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, admin.StartPipeline(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.ModeIncremental, orch.startMode)
}

func TestStartPipeline_RejectsUnknownMode(t *testing.T) {
	e := echo.New()
	admin, _, _ := newTestAdmin()

	req := httptest.NewRequest(http.MethodPost, "/admin/pipeline/start", strings.NewReader(`{"mode":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := admin.StartPipeline(c)
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestStartPipeline_PropagatesAlreadyRunning(t *testing.T) {
	e := echo.New()
	admin, orch, _ := newTestAdmin()
	orch.startErr = domain.ErrAlreadyRunning

	req := httptest.NewRequest(http.MethodPost, "/admin/pipeline/start", strings.NewReader(`{"mode":"clean"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := admin.StartPipeline(c)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
}

func TestStopPipeline_PropagatesNotRunning(t *testing.T) {
	e := echo.New()
	admin, orch, _ := newTestAdmin()
	orch.stopErr = domain.ErrNotRunning

	req := httptest.NewRequest(http.MethodPost, "/admin/pipeline/stop", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := admin.StopPipeline(c)
	assert.ErrorIs(t, err, domain.ErrNotRunning)
}

func TestGetSchedule_ReturnsCurrentConfig(t *testing.T) {
	e := echo.New()
	admin, _, _ := newTestAdmin()

	req := httptest.NewRequest(http.MethodGet, "/admin/schedule", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, admin.GetSchedule(c))

	var cfg domain.ScheduleConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "0 3 * * *", cfg.Expression)
}

func TestPostSchedule_RejectsInvalidCronWithoutMutatingState(t *testing.T) {
	e := echo.New()
	admin, _, sched := newTestAdmin()
	sched.applyErr = domain.ErrInvalidCron

	req := httptest.NewRequest(http.MethodPost, "/admin/schedule", strings.NewReader(`{"enabled":true,"mode":"clean","expression":"bogus"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := admin.PostSchedule(c)
	assert.ErrorIs(t, err, domain.ErrInvalidCron)
	assert.Equal(t, "0 3 * * *", sched.current.Expression, "prior schedule must be untouched on validation failure")
}

func TestGetStatus_ReportsBothCollaborators(t *testing.T) {
	e := echo.New()
	orch := &stubOrchestrator{state: domain.NewPipelineState()}
	sched := &stubScheduler{}
	store := &stubStore{count: 100}
	index := &stubIndex{count: 99}
	admin := NewAdmin(orch, sched, store, index)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, admin.GetStatus(c))

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Store.Connected)
	assert.Equal(t, int64(100), resp.Store.RowCount)
	assert.True(t, resp.Index.Connected)
	assert.Equal(t, int64(99), resp.Index.DocumentCount)
}

func TestGetStatus_ReportsStoreFailureWithoutFailingRequest(t *testing.T) {
	e := echo.New()
	orch := &stubOrchestrator{state: domain.NewPipelineState()}
	sched := &stubScheduler{}
	store := &stubStore{pingErr: errors.New("connection refused")}
	index := &stubIndex{count: 1}
	admin := NewAdmin(orch, sched, store, index)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, admin.GetStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Store.Connected)
	assert.NotEmpty(t, resp.Store.Error)
}
