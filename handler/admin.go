// ABOUTME: This file implements the administrative HTTP surface (§6)
// ABOUTME: Thin Echo handlers over the orchestrator, scheduler, store, and index
package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"romarchive/domain"
)

// Orchestrator is the subset of the pipeline orchestrator the admin
// surface depends on.
type Orchestrator interface {
	Start(mode domain.Mode) error
	Stop() error
	State() *domain.PipelineState
}

// Scheduler is the subset of the scheduler the admin surface depends on.
type Scheduler interface {
	Current() domain.ScheduleConfig
	ApplyConfig(cfg domain.ScheduleConfig) error
}

// StoreStatus is the subset of the catalog store the status endpoint
// depends on.
type StoreStatus interface {
	Ping(ctx context.Context) error
	CountGames(ctx context.Context) (int64, error)
}

// IndexStatus is the subset of the search index the status endpoint
// depends on.
type IndexStatus interface {
	Health() error
	DocumentCount() (int64, error)
}

// Admin wires the admin HTTP surface of §6 to the pipeline components.
type Admin struct {
	orchestrator Orchestrator
	scheduler    Scheduler
	store        StoreStatus
	index        IndexStatus
}

// NewAdmin constructs the admin handler group.
func NewAdmin(orchestrator Orchestrator, scheduler Scheduler, store StoreStatus, index IndexStatus) *Admin {
	return &Admin{orchestrator: orchestrator, scheduler: scheduler, store: store, index: index}
}

// Register mounts every route of §6's administrative surface under the
// given group. The caller is responsible for protecting the group with
// the shared-key middleware.
func (a *Admin) Register(g *echo.Group) {
	g.GET("/pipeline", a.GetPipeline)
	g.POST("/pipeline/start", a.StartPipeline)
	g.POST("/pipeline/stop", a.StopPipeline)
	g.GET("/schedule", a.GetSchedule)
	g.POST("/schedule", a.PostSchedule)
	g.GET("/status", a.GetStatus)
}

// GetPipeline returns the observable pipeline state of §3.
func (a *Admin) GetPipeline(c echo.Context) error {
	return c.JSON(http.StatusOK, a.orchestrator.State().Snapshot())
}

type startPipelineRequest struct {
	Mode domain.Mode `json:"mode"`
}

// StartPipeline starts a new run; 409 if one is already in progress.
func (a *Admin) StartPipeline(c echo.Context) error {
	var req startPipelineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Mode == "" {
		req.Mode = domain.ModeIncremental
	}
	if req.Mode != domain.ModeIncremental && req.Mode != domain.ModeClean {
		return domain.ErrInvalidMode
	}

	if err := a.orchestrator.Start(req.Mode); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, a.orchestrator.State().Snapshot())
}

// StopPipeline requests cancellation of the in-progress run; 409 if none
// is running.
func (a *Admin) StopPipeline(c echo.Context) error {
	if err := a.orchestrator.Stop(); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, a.orchestrator.State().Snapshot())
}

// GetSchedule returns the active scheduler configuration.
func (a *Admin) GetSchedule(c echo.Context) error {
	return c.JSON(http.StatusOK, a.scheduler.Current())
}

// PostSchedule validates and applies a new scheduler configuration
// (§4.9). Invalid expressions are rejected synchronously (§7) without
// mutating the prior schedule.
func (a *Admin) PostSchedule(c echo.Context) error {
	var cfg domain.ScheduleConfig
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := a.scheduler.ApplyConfig(cfg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.scheduler.Current())
}

type storeStatusResponse struct {
	Connected bool   `json:"connected"`
	RowCount  int64  `json:"row_count"`
	Error     string `json:"error,omitempty"`
}

type indexStatusResponse struct {
	Connected     bool   `json:"connected"`
	DocumentCount int64  `json:"document_count"`
	Error         string `json:"error,omitempty"`
}

type statusResponse struct {
	Store storeStatusResponse `json:"store"`
	Index indexStatusResponse `json:"index"`
}

// GetStatus reports connectivity and row/document counts for the two
// downstream stores (§6). A failure of either collaborator is reflected
// in its own sub-object, not a failed request.
func (a *Admin) GetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	resp := statusResponse{}

	if err := a.store.Ping(ctx); err != nil {
		resp.Store.Error = err.Error()
	} else {
		resp.Store.Connected = true
		if count, err := a.store.CountGames(ctx); err != nil {
			resp.Store.Error = err.Error()
		} else {
			resp.Store.RowCount = count
		}
	}

	if err := a.index.Health(); err != nil {
		resp.Index.Error = err.Error()
	} else {
		resp.Index.Connected = true
		if count, err := a.index.DocumentCount(); err != nil {
			resp.Index.Error = err.Error()
		} else {
			resp.Index.DocumentCount = count
		}
	}

	return c.JSON(http.StatusOK, resp)
}
