package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"bridgesim/internal/app/episode"
	"bridgesim/internal/app/ports"
	"bridgesim/internal/app/replay"
	"bridgesim/internal/app/worldstate"
	"bridgesim/internal/domain/resource"
	"bridgesim/internal/domain/ship"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

type Handler struct {
	Episodes *episode.Manager
	ReplayUC replay.UseCase
	KPI      kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	ep := s.Group("/api/episode")
	ep.POST("/start", h.startEpisode)
	ep.POST("/round", h.runRound)
	ep.POST("/observation-mode", h.setObservationMode)
	ep.POST("/end", h.endEpisode)

	s.GET("/api/state", h.state)
	s.GET("/api/state/agent", h.agentState)
	s.GET("/api/resources", h.resources)
	s.GET("/api/analysis/conflicts", h.conflictAnalysis)
	s.GET("/api/replay", h.replay)
	s.GET("/ops/kpi", h.kpi)
}

type startEpisodeRequest struct {
	Agents                 []string       `json:"agents,omitempty"`
	Policy                 string         `json:"policy,omitempty"`
	ObservationMode        string         `json:"observation_mode,omitempty"`
	Scenario               string         `json:"scenario,omitempty"`
	ScenarioModifiers      map[string]int `json:"scenario_modifiers,omitempty"`
	DecisionTimeoutSeconds int            `json:"decision_timeout_seconds,omitempty"`
}

type startEpisodeResponse struct {
	EpisodeID       int64    `json:"episode_id"`
	Agents          []string `json:"agents"`
	Policy          string   `json:"policy"`
	ObservationMode string   `json:"observation_mode"`
}

func (h Handler) startEpisode(c context.Context, ctx *app.RequestContext) {
	var body startEpisodeRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	cfg := episode.Config{
		Agents:            body.Agents,
		Scenario:          body.Scenario,
		ScenarioModifiers: body.ScenarioModifiers,
	}
	if body.Policy != "" {
		policy, ok := resource.ParsePolicy(body.Policy)
		if !ok {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_policy", "unknown arbitration policy: "+body.Policy)
			return
		}
		cfg.Policy = policy
	}
	if body.ObservationMode != "" {
		mode, ok := ship.ParseObservationMode(body.ObservationMode)
		if !ok {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_observation_mode", "unknown observation mode: "+body.ObservationMode)
			return
		}
		cfg.ObservationMode = mode
	}
	if body.DecisionTimeoutSeconds > 0 {
		cfg.DecisionTimeout = time.Duration(body.DecisionTimeoutSeconds) * time.Second
	}

	ep, err := h.Episodes.Start(c, cfg)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, startEpisodeResponse{
		EpisodeID:       ep.ID,
		Agents:          ep.Agents(),
		Policy:          string(ep.Arbiter.Policy()),
		ObservationMode: string(ep.ObservationMode()),
	})
}

func (h Handler) runRound(c context.Context, ctx *app.RequestContext) {
	ep, err := h.Episodes.Current()
	if err != nil {
		writeError(ctx, err)
		return
	}
	result, err := ep.RunRound(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, result)
}

type observationModeRequest struct {
	Mode string `json:"mode"`
}

func (h Handler) setObservationMode(c context.Context, ctx *app.RequestContext) {
	ep, err := h.Episodes.Current()
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body observationModeRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	mode, ok := ship.ParseObservationMode(body.Mode)
	if !ok {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_observation_mode", "unknown observation mode: "+body.Mode)
		return
	}
	ctx.JSON(consts.StatusOK, ep.SetObservationMode(mode))
}

func (h Handler) endEpisode(c context.Context, ctx *app.RequestContext) {
	id, err := h.Episodes.End(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"episode_id": id, "ended": true})
}

func (h Handler) state(_ context.Context, ctx *app.RequestContext) {
	ep, err := h.Episodes.Current()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, ep.Store.GetState())
}

func (h Handler) agentState(_ context.Context, ctx *app.RequestContext) {
	ep, err := h.Episodes.Current()
	if err != nil {
		writeError(ctx, err)
		return
	}
	agentID := string(ctx.Query("agent_id"))
	if agentID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_agent_id", "agent_id query parameter is required")
		return
	}
	mode := ep.ObservationMode()
	if raw := string(ctx.Query("mode")); raw != "" {
		parsed, ok := ship.ParseObservationMode(raw)
		if !ok {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_observation_mode", "unknown observation mode: "+raw)
			return
		}
		mode = parsed
	}
	ctx.JSON(consts.StatusOK, ep.Store.GetStateFor(agentID, mode))
}

func (h Handler) resources(_ context.Context, ctx *app.RequestContext) {
	ep, err := h.Episodes.Current()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, ep.Arbiter.PoolSnapshot())
}

func (h Handler) conflictAnalysis(_ context.Context, ctx *app.RequestContext) {
	ep, err := h.Episodes.Current()
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, ep.ConflictAnalysis())
}

func (h Handler) replay(c context.Context, ctx *app.RequestContext) {
	episodeID, _ := strconv.ParseInt(string(ctx.Query("episode_id")), 10, 64)
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	resp, err := h.ReplayUC.Execute(c, replay.Request{
		EpisodeID: episodeID,
		Limit:     limit,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, episode.ErrNoActiveEpisode):
		writeErrorBody(ctx, consts.StatusConflict, "no_active_episode", err.Error())
	case errors.Is(err, episode.ErrEpisodeActive):
		writeErrorBody(ctx, consts.StatusConflict, "episode_active", err.Error())
	case errors.Is(err, resource.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_resource_request", err.Error())
	case errors.Is(err, resource.ErrNotCollecting),
		errors.Is(err, resource.ErrAlreadyResolved):
		writeErrorBody(ctx, consts.StatusConflict, "arbitration_phase", err.Error())
	case errors.Is(err, ship.ErrUnknownField):
		writeErrorBody(ctx, consts.StatusBadRequest, "unknown_field", err.Error())
	case errors.Is(err, worldstate.ErrHazardNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "hazard_not_found", err.Error())
	case errors.Is(err, replay.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
