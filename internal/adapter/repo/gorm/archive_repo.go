package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bridgesim/internal/adapter/repo/gorm/model"
	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArchiveRepo struct {
	db *gorm.DB
}

func NewArchiveRepo(db *gorm.DB) ArchiveRepo {
	return ArchiveRepo{db: db}
}

func (r ArchiveRepo) CreateEpisode(ctx context.Context, rec ports.EpisodeRecord) (int64, error) {
	m := model.Episode{
		Policy:          rec.Policy,
		ObservationMode: rec.ObservationMode,
		Scenario:        rec.Scenario,
		StartedAt:       rec.StartedAt,
	}
	if err := getDBFromCtx(ctx, r.db).Create(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (r ArchiveRepo) CloseEpisode(ctx context.Context, episodeID int64, endedAt time.Time) error {
	res := getDBFromCtx(ctx, r.db).Model(&model.Episode{}).
		Where("id = ?", episodeID).
		Update("ended_at", endedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r ArchiveRepo) SaveSnapshot(ctx context.Context, rec ports.SnapshotRecord) error {
	m := model.StateSnapshot{
		EpisodeID: rec.EpisodeID,
		AgentID:   rec.AgentID,
		Reason:    rec.Reason,
		State:     rec.StateJSON,
		CreatedAt: rec.CreatedAt,
	}
	return getDBFromCtx(ctx, r.db).Create(&m).Error
}

func (r ArchiveRepo) SaveAllocations(ctx context.Context, episodeID int64, allocations []resource.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]model.ResourceAllocation, 0, len(allocations))
	for _, a := range allocations {
		var competing []byte
		if len(a.CompetingAgents) > 0 {
			competing, _ = json.Marshal(a.CompetingAgents)
		}
		rows = append(rows, model.ResourceAllocation{
			EpisodeID:       episodeID,
			Round:           int32(a.Round),
			AgentID:         a.AgentID,
			ResourceType:    string(a.Type),
			Requested:       int32(a.Requested),
			Allocated:       int32(a.Allocated),
			Success:         a.Success,
			Conflict:        a.Conflict,
			CompetingAgents: competing,
		})
	}
	return getDBFromCtx(ctx, r.db).Create(&rows).Error
}

func (r ArchiveRepo) SaveConflicts(ctx context.Context, episodeID int64, conflicts []resource.ConflictRecord) error {
	if len(conflicts) == 0 {
		return nil
	}
	rows := make([]model.ResourceConflict, 0, len(conflicts))
	for _, c := range conflicts {
		agents, _ := json.Marshal(c.Agents)
		rows = append(rows, model.ResourceConflict{
			EpisodeID:      episodeID,
			Round:          int32(c.Round),
			ResourceType:   string(c.Type),
			Available:      int32(c.Available),
			TotalRequested: int32(c.TotalRequested),
			Agents:         agents,
			Policy:         string(c.Policy),
			OccurredAt:     c.OccurredAt,
		})
	}
	return getDBFromCtx(ctx, r.db).Create(&rows).Error
}

func (r ArchiveRepo) ListSnapshots(ctx context.Context, episodeID int64, limit int) ([]ports.SnapshotRecord, error) {
	rows := []model.StateSnapshot{}
	query := getDBFromCtx(ctx, r.db).
		Where("episode_id = ?", episodeID).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "created_at"}}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}

	out := make([]ports.SnapshotRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ports.SnapshotRecord{
			EpisodeID: row.EpisodeID,
			AgentID:   row.AgentID,
			Reason:    row.Reason,
			StateJSON: row.State,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r ArchiveRepo) ListAllocations(ctx context.Context, episodeID int64, limit int) ([]resource.Allocation, error) {
	rows := []model.ResourceAllocation{}
	query := getDBFromCtx(ctx, r.db).
		Where("episode_id = ?", episodeID).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{
				{Column: clause.Column{Name: "round"}},
				{Column: clause.Column{Name: "id"}},
			},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]resource.Allocation, 0, len(rows))
	for _, row := range rows {
		var competing []string
		if len(row.CompetingAgents) > 0 {
			_ = json.Unmarshal(row.CompetingAgents, &competing)
		}
		out = append(out, resource.Allocation{
			AgentID:         row.AgentID,
			Type:            resource.Type(row.ResourceType),
			Requested:       int(row.Requested),
			Allocated:       int(row.Allocated),
			Success:         row.Success,
			Conflict:        row.Conflict,
			CompetingAgents: competing,
			Round:           int(row.Round),
		})
	}
	return out, nil
}
