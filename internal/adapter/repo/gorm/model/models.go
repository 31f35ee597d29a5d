package model

import "time"

const TableNameEpisode = "episodes"

type Episode struct {
	ID              int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Policy          string     `gorm:"column:policy;not null"`
	ObservationMode string     `gorm:"column:observation_mode;not null"`
	Scenario        string     `gorm:"column:scenario"`
	StartedAt       time.Time  `gorm:"column:started_at;not null"`
	EndedAt         *time.Time `gorm:"column:ended_at"`
}

func (Episode) TableName() string { return TableNameEpisode }

const TableNameStateSnapshot = "state_snapshots"

type StateSnapshot struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EpisodeID int64     `gorm:"column:episode_id;not null;index"`
	AgentID   string    `gorm:"column:agent_id;not null"`
	Reason    string    `gorm:"column:reason"`
	State     []byte    `gorm:"column:state;type:jsonb;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (StateSnapshot) TableName() string { return TableNameStateSnapshot }

const TableNameResourceAllocation = "resource_allocations"

type ResourceAllocation struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	EpisodeID       int64  `gorm:"column:episode_id;not null;index"`
	Round           int32  `gorm:"column:round;not null"`
	AgentID         string `gorm:"column:agent_id;not null"`
	ResourceType    string `gorm:"column:resource_type;not null"`
	Requested       int32  `gorm:"column:requested;not null"`
	Allocated       int32  `gorm:"column:allocated;not null"`
	Success         bool   `gorm:"column:success;not null"`
	Conflict        bool   `gorm:"column:conflict;not null"`
	CompetingAgents []byte `gorm:"column:competing_agents;type:jsonb"`
}

func (ResourceAllocation) TableName() string { return TableNameResourceAllocation }

const TableNameResourceConflict = "resource_conflicts"

type ResourceConflict struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EpisodeID      int64     `gorm:"column:episode_id;not null;index"`
	Round          int32     `gorm:"column:round;not null"`
	ResourceType   string    `gorm:"column:resource_type;not null"`
	Available      int32     `gorm:"column:available;not null"`
	TotalRequested int32     `gorm:"column:total_requested;not null"`
	Agents         []byte    `gorm:"column:agents;type:jsonb;not null"`
	Policy         string    `gorm:"column:policy;not null"`
	OccurredAt     time.Time `gorm:"column:occurred_at;not null"`
}

func (ResourceConflict) TableName() string { return TableNameResourceConflict }
