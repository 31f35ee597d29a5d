package replay

import (
	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
)

type Request struct {
	EpisodeID int64
	Limit     int
}

// Snapshot is one archived world-state record with the raw state payload
// decoded for the caller.
type Snapshot struct {
	AgentID   string         `json:"agent_id"`
	Reason    string         `json:"reason"`
	CreatedAt int64          `json:"created_at_unix"`
	State     map[string]any `json:"state"`
}

type Response struct {
	EpisodeID   int64                 `json:"episode_id"`
	Snapshots   []Snapshot            `json:"snapshots"`
	Allocations []resource.Allocation `json:"allocations"`
}

func snapshotFromRecord(rec ports.SnapshotRecord, state map[string]any) Snapshot {
	return Snapshot{
		AgentID:   rec.AgentID,
		Reason:    rec.Reason,
		CreatedAt: rec.CreatedAt.Unix(),
		State:     state,
	}
}
