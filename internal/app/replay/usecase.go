package replay

import (
	"context"
	"encoding/json"
	"errors"

	"bridgesim/internal/app/ports"
)

var ErrInvalidRequest = errors.New("invalid replay request")

const defaultLimit = 50

// UseCase reads an episode's archived history back out for analysis.
type UseCase struct {
	Archive ports.ArchiveRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if req.EpisodeID <= 0 {
		return Response{}, ErrInvalidRequest
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	records, err := u.Archive.ListSnapshots(ctx, req.EpisodeID, limit)
	if err != nil {
		return Response{}, err
	}
	snapshots := make([]Snapshot, 0, len(records))
	for _, rec := range records {
		var state map[string]any
		if err := json.Unmarshal(rec.StateJSON, &state); err != nil {
			// A corrupt archived payload should not hide the rest of
			// the history.
			state = map[string]any{"decode_error": err.Error()}
		}
		snapshots = append(snapshots, snapshotFromRecord(rec, state))
	}

	allocations, err := u.Archive.ListAllocations(ctx, req.EpisodeID, limit)
	if err != nil {
		return Response{}, err
	}

	return Response{
		EpisodeID:   req.EpisodeID,
		Snapshots:   snapshots,
		Allocations: allocations,
	}, nil
}
