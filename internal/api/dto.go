package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/scheduler"
	"github.com/shaiso/depsgraph/internal/snapshot"
)

// Snapshot DTOs

// SnapshotSummaryResponse — краткая запись о снимке.
type SnapshotSummaryResponse struct {
	ID          uuid.UUID `json:"id"`
	Scene       string    `json:"scene"`
	GraphID     uuid.UUID `json:"graph_id"`
	Fingerprint string    `json:"fingerprint"`
	Relations   int       `json:"relations"`
	CreatedAt   time.Time `json:"created_at"`
}

// SummaryFromRepo конвертирует repo.Summary в SnapshotSummaryResponse.
func SummaryFromRepo(s repo.Summary) SnapshotSummaryResponse {
	return SnapshotSummaryResponse{
		ID:          s.ID,
		Scene:       s.Scene,
		GraphID:     s.GraphID,
		Fingerprint: s.Fingerprint,
		Relations:   s.Relations,
		CreatedAt:   s.CreatedAt,
	}
}

// DiffResponse — разница связей двух снимков сцены.
type DiffResponse struct {
	Scene   string                    `json:"scene"`
	From    uuid.UUID                 `json:"from"`
	To      uuid.UUID                 `json:"to"`
	Added   []snapshot.RelationRecord `json:"added"`
	Removed []snapshot.RelationRecord `json:"removed"`
}

// Scene DTOs

// ValidateSceneResponse — итог сборки присланной сцены.
type ValidateSceneResponse struct {
	Scene           string   `json:"scene"`
	Fingerprint     string   `json:"fingerprint"`
	Objects         int      `json:"objects"`
	Operations      int      `json:"operations"`
	Relations       int      `json:"relations"`
	OrderViolations []string `json:"order_violations,omitempty"`
}

// Rebuild DTOs

// RebuildResultResponse — итог пересборки одной сцены.
type RebuildResultResponse struct {
	Path       string     `json:"path"`
	Scene      string     `json:"scene,omitempty"`
	Status     string     `json:"status"`
	SnapshotID *uuid.UUID `json:"snapshot_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// RebuildResultFromScheduler конвертирует scheduler.Result в RebuildResultResponse.
func RebuildResultFromScheduler(r scheduler.Result) RebuildResultResponse {
	resp := RebuildResultResponse{
		Path:   r.Path,
		Scene:  r.Scene,
		Status: string(r.Status),
	}
	if r.SnapshotID != uuid.Nil {
		id := r.SnapshotID
		resp.SnapshotID = &id
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}
