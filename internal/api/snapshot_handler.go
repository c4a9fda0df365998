package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/depsgraph/internal/snapshot"
)

// ListSnapshots возвращает список снимков, новые первыми.
// GET /api/v1/snapshots?scene=
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context(), r.URL.Query().Get("scene"))
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]SnapshotSummaryResponse, len(list))
	for i, s := range list {
		result[i] = SummaryFromRepo(s)
	}

	List(w, result, len(result))
}

// GetSnapshot возвращает снимок по ID.
// GET /api/v1/snapshots/{id}
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid snapshot id")
		return
	}

	snap, err := h.store.Get(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "snapshot not found") {
		return
	}

	Success(w, snap)
}

// LatestSnapshot возвращает последний снимок сцены.
// GET /api/v1/scenes/{scene}/snapshot
func (h *Handler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	scene := r.PathValue("scene")

	snap, err := h.store.Latest(r.Context(), scene)
	if HandleRepoError(w, h.logger, err, fmt.Sprintf("no snapshots of scene %q", scene)) {
		return
	}

	Success(w, snap)
}

// DiffScene сравнивает два последних снимка сцены.
// GET /api/v1/scenes/{scene}/diff
func (h *Handler) DiffScene(w http.ResponseWriter, r *http.Request) {
	scene := r.PathValue("scene")

	list, err := h.store.List(r.Context(), scene)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}
	if len(list) < 2 {
		NotFound(w, fmt.Sprintf("scene %q has %d snapshots, need at least 2", scene, len(list)))
		return
	}

	newSnap, err := h.store.Get(r.Context(), list[0].ID)
	if HandleRepoError(w, h.logger, err, "snapshot not found") {
		return
	}
	oldSnap, err := h.store.Get(r.Context(), list[1].ID)
	if HandleRepoError(w, h.logger, err, "snapshot not found") {
		return
	}

	added, removed := snapshot.Diff(oldSnap, newSnap)
	Success(w, DiffResponse{
		Scene:   scene,
		From:    oldSnap.ID,
		To:      newSnap.ID,
		Added:   added,
		Removed: removed,
	})
}
