package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/shaiso/depsgraph/internal/domain"
	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/snapshot"
)

// maxSceneBody — предельный размер присылаемого описания сцены.
const maxSceneBody = 4 << 20

// ValidateScene собирает присланную сцену и проверяет её связи.
// Формат тела определяется Content-Type: YAML или JSON (по умолчанию).
// С ?order=true в ответ добавляются нарушения порядка компонентов,
// с ?cycles=true циклическая сцена отклоняется.
// POST /api/v1/scenes/validate
func (h *Handler) ValidateScene(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSceneBody))
	if err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	var spec *domain.SceneSpec
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		spec, err = engine.ParseYAML(body)
	} else {
		spec, err = engine.ParseJSON(body)
	}
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if spec.Name == "" {
		spec.Name = "scene"
	}

	scene, err := engine.Build(r.Context(), spec, h.build)
	if HandleBuildError(w, h.logger, err) {
		return
	}
	defer scene.Graph.Free()

	q := r.URL.Query()
	if q.Get("cycles") == "true" {
		if err := scene.Graph.DetectCycles(); err != nil {
			InvalidScene(w, err.Error())
			return
		}
	}

	snap, err := snapshot.Export(scene.Graph)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	resp := ValidateSceneResponse{
		Scene:       spec.Name,
		Fingerprint: snap.Fingerprint,
		Objects:     len(scene.Objects),
		Operations:  len(snap.Operations),
		Relations:   len(snap.Relations),
	}
	if q.Get("order") == "true" {
		for _, v := range engine.ComponentOrder(scene.Graph) {
			resp.OrderViolations = append(resp.OrderViolations, v.String())
		}
	}

	Success(w, resp)
}

// Rebuild выполняет внеочередную пересборку сцен.
// POST /api/v1/rebuild
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder == nil {
		Unavailable(w, "rebuild is not configured")
		return
	}

	results, err := h.rebuilder.Tick(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	resp := make([]RebuildResultResponse, len(results))
	for i, res := range results {
		resp[i] = RebuildResultFromScheduler(res)
	}

	List(w, resp, len(resp))
}
