package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/depsgraph/internal/callbacks"
	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/scheduler"
	"github.com/shaiso/depsgraph/internal/snapshot"
)

const lampScene = `{
  "name": "lamp",
  "objects": [
    {"name": "Lamp", "operations": [
      {"name": "Local Transform", "component": "transform"},
      {"name": "Geometry Eval", "component": "geometry"}
    ]}
  ]
}`

const lampSceneLinked = `{
  "name": "lamp",
  "objects": [
    {"name": "Lamp", "operations": [
      {"name": "Local Transform", "component": "transform"},
      {"name": "Geometry Eval", "component": "geometry"}
    ]}
  ],
  "relations": [
    {"from": "Lamp/transform/Local Transform", "to": "Lamp/geometry/Geometry Eval"}
  ]
}`

const armSceneYAML = `
name: arm
objects:
  - name: Rig
    type: armature
    bones:
      - name: Upper
      - name: Lower
        parent: Upper
`

// stubRebuilder возвращает заранее заданный итог пересборки.
type stubRebuilder struct {
	results []scheduler.Result
	err     error
}

func (s *stubRebuilder) Tick(context.Context) ([]scheduler.Result, error) {
	return s.results, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer создаёт API поверх SQLite во временном каталоге.
func newTestServer(t *testing.T, rb Rebuilder) (*httptest.Server, repo.Store) {
	t.Helper()

	store, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewHandler(Config{
		Store:     store,
		Rebuilder: rb,
		Build: engine.BuildOptions{
			Callbacks: callbacks.DefaultRegistry(),
			Logger:    testLogger(),
		},
		Logger: testLogger(),
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

// storeScene собирает сцену из JSON и сохраняет её снимок.
func storeScene(t *testing.T, store repo.Store, src string) *snapshot.Snapshot {
	t.Helper()

	spec, err := engine.ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	scene, err := engine.Build(context.Background(), spec, engine.BuildOptions{Logger: testLogger()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer scene.Graph.Free()

	snap, err := snapshot.Export(scene.Graph)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	return snap
}

// decode читает ответ и раскладывает поле data в v.
func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()

	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal(body.Data, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func TestSnapshots(t *testing.T) {
	srv, store := newTestServer(t, nil)

	first := storeScene(t, store, lampScene)
	second := storeScene(t, store, lampSceneLinked)

	// Список
	resp := get(t, srv.URL+"/api/v1/snapshots?scene=lamp")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if _, err := uuidHeader(resp); err != nil {
		t.Error(err)
	}
	var list []SnapshotSummaryResponse
	decode(t, resp, &list)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected newest first, got %+v", list)
	}

	// По ID
	resp = get(t, srv.URL+"/api/v1/snapshots/"+first.ID.String())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got snapshot.Snapshot
	decode(t, resp, &got)
	if got.Fingerprint != first.Fingerprint {
		t.Errorf("expected fingerprint %s, got %s", first.Fingerprint, got.Fingerprint)
	}

	// Последний снимок сцены
	resp = get(t, srv.URL+"/api/v1/scenes/lamp/snapshot")
	decode(t, resp, &got)
	if got.ID != second.ID {
		t.Errorf("expected latest %s, got %s", second.ID, got.ID)
	}

	// Разница двух последних снимков
	resp = get(t, srv.URL+"/api/v1/scenes/lamp/diff")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var diff DiffResponse
	decode(t, resp, &diff)
	if diff.From != first.ID || diff.To != second.ID {
		t.Errorf("unexpected diff ids: %+v", diff)
	}
	if len(diff.Added) == 0 || len(diff.Removed) != 0 {
		t.Errorf("expected only added relations, got +%d -%d", len(diff.Added), len(diff.Removed))
	}
}

func TestSnapshots_Errors(t *testing.T) {
	srv, store := newTestServer(t, nil)
	storeScene(t, store, lampScene)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"invalid id", "/api/v1/snapshots/not-a-uuid", http.StatusBadRequest},
		{"unknown id", "/api/v1/snapshots/00000000-0000-0000-0000-000000000001", http.StatusNotFound},
		{"unknown scene", "/api/v1/scenes/ghost/snapshot", http.StatusNotFound},
		{"single snapshot diff", "/api/v1/scenes/lamp/diff", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv.URL+tt.path)
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}

			var body ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if body.Error.Message == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestValidateScene(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name        string
		contentType string
		query       string
		body        string
		status      int
		scene       string
	}{
		{"json", "application/json", "", lampSceneLinked, http.StatusOK, "lamp"},
		{"yaml", "application/yaml", "?order=true&cycles=true", armSceneYAML, http.StatusOK, "arm"},
		{"malformed", "application/json", "", `{"objects": [`, http.StatusBadRequest, ""},
		{"empty scene", "application/json", "", `{"name": "void"}`, http.StatusUnprocessableEntity, ""},
		{"unknown callback", "application/json", "", `{"objects": [{"name": "Lamp", "operations": [
			{"name": "Local Transform", "component": "transform", "callback": "no.such"}]}]}`,
			http.StatusUnprocessableEntity, ""},
		{"unknown endpoint", "application/json", "", `{"objects": [{"name": "Lamp"}],
			"relations": [{"from": "Ghost/transform", "to": "Lamp/transform"}]}`,
			http.StatusUnprocessableEntity, ""},
		{"bone self relation", "application/json", "", `{"objects": [{"name": "Rig", "type": "armature",
			"bones": [{"name": "Hand"}]}],
			"relations": [{"from": "Rig/bone:Hand", "to": "Rig/bone:Hand/Bone Transforms"}]}`,
			http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/v1/scenes/validate"+tt.query, tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}

			if resp.StatusCode != tt.status {
				resp.Body.Close()
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.status != http.StatusOK {
				resp.Body.Close()
				return
			}

			var got ValidateSceneResponse
			decode(t, resp, &got)
			if got.Scene != tt.scene {
				t.Errorf("expected scene %q, got %q", tt.scene, got.Scene)
			}
			if got.Fingerprint == "" || got.Operations == 0 {
				t.Errorf("unexpected response: %+v", got)
			}
		})
	}
}

func TestRebuild(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)

		resp, err := http.Post(srv.URL+"/api/v1/rebuild", "", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", resp.StatusCode)
		}
	})

	t.Run("results", func(t *testing.T) {
		rb := &stubRebuilder{results: []scheduler.Result{
			{Path: "arm.hcl", Scene: "arm", Status: scheduler.StatusUnchanged},
			{Path: "broken.yaml", Status: scheduler.StatusFailed, Err: errors.New("unknown bone")},
		}}
		srv, _ := newTestServer(t, rb)

		resp, err := http.Post(srv.URL+"/api/v1/rebuild", "", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var results []RebuildResultResponse
		decode(t, resp, &results)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].SnapshotID != nil || results[0].Status != "unchanged" {
			t.Errorf("unexpected first result: %+v", results[0])
		}
		if results[1].Error != "unknown bone" {
			t.Errorf("expected error message, got %+v", results[1])
		}
	})

	t.Run("tick error", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubRebuilder{err: errors.New("discover scenes: boom")})

		resp, err := http.Post(srv.URL+"/api/v1/rebuild", "", nil)
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", resp.StatusCode)
		}
	})
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	const id = "6f1c1b8e-2b1a-4e43-9a57-7f0c5c3c2d10"
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/snapshots", nil)
	req.Header.Set(HeaderRequestID, id)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(HeaderRequestID); got != id {
		t.Errorf("expected request id %s, got %s", id, got)
	}
}

func uuidHeader(resp *http.Response) (string, error) {
	id := resp.Header.Get(HeaderRequestID)
	if id == "" {
		return "", errors.New("missing " + HeaderRequestID + " header")
	}
	return id, nil
}
