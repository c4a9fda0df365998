package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/depsgraph/internal/mq"
	"github.com/shaiso/depsgraph/internal/snapshot"
)

const armFile = "../engine/testdata/arm.hcl"

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

// brokenScene ссылается на несуществующий объект.
const brokenScene = `
objects:
  - name: Lamp
relations:
  - from: Ghost/transform
    to: Lamp/transform
`

// execute запускает корневую команду и возвращает stdout и stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	env := &Env{Stdout: &stdout, Stderr: &stderr}

	root := NewRootCmd(env, "test")
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestOutput(t *testing.T) {
	var buf bytes.Buffer

	out := NewOutputTo(false, &buf, &buf)
	if err := out.Print([]string{"NAME", "KIND"}, [][]string{{"Rig", "armature"}}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"NAME", "----", "Rig", "armature"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q:\n%s", want, got)
		}
	}

	buf.Reset()
	out = NewOutputTo(true, &buf, &buf)
	if err := out.Print(nil, nil, map[string]int{"relations": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if decoded["relations"] != 3 {
		t.Errorf("expected relations=3, got %v", decoded)
	}
}

func TestEnv_ParseVars(t *testing.T) {
	tests := []struct {
		name    string
		vars    []string
		want    map[string]string
		wantErr bool
	}{
		{"empty", nil, map[string]string{}, false},
		{"pairs", []string{"a=1", "b=x=y"}, map[string]string{"a": "1", "b": "x=y"}, false},
		{"empty value", []string{"a="}, map[string]string{"a": ""}, false},
		{"no separator", []string{"a"}, nil, true},
		{"empty key", []string{"=1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Env{Vars: tt.vars}
			got, err := env.ParseVars()
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("var %s: expected %q, got %q", k, v, got[k])
				}
			}
		})
	}
}

func TestEnv_OpenStore_Unknown(t *testing.T) {
	env := &Env{Store: "redis"}
	if _, err := env.OpenStore(context.Background()); err == nil {
		t.Error("expected error for unknown store")
	}
}

func TestBuildCmd(t *testing.T) {
	stdout, _, err := execute(t, "build", "--json", "--order", "--cycles",
		"--var", "deform_callback=mesh.geometry", armFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summaries []buildSummary
	if err := json.Unmarshal([]byte(stdout), &summaries); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}

	s := summaries[0]
	if s.Scene != "arm" || s.Objects != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Operations == 0 || s.Relations == 0 {
		t.Errorf("expected operations and relations, got %+v", s)
	}
}

func TestBuildCmd_Directory(t *testing.T) {
	stdout, _, err := execute(t, "build", "--var", "deform_callback=mesh.geometry", "../engine/testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, scene := range []string{"arm", "cube", "lamp"} {
		if !strings.Contains(stdout, scene) {
			t.Errorf("output missing scene %q:\n%s", scene, stdout)
		}
	}
}

func TestBuildCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, broken, brokenScene)

	tests := []struct {
		name string
		args []string
	}{
		{"missing var", []string{"build", armFile}},
		{"bad var", []string{"build", "--var", "oops", armFile}},
		{"missing file", []string{"build", filepath.Join(dir, "nope.hcl")}},
		{"empty dir", []string{"build", t.TempDir()}},
		{"broken scene", []string{"build", broken}},
		{"no args", []string{"build"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lamp.json"), lampScene)
	writeFile(t, filepath.Join(dir, "broken.yaml"), brokenScene)

	stdout, _, err := execute(t, "validate", "--json", dir)
	if err == nil {
		t.Fatal("expected error for invalid scene")
	}

	var results []validateResult
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	for _, r := range results {
		switch filepath.Base(r.Path) {
		case "lamp.json":
			if !r.Valid {
				t.Errorf("expected lamp.json valid, got %+v", r)
			}
		case "broken.yaml":
			if r.Valid || r.Error == "" {
				t.Errorf("expected broken.yaml invalid, got %+v", r)
			}
		}
	}

	if _, _, err := execute(t, "validate", filepath.Join(dir, "lamp.json")); err != nil {
		t.Errorf("unexpected error for valid scene: %v", err)
	}
}

func TestExportShowDiff(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "lamp.json")
	db := filepath.Join(dir, "snapshots.db")
	writeFile(t, scene, lampScene)

	// Экспорт в stdout с сохранением
	stdout, _, err := execute(t, "export", "--save", "--db", db, scene)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var first snapshot.Snapshot
	if err := json.Unmarshal([]byte(stdout), &first); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if first.Scene != "lamp" {
		t.Errorf("expected scene lamp, got %q", first.Scene)
	}

	// Повторное сохранение того же графа не создаёт снимок
	_, stderr, err := execute(t, "export", "--save", "--db", db, scene)
	if err != nil {
		t.Fatalf("export again: %v", err)
	}
	if !strings.Contains(stderr, "already stored") {
		t.Errorf("expected warning about stored snapshot, got %q", stderr)
	}

	writeFile(t, scene, lampSceneLinked)
	if _, _, err := execute(t, "export", "--save", "--db", db, scene); err != nil {
		t.Fatalf("export changed: %v", err)
	}

	// Список снимков
	stdout, _, err = execute(t, "snapshots", "--json", "--db", db, "lamp")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	var list []map[string]any
	if err := json.Unmarshal([]byte(stdout), &list); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 snapshots, got %d", len(list))
	}

	// Последний снимок по имени сцены
	stdout, _, err = execute(t, "show", "--json", "--db", db, "lamp")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var latest snapshot.Snapshot
	if err := json.Unmarshal([]byte(stdout), &latest); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if latest.ID == first.ID {
		t.Error("expected latest snapshot to differ from the first")
	}

	// Снимок по ID
	if _, _, err := execute(t, "show", "--db", db, first.ID.String()); err != nil {
		t.Errorf("show by id: %v", err)
	}

	// Разница двух последних снимков
	stdout, _, err = execute(t, "diff", "--json", "--db", db, "lamp")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	var diff diffResult
	if err := json.Unmarshal([]byte(stdout), &diff); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(diff.Added) == 0 || len(diff.Removed) != 0 {
		t.Errorf("expected only added relations, got +%d -%d", len(diff.Added), len(diff.Removed))
	}

	stdout, _, err = execute(t, "diff", "--db", db, "lamp")
	if err != nil {
		t.Fatalf("diff text: %v", err)
	}
	if !strings.HasPrefix(stdout, "+ ") {
		t.Errorf("expected added relation lines, got %q", stdout)
	}

	if _, _, err := execute(t, "show", "--db", db, "ghost"); err == nil {
		t.Error("expected error for unknown scene")
	}
}

func TestExport_File(t *testing.T) {
	dir := t.TempDir()
	scene := filepath.Join(dir, "lamp.json")
	writeFile(t, scene, lampSceneLinked)

	for _, name := range []string{"lamp.snapshot.json", "lamp.snapshot.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if _, _, err := execute(t, "export", "--out", path, scene); err != nil {
				t.Fatalf("export: %v", err)
			}

			s, err := readSnapshot(path)
			if err != nil {
				t.Fatalf("read snapshot: %v", err)
			}
			if s.Scene != "lamp" || len(s.Relations) == 0 {
				t.Errorf("unexpected snapshot: scene=%q relations=%d", s.Scene, len(s.Relations))
			}

			stdout, _, err := execute(t, "show", path)
			if err != nil {
				t.Fatalf("show file: %v", err)
			}
			if !strings.Contains(stdout, "FROM") {
				t.Errorf("expected relations table, got %q", stdout)
			}
		})
	}

	// Файлы сравниваются без хранилища
	stdout, _, err := execute(t, "diff",
		filepath.Join(dir, "lamp.snapshot.json"), filepath.Join(dir, "lamp.snapshot.zst"))
	if err != nil {
		t.Fatalf("diff files: %v", err)
	}
	if strings.TrimSpace(stdout) != "" {
		t.Errorf("expected no changes, got %q", stdout)
	}
}

func TestKindsCmd(t *testing.T) {
	stdout, _, err := execute(t, "kinds", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []kindInfo
	if err := json.Unmarshal([]byte(stdout), &kinds); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	byKind := make(map[string]kindInfo, len(kinds))
	for _, k := range kinds {
		byKind[k.Kind] = k
	}

	tests := []struct {
		kind  string
		class string
		owner string
	}{
		{"entity", "generic", ""},
		{"bone", "component", ""},
		{"op_bone", "operation", "bone"},
		{"op_rigidbody", "operation", "transform"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			k, ok := byKind[tt.kind]
			if !ok {
				t.Fatalf("kind %s not listed", tt.kind)
			}
			if k.Class != tt.class || k.Owner != tt.owner {
				t.Errorf("expected %s/%s, got %+v", tt.class, tt.owner, k)
			}
			if k.TypeName == "" {
				t.Error("expected type name")
			}
		})
	}
}

func TestCallbacksCmd(t *testing.T) {
	stdout, _, err := execute(t, "callbacks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"bone.eval", "iktree.eval", "mesh.geometry"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("output missing %q", name)
		}
	}
}

func TestWatchHandlers(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	encode := func(msg *mq.Message) []byte {
		msg.Timestamp = ts
		body, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return body
	}

	validated := encode(mq.NewMessage(mq.MessageTypeGraphValidated, mq.GraphValidatedPayload{
		Scene:       "arm",
		Fingerprint: "0123456789abcdef",
		Operations:  7,
		Relations:   8,
	}))
	failed := encode(mq.NewMessage(mq.MessageTypeGraphFailed, mq.GraphFailedPayload{
		Path:  "scenes/broken.yaml",
		Error: "unknown bone",
	}))

	tests := []struct {
		name    string
		body    []byte
		json    bool
		want    []string
		wantErr error
	}{
		{"validated", validated, false, []string{"validated arm", "fingerprint=0123456789ab ", "relations=8"}, nil},
		{"failed without scene", failed, false, []string{"failed scenes/broken.yaml: unknown bone"}, nil},
		{"validated json", validated, true, []string{`"type": "graph.validated"`, `"operations": 7`}, nil},
		{"unknown type", encode(mq.NewMessage("graph.deleted", nil)), false, nil, mq.ErrUnknownEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			out := NewOutputTo(tt.json, &stdout, &bytes.Buffer{})

			err := watchHandlers(out).Dispatch(context.Background(), tt.body, false)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(stdout.String(), w) {
					t.Errorf("expected %q in %q", w, stdout.String())
				}
			}
		})
	}
}
