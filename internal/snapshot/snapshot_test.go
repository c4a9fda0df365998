package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/domain"
	"github.com/shaiso/depsgraph/internal/engine"
)

// armScene — арматура из двух костей и меш, который от неё зависит.
func armScene() *domain.SceneSpec {
	return &domain.SceneSpec{
		Name: "arm",
		Objects: []domain.ObjectDef{
			{
				Name: "Rig",
				Type: "armature",
				Bones: []domain.BoneDef{
					{Name: "Upper"},
					{Name: "Lower", Parent: "Upper"},
				},
			},
			{
				Name: "Body",
				Type: "mesh",
				Operations: []domain.OperationDef{
					{Name: "Deform", Component: "geometry"},
				},
			},
		},
		Relations: []domain.RelationDef{
			{From: "Rig/bone:Lower", To: "Body/geometry/Deform", Kind: "transform"},
		},
	}
}

func buildGraph(t *testing.T, spec *domain.SceneSpec) *depsgraph.Graph {
	t.Helper()

	scene, err := engine.Build(context.Background(), spec, engine.BuildOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return scene.Graph
}

func TestExport(t *testing.T) {
	g := buildGraph(t, armScene())

	s, err := Export(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Scene != "arm" {
		t.Errorf("expected scene arm, got %q", s.Scene)
	}
	if s.GraphID != g.ID {
		t.Errorf("expected graph id %s, got %s", g.ID, s.GraphID)
	}
	if len(s.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(s.Entities))
	}
	if len(s.Relations) != len(g.Relations()) {
		t.Errorf("expected %d relations, got %d", len(g.Relations()), len(s.Relations))
	}
	if len(s.Operations) != len(g.Operations()) {
		t.Errorf("expected %d operations, got %d", len(g.Operations()), len(s.Operations))
	}

	for _, e := range s.Entities {
		if e.Name == "Rig" && len(e.Bones) != 2 {
			t.Errorf("expected 2 bones on Rig, got %v", e.Bones)
		}
	}

	found := false
	for _, r := range s.Relations {
		if r.From == "Rig/bone:Lower/Bone Transforms" && r.To == "Body/geometry/Deform" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Lower -> Deform relation, got %v", s.Relations)
	}

	if err := Verify(s); err != nil {
		t.Errorf("unexpected verify error: %v", err)
	}
}

func TestExport_NotUsable(t *testing.T) {
	g, err := depsgraph.New(depsgraph.DefaultRegistry(),
		depsgraph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	// Граф без ValidateLinks
	if _, err := Export(g); !errors.Is(err, ErrGraphNotUsable) {
		t.Errorf("expected ErrGraphNotUsable, got %v", err)
	}

	if _, err := Export(nil); !errors.Is(err, ErrGraphNotUsable) {
		t.Errorf("expected ErrGraphNotUsable for nil graph, got %v", err)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a, err := Export(buildGraph(t, armScene()))
	if err != nil {
		t.Fatalf("export a: %v", err)
	}
	b, err := Export(buildGraph(t, armScene()))
	if err != nil {
		t.Fatalf("export b: %v", err)
	}

	if a.ID == b.ID {
		t.Error("expected distinct snapshot IDs")
	}
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("expected equal fingerprints, got %s and %s", a.Fingerprint, b.Fingerprint)
	}

	spec := armScene()
	spec.Relations[0].Kind = "geometry_eval"
	c, err := Export(buildGraph(t, spec))
	if err != nil {
		t.Fatalf("export c: %v", err)
	}
	if c.Fingerprint == a.Fingerprint {
		t.Error("expected different fingerprint after relation change")
	}
}

func TestEncodeDecode(t *testing.T) {
	s, err := Export(buildGraph(t, armScene()))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != s.ID || got.Fingerprint != s.Fingerprint {
		t.Errorf("decoded snapshot differs: %s/%s vs %s/%s", got.ID, got.Fingerprint, s.ID, s.Fingerprint)
	}
}

func TestDecode_Errors(t *testing.T) {
	s, err := Export(buildGraph(t, armScene()))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Содержимое изменено после вычисления отпечатка
	s.Relations = s.Relations[1:]
	tampered, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := Decode(tampered); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("expected ErrFingerprintMismatch, got %v", err)
	}

	if _, err := Decode([]byte("not zstd")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestDiff(t *testing.T) {
	a, err := Export(buildGraph(t, armScene()))
	if err != nil {
		t.Fatalf("export a: %v", err)
	}

	spec := armScene()
	spec.Relations[0].From = "Rig/bone:Upper"
	b, err := Export(buildGraph(t, spec))
	if err != nil {
		t.Fatalf("export b: %v", err)
	}

	added, removed := Diff(a, b)
	if len(added) != 1 || added[0].From != "Rig/bone:Upper/Bone Transforms" {
		t.Errorf("unexpected added: %v", added)
	}
	if len(removed) != 1 || removed[0].From != "Rig/bone:Lower/Bone Transforms" {
		t.Errorf("unexpected removed: %v", removed)
	}

	added, removed = Diff(a, a)
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("expected no diff, got +%v -%v", added, removed)
	}
}
