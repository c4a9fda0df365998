package depsgraph

import (
	"errors"
	"slices"
	"testing"

	"github.com/shaiso/depsgraph/internal/domain"
)

func operationNames(c Component) []string {
	var names []string
	for _, op := range c.Operations() {
		names = append(names, op.Name())
	}
	return names
}

func TestCopyEntity(t *testing.T) {
	g := newTestGraph(t)
	obj := newArmature("Rig", boneDef{name: "Hand", constraints: []string{"IK"}})

	addBone(t, g, obj, "Hand")
	tr := addOp(t, g, obj, KindTransform, "Local Transform")
	geom := addOp(t, g, obj, KindGeometry, "Geometry Eval")
	addOp(t, g, obj, KindPose, "IK Solver")
	relate(t, g, tr, geom, RelationGeometryEval)

	src := g.FindEntity(obj)
	cc := NewCopyContext(g.Types())

	dst, err := CopyEntity(cc, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dst == src {
		t.Fatal("copy must be a distinct entity")
	}
	if dst.Owner() != nil {
		t.Error("copy must be detached")
	}
	if dst.Object() != obj {
		t.Error("copy should reference the same object")
	}

	srcComps, dstComps := src.Components(), dst.Components()
	if len(srcComps) != len(dstComps) {
		t.Fatalf("expected %d components, got %d", len(srcComps), len(dstComps))
	}

	for i := range srcComps {
		s, d := srcComps[i], dstComps[i]
		if s == d {
			t.Errorf("%s: component must be a new instance", s.Kind())
		}
		if s.Kind() != d.Kind() {
			t.Errorf("expected kind %s, got %s", s.Kind(), d.Kind())
		}
		if d.Owner() != Node(dst) {
			t.Errorf("%s: copy should be owned by the copied entity", d.Kind())
		}
		if !slices.Equal(operationNames(s), operationNames(d)) {
			t.Errorf("%s: operations differ: %v vs %v", s.Kind(), operationNames(s), operationNames(d))
		}
		for _, op := range d.Operations() {
			if len(op.Inlinks()) != 0 || len(op.Outlinks()) != 0 {
				t.Errorf("%s: copied operation must have no relations", op.Path())
			}
			if op.Component() != d {
				t.Errorf("%s: copied operation should be owned by the copy", op.Name())
			}
		}
	}

	// Поза копируется вместе с костями
	pose := dst.Component(KindPose).(*PoseComponentNode)
	bone := pose.Bone("Hand")
	if bone == nil {
		t.Fatal("pose copy should contain the bone")
	}
	if bone == src.Component(KindPose).(*PoseComponentNode).Bone("Hand") {
		t.Error("bone must be a new instance")
	}
	if bone.Pose() != pose || bone.Channel() != obj.Pose.Channel("Hand") {
		t.Error("bone copy should belong to the copied pose and share the channel")
	}
	if bone.FindOperation(OpNameConstraintStack) == nil {
		t.Error("bone copy should keep its operations")
	}

	// Исходный граф не изменился
	if len(tr.Outlinks()) != 1 {
		t.Error("source relations must survive the copy")
	}

	copied, ok := cc.CopyOf(tr)
	if !ok || copied.Name() != tr.Name() || copied == Node(tr) {
		t.Error("copy context should map the source operation to its copy")
	}
}

func TestCopy_Subgraph(t *testing.T) {
	g := newTestGraph(t)
	emb := newTestGraph(t)

	sg, err := g.AddSubgraph(domain.NewObject("Collection", domain.ObjectEmpty), emb, FlagFirstRef)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = NewCopyContext(g.Types()).Copy(sg)
	if !errors.Is(err, ErrCopyUnsupported) {
		t.Errorf("expected ErrCopyUnsupported, got %v", err)
	}
}

func TestSubgraph_Destroy(t *testing.T) {
	tests := []struct {
		name      string
		flags     Flags
		wantFreed bool
	}{
		{"owned", 0, true},
		{"first reference", FlagFirstRef, true},
		{"shared first reference", FlagShared | FlagFirstRef, true},
		{"shared", FlagShared, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t)
			emb := newTestGraph(t)
			obj := domain.NewObject("Cube", domain.ObjectMesh)
			addOp(t, emb, obj, KindGeometry, "Geometry Eval")

			// Вторая ссылка на встроенный граф
			holder := emb

			sg, err := g.AddSubgraph(domain.NewObject("Instance", domain.ObjectEmpty), emb, tt.flags)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sg.Graph() != emb {
				t.Fatal("subgraph should reference the embedded graph")
			}

			if err := g.Remove(sg); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := g.Destroy(sg); err != nil {
				t.Fatalf("destroy: %v", err)
			}

			if holder.Freed() != tt.wantFreed {
				t.Errorf("expected freed=%v, got %v", tt.wantFreed, holder.Freed())
			}
			if !tt.wantFreed && holder.FindEntity(obj) == nil {
				t.Error("shared embedded graph should stay intact")
			}
			if sg.Graph() != nil {
				t.Error("destroyed subgraph should drop its graph reference")
			}
		})
	}
}

func TestSubgraph_FreedWithOwner(t *testing.T) {
	g := newTestGraph(t)
	emb := newTestGraph(t)

	if _, err := g.AddSubgraph(nil, emb, FlagFirstRef); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g.Free()

	if !emb.Freed() {
		t.Error("freeing the owner should free a first-reference subgraph")
	}
}
