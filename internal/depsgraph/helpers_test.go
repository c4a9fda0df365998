package depsgraph

import (
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/shaiso/depsgraph/internal/domain"
)

// boneDef — описание кости для тестовой арматуры.
type boneDef struct {
	name        string
	parent      string
	constraints []string
}

// newArmature создаёт объект-арматуру с заданными костями.
func newArmature(name string, bones ...boneDef) *domain.Object {
	obj := domain.NewObject(name, domain.ObjectArmature)
	obj.Pose = &domain.Pose{}

	for _, b := range bones {
		obj.Pose.Channels = append(obj.Pose.Channels, &domain.Channel{
			Name:        b.name,
			Constraints: b.constraints,
		})
	}
	for _, b := range bones {
		if b.parent != "" {
			obj.Pose.Channel(b.name).Parent = obj.Pose.Channel(b.parent)
		}
	}
	return obj
}

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	g, err := New(DefaultRegistry(), opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

// addBone создаёт кость с Bone Transforms и, если у канала есть
// ограничения, Constraint Stack.
func addBone(t *testing.T, g *Graph, obj *domain.Object, name string) *BoneComponentNode {
	t.Helper()

	n, err := g.GetOrCreate(obj, name, KindBone)
	if err != nil {
		t.Fatalf("create bone %s: %v", name, err)
	}
	bone := n.(*BoneComponentNode)

	if _, err := g.AddOperation(obj, name, KindBone, OpExec, nil, OpNameBoneTransforms); err != nil {
		t.Fatalf("add bone transforms: %v", err)
	}
	if bone.Channel().HasConstraints() {
		if _, err := g.AddOperation(obj, name, KindBone, OpExec, nil, OpNameConstraintStack); err != nil {
			t.Fatalf("add constraint stack: %v", err)
		}
	}
	return bone
}

func addOp(t *testing.T, g *Graph, obj *domain.Object, comp NodeKind, name string) *OperationNode {
	t.Helper()

	op, err := g.AddOperation(obj, "", comp, OpExec, nil, name)
	if err != nil {
		t.Fatalf("add operation %s: %v", name, err)
	}
	return op
}

func relate(t *testing.T, g *Graph, from, to Linkable, kind RelationKind) *Relation {
	t.Helper()

	rel, err := g.AddRelation(from, to, kind, "")
	if err != nil {
		t.Fatalf("add relation: %v", err)
	}
	return rel
}

// edges возвращает связи графа в виде отсортированных строк "from -> to".
func edges(g *Graph) []string {
	var out []string
	for _, rel := range g.Relations() {
		out = append(out, endpointPath(rel.From)+" -> "+endpointPath(rel.To))
	}
	sort.Strings(out)
	return out
}

func assertEdges(t *testing.T, g *Graph, want []string) {
	t.Helper()

	got := edges(g)
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("expected %d edges, got %d:\n%v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// mapCallbacks — CallbackSource на основе map.
type mapCallbacks map[string]Callback

func (m mapCallbacks) Get(name string) (Callback, error) {
	cb, ok := m[name]
	if !ok {
		return nil, ErrUnknownKind
	}
	return cb, nil
}
