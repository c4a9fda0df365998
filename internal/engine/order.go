package engine

import (
	"fmt"

	"github.com/shaiso/depsgraph/internal/depsgraph"
)

// componentRank — ожидаемый порядок компонентов внутри объекта:
// parameters -> animation -> transform -> geometry/pose.
var componentRank = map[depsgraph.NodeKind]int{
	depsgraph.KindParameters: 0,
	depsgraph.KindProxy:      0,
	depsgraph.KindAnimation:  1,
	depsgraph.KindTransform:  2,
	depsgraph.KindGeometry:   3,
	depsgraph.KindPose:       3,
	depsgraph.KindBone:       3,
	depsgraph.KindParticles:  3,
	depsgraph.KindSequencer:  3,
}

// OrderViolation — связь внутри объекта, идущая против порядка компонентов.
type OrderViolation struct {
	Object   string
	From     depsgraph.NodeKind
	To       depsgraph.NodeKind
	Relation string
}

// String возвращает описание нарушения.
func (v OrderViolation) String() string {
	return fmt.Sprintf("object %s: %s runs after %s (%s)", v.Object, v.From, v.To, v.Relation)
}

// ComponentOrder находит связи внутри одного объекта, которые идут от
// более позднего компонента к более раннему.
//
// Это только диагностика: граф не меняется и сборка не прерывается.
func ComponentOrder(g *depsgraph.Graph) []OrderViolation {
	var out []OrderViolation

	for _, rel := range g.Relations() {
		from, fromEnt := componentOf(rel.From)
		to, toEnt := componentOf(rel.To)
		if from == nil || to == nil || fromEnt == nil || fromEnt != toEnt {
			continue
		}

		if componentRank[from.Kind()] > componentRank[to.Kind()] {
			out = append(out, OrderViolation{
				Object:   fromEnt.Name(),
				From:     from.Kind(),
				To:       to.Kind(),
				Relation: rel.String(),
			})
		}
	}
	return out
}

func componentOf(n depsgraph.Linkable) (depsgraph.Component, *depsgraph.EntityNode) {
	var comp depsgraph.Component
	switch v := n.(type) {
	case *depsgraph.OperationNode:
		comp = v.Component()
	case depsgraph.Component:
		comp = v
	}
	if comp == nil {
		return nil, nil
	}
	return comp, comp.Entity()
}
