package depsgraph

import (
	"fmt"
	"slices"
)

// Relation — направленная связь "From должен быть вычислен раньше To".
type Relation struct {
	From  Linkable
	To    Linkable
	Kind  RelationKind
	Label string
}

// String возвращает читаемое представление связи.
func (r *Relation) String() string {
	return fmt.Sprintf("%s -> %s (%s)", endpointPath(r.From), endpointPath(r.To), r.Kind)
}

// Path возвращает путь конца связи: "Rig/bone:Hand/Bone Transforms"
// для операции, "Rig/bone:Hand" для кости, "Rig/geometry" для компонента.
func Path(n Linkable) string {
	if isNil(n) {
		return ""
	}
	return endpointPath(n)
}

func endpointPath(n Linkable) string {
	switch v := n.(type) {
	case *OperationNode:
		return v.Path()
	case *BoneComponentNode:
		if ent := v.Entity(); ent != nil {
			return ent.Name() + "/bone:" + v.Name()
		}
		return "bone:" + v.Name()
	case Component:
		if ent := v.Entity(); ent != nil {
			return ent.Name() + "/" + v.Kind().String()
		}
		return v.Kind().String()
	default:
		return n.Name()
	}
}

// AddRelation добавляет связь from -> to.
//
// Связь попадает в outlinks источника и inlinks приёмника.
// Дубликаты не отсеиваются.
func (g *Graph) AddRelation(from, to Linkable, kind RelationKind, label string) (*Relation, error) {
	if isNil(from) || isNil(to) {
		return nil, invariant(label, "add relation", ErrNilEndpoint)
	}
	if from == to {
		return nil, invariant(endpointPath(from), "add relation", ErrSelfRelation)
	}

	rel := &Relation{From: from, To: to, Kind: kind, Label: label}
	from.linkSet().outlinks = append(from.linkSet().outlinks, rel)
	to.linkSet().inlinks = append(to.linkSet().inlinks, rel)

	g.metrics.RelationAdded(kind.String())
	g.logger.Debug("relation added",
		"from", endpointPath(from),
		"to", endpointPath(to),
		"kind", kind.String(),
	)

	return rel, nil
}

// retarget переносит приёмник связи на to.
func (g *Graph) retarget(rel *Relation, to Linkable) error {
	if rel.From == to {
		return invariant(endpointPath(to), "retarget relation", ErrSelfRelation)
	}
	rel.To.linkSet().removeIn(rel)
	rel.To = to
	to.linkSet().inlinks = append(to.linkSet().inlinks, rel)
	return nil
}

// resource переносит источник связи на from.
func (g *Graph) resource(rel *Relation, from Linkable) error {
	if rel.To == from {
		return invariant(endpointPath(from), "re-source relation", ErrSelfRelation)
	}
	rel.From.linkSet().removeOut(rel)
	rel.From = from
	from.linkSet().outlinks = append(from.linkSet().outlinks, rel)
	return nil
}

// sever удаляет все связи узла из списков обоих концов.
func (g *Graph) sever(n Linkable) {
	ls := n.linkSet()
	for _, rel := range slices.Clone(ls.inlinks) {
		rel.From.linkSet().removeOut(rel)
	}
	for _, rel := range slices.Clone(ls.outlinks) {
		rel.To.linkSet().removeIn(rel)
	}
	ls.inlinks = nil
	ls.outlinks = nil
}

// isNil распознаёт и nil-интерфейс, и типизированный nil-указатель.
func isNil(n Linkable) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *OperationNode:
		return v == nil
	case *BoneComponentNode:
		return v == nil
	case *PoseComponentNode:
		return v == nil
	case *ComponentNode:
		return v == nil
	default:
		return false
	}
}
