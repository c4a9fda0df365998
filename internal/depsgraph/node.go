package depsgraph

import (
	"slices"

	"github.com/shaiso/depsgraph/internal/domain"
)

// Node — узел графа зависимостей.
//
// Узел создаётся фабрикой своего типа, присоединяется к графу через
// addToGraph и отсоединяется через removeFromGraph. Владение направлено
// только вниз: Owner() — ссылка для поиска и отсоединения, не владение.
type Node interface {
	// Kind возвращает тип узла.
	Kind() NodeKind

	// Name возвращает имя узла.
	Name() string

	// Owner возвращает контейнер, в котором находится узел, или nil.
	Owner() Node

	// Flags возвращает флаги узла.
	Flags() Flags

	base() *nodeBase
	init(obj *domain.Object, subdata string) error
	addToGraph(g *Graph, obj *domain.Object) error
	removeFromGraph(g *Graph) error
	validateLinks(g *Graph) error
	copyFrom(cc *CopyContext, src Node) error
	destroy()
}

// nodeBase — общие поля и поведение по умолчанию всех узлов.
type nodeBase struct {
	kind  NodeKind
	name  string
	owner Node
	flags Flags
}

func (n *nodeBase) Kind() NodeKind {
	return n.kind
}

func (n *nodeBase) Name() string {
	return n.name
}

func (n *nodeBase) Owner() Node {
	return n.owner
}

func (n *nodeBase) Flags() Flags {
	return n.flags
}

func (n *nodeBase) base() *nodeBase {
	return n
}

func (n *nodeBase) attached() bool {
	return n.owner != nil
}

func (n *nodeBase) setFlag(f Flags) {
	n.flags |= f
}

func (n *nodeBase) clearFlag(f Flags) {
	n.flags &^= f
}

func (n *nodeBase) init(*domain.Object, string) error {
	return nil
}

func (n *nodeBase) validateLinks(*Graph) error {
	return nil
}

func (n *nodeBase) copyFrom(*CopyContext, Node) error {
	return nil
}

func (n *nodeBase) destroy() {}

// Linkable — узел, который может быть концом связи.
//
// Вычислитель видит связи только между операциями. Компоненты костей
// принимают объявленные связи, которые валидация переносит на операции.
type Linkable interface {
	Node

	// Inlinks возвращает копию списка входящих связей.
	Inlinks() []*Relation

	// Outlinks возвращает копию списка исходящих связей.
	Outlinks() []*Relation

	linkSet() *links
}

// links — входящие и исходящие связи узла.
type links struct {
	inlinks  []*Relation
	outlinks []*Relation
}

func (l *links) Inlinks() []*Relation {
	return slices.Clone(l.inlinks)
}

func (l *links) Outlinks() []*Relation {
	return slices.Clone(l.outlinks)
}

func (l *links) linkSet() *links {
	return l
}

func (l *links) removeIn(rel *Relation) {
	l.inlinks = slices.DeleteFunc(l.inlinks, func(r *Relation) bool { return r == rel })
}

func (l *links) removeOut(rel *Relation) {
	l.outlinks = slices.DeleteFunc(l.outlinks, func(r *Relation) bool { return r == rel })
}

// entityOf поднимается по владельцам до entity-узла.
func entityOf(n Node) *EntityNode {
	for n != nil {
		if e, ok := n.(*EntityNode); ok {
			return e
		}
		n = n.Owner()
	}
	return nil
}
