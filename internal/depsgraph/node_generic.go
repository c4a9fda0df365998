package depsgraph

import (
	"sort"

	"github.com/shaiso/depsgraph/internal/domain"
)

// RootNode — корень графа. В графе ровно один корень.
type RootNode struct {
	nodeBase

	timeSource *TimeSourceNode
}

// TimeSource возвращает глобальный источник времени или nil.
func (r *RootNode) TimeSource() *TimeSourceNode {
	return r.timeSource
}

func (r *RootNode) addToGraph(g *Graph, _ *domain.Object) error {
	if g.root != nil {
		return invariant(r.name, "add to graph", ErrRootExists)
	}
	g.root = r
	return nil
}

func (r *RootNode) removeFromGraph(g *Graph) error {
	if g.root != r {
		return invariant(r.name, "remove from graph", ErrWrongOwner)
	}
	g.root = nil
	return nil
}

func (r *RootNode) validateLinks(g *Graph) error {
	for _, e := range g.Entities() {
		if err := e.validateLinks(g); err != nil {
			return err
		}
	}
	return nil
}

func (r *RootNode) destroy() {
	if r.timeSource != nil {
		r.timeSource.owner = nil
		r.timeSource = nil
	}
}

// TimeSourceNode — источник времени.
//
// Принадлежит корню (глобальные часы) или entity-узлу
// (собственное время объекта).
type TimeSourceNode struct {
	nodeBase
}

func (t *TimeSourceNode) addToGraph(g *Graph, obj *domain.Object) error {
	if obj == nil {
		if g.root == nil {
			return invariant(t.name, "add to graph", ErrNoRoot)
		}
		if g.root.timeSource != nil {
			return invariant(t.name, "add to graph", ErrWrongOwner)
		}
		g.root.timeSource = t
		t.owner = g.root
		return nil
	}

	ent, err := g.entity(obj)
	if err != nil {
		return err
	}
	if ent.timeSource != nil {
		return invariant(t.name, "add to graph", ErrWrongOwner)
	}
	ent.timeSource = t
	t.owner = ent
	return nil
}

func (t *TimeSourceNode) removeFromGraph(*Graph) error {
	switch owner := t.owner.(type) {
	case nil:
		return invariant(t.name, "remove from graph", ErrNotAttached)
	case *RootNode:
		if owner.timeSource != t {
			return invariant(t.name, "remove from graph", ErrWrongOwner)
		}
		owner.timeSource = nil
	case *EntityNode:
		if owner.timeSource != t {
			return invariant(t.name, "remove from graph", ErrWrongOwner)
		}
		owner.timeSource = nil
	default:
		return invariant(t.name, "remove from graph", ErrWrongOwner)
	}
	t.owner = nil
	return nil
}

// EntityNode — узел внешней сущности. Владеет компонентами.
type EntityNode struct {
	nodeBase

	obj        *domain.Object
	components map[NodeKind]Component
	timeSource *TimeSourceNode
}

// Object возвращает объект сцены, который представляет узел.
func (e *EntityNode) Object() *domain.Object {
	return e.obj
}

// Component возвращает компонент по типу или nil.
func (e *EntityNode) Component(kind NodeKind) Component {
	if c, ok := e.components[kind]; ok {
		return c
	}
	return nil
}

// Components возвращает компоненты, упорядоченные по типу.
func (e *EntityNode) Components() []Component {
	kinds := make([]NodeKind, 0, len(e.components))
	for k := range e.components {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	comps := make([]Component, 0, len(kinds))
	for _, k := range kinds {
		comps = append(comps, e.components[k])
	}
	return comps
}

// TimeSource возвращает собственный источник времени объекта или nil.
func (e *EntityNode) TimeSource() *TimeSourceNode {
	return e.timeSource
}

func (e *EntityNode) init(obj *domain.Object, _ string) error {
	if obj == nil {
		return ErrNilEntity
	}
	e.obj = obj
	e.name = obj.Name
	e.components = make(map[NodeKind]Component)
	return nil
}

func (e *EntityNode) addToGraph(g *Graph, _ *domain.Object) error {
	if g.root == nil {
		return invariant(e.name, "add to graph", ErrNoRoot)
	}
	if _, exists := g.entities[e.obj.ID]; exists {
		return invariant(e.name, "add to graph", ErrWrongOwner)
	}
	g.entities[e.obj.ID] = e
	e.owner = g.root
	return nil
}

func (e *EntityNode) removeFromGraph(g *Graph) error {
	if !e.attached() {
		return invariant(e.name, "remove from graph", ErrNotAttached)
	}
	if g.entities[e.obj.ID] != e {
		return invariant(e.name, "remove from graph", ErrWrongOwner)
	}
	delete(g.entities, e.obj.ID)
	e.owner = nil
	for _, c := range e.components {
		severComponent(g, c)
	}
	return nil
}

func (e *EntityNode) validateLinks(g *Graph) error {
	for _, c := range e.Components() {
		if err := c.validateLinks(g); err != nil {
			return err
		}
	}
	return nil
}

// copyFrom копирует компоненты через их фабрики. Связи не копируются.
func (e *EntityNode) copyFrom(cc *CopyContext, src Node) error {
	s := src.(*EntityNode)
	e.obj = s.obj
	e.components = make(map[NodeKind]Component, len(s.components))

	for kind, comp := range s.components {
		n, err := cc.Copy(comp)
		if err != nil {
			return err
		}
		c := n.(Component)
		c.base().owner = e
		e.components[kind] = c
	}
	return nil
}

func (e *EntityNode) destroy() {
	for kind, c := range e.components {
		c.base().owner = nil
		c.destroy()
		delete(e.components, kind)
	}
	if e.timeSource != nil {
		e.timeSource.owner = nil
		e.timeSource = nil
	}
}

// SubgraphNode — узел, встраивающий другой граф.
type SubgraphNode struct {
	nodeBase

	obj   *domain.Object
	graph *Graph
}

// Object возвращает объект-экземпляр подграфа или nil.
func (s *SubgraphNode) Object() *domain.Object {
	return s.obj
}

// Graph возвращает встроенный граф или nil.
func (s *SubgraphNode) Graph() *Graph {
	return s.graph
}

// SetGraph задаёт встроенный граф и флаги владения им.
// Допустимые флаги: FlagFirstRef, FlagShared.
func (s *SubgraphNode) SetGraph(emb *Graph, flags Flags) {
	s.graph = emb
	s.clearFlag(FlagFirstRef | FlagShared)
	s.setFlag(flags & (FlagFirstRef | FlagShared))
}

func (s *SubgraphNode) init(obj *domain.Object, _ string) error {
	s.obj = obj
	return nil
}

func (s *SubgraphNode) addToGraph(g *Graph, _ *domain.Object) error {
	if g.root == nil {
		return invariant(s.name, "add to graph", ErrNoRoot)
	}
	g.subgraphs[s] = struct{}{}
	s.owner = g.root
	return nil
}

func (s *SubgraphNode) removeFromGraph(g *Graph) error {
	if _, ok := g.subgraphs[s]; !ok {
		return invariant(s.name, "remove from graph", ErrWrongOwner)
	}
	delete(g.subgraphs, s)
	s.owner = nil
	return nil
}

func (s *SubgraphNode) copyFrom(*CopyContext, Node) error {
	return ErrCopyUnsupported
}

// destroy освобождает встроенный граф, если подграф держит первую
// ссылку на него или граф не разделяется.
func (s *SubgraphNode) destroy() {
	if s.graph != nil && (s.flags.Has(FlagFirstRef) || !s.flags.Has(FlagShared)) {
		s.graph.Free()
	}
	s.graph = nil
}
