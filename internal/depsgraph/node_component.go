package depsgraph

import (
	"sort"

	"github.com/shaiso/depsgraph/internal/domain"
)

// Component — узел-компонент entity. Владеет операциями.
type Component interface {
	Linkable

	// Entity возвращает entity-узел, которому принадлежит компонент, или nil.
	Entity() *EntityNode

	// FindOperation возвращает операцию по имени или nil.
	FindOperation(name string) *OperationNode

	// Operations возвращает операции, упорядоченные по имени.
	Operations() []*OperationNode

	operationMap() map[string]*OperationNode
}

// ComponentNode — компонент с набором операций.
type ComponentNode struct {
	nodeBase
	links

	operations map[string]*OperationNode
}

// Entity возвращает entity-узел, которому принадлежит компонент.
func (c *ComponentNode) Entity() *EntityNode {
	return entityOf(c.owner)
}

// FindOperation возвращает операцию по имени или nil.
func (c *ComponentNode) FindOperation(name string) *OperationNode {
	return c.operations[name]
}

// Operations возвращает операции, упорядоченные по имени.
func (c *ComponentNode) Operations() []*OperationNode {
	names := make([]string, 0, len(c.operations))
	for name := range c.operations {
		names = append(names, name)
	}
	sort.Strings(names)

	ops := make([]*OperationNode, 0, len(names))
	for _, name := range names {
		ops = append(ops, c.operations[name])
	}
	return ops
}

func (c *ComponentNode) operationMap() map[string]*OperationNode {
	return c.operations
}

func (c *ComponentNode) init(*domain.Object, string) error {
	c.operations = make(map[string]*OperationNode)
	return nil
}

func (c *ComponentNode) addToGraph(g *Graph, obj *domain.Object) error {
	return attachComponent(g, obj, c)
}

func (c *ComponentNode) removeFromGraph(g *Graph) error {
	return detachComponent(g, c)
}

func (c *ComponentNode) copyFrom(cc *CopyContext, src Node) error {
	s := src.(Component)
	c.operations = make(map[string]*OperationNode, len(s.operationMap()))
	return copyOperations(cc, c, s)
}

func (c *ComponentNode) destroy() {
	for name, op := range c.operations {
		op.owner = nil
		op.destroy()
		delete(c.operations, name)
	}
}

// attachComponent кладёт компонент в entity объекта, создавая entity при необходимости.
func attachComponent(g *Graph, obj *domain.Object, c Component) error {
	ent, err := g.entity(obj)
	if err != nil {
		return err
	}
	if _, exists := ent.components[c.Kind()]; exists {
		return invariant(c.Name(), "add to graph", ErrWrongOwner)
	}
	ent.components[c.Kind()] = c
	c.base().owner = ent
	return nil
}

// detachComponent убирает компонент из entity и разрывает его связи.
// Операции остаются в компоненте, их связи тоже разрываются.
func detachComponent(g *Graph, c Component) error {
	ent, ok := c.Owner().(*EntityNode)
	if !ok {
		return invariant(c.Name(), "remove from graph", ErrNotAttached)
	}
	if ent.components[c.Kind()] != c {
		return invariant(c.Name(), "remove from graph", ErrWrongOwner)
	}
	delete(ent.components, c.Kind())
	c.base().owner = nil
	severComponent(g, c)
	return nil
}

// severComponent разрывает связи компонента и всего, чем он владеет:
// операций, а для позы ещё костей и их операций.
func severComponent(g *Graph, c Component) {
	g.sever(c)
	for _, op := range c.operationMap() {
		g.sever(op)
	}
	if p, ok := c.(*PoseComponentNode); ok {
		for _, b := range p.bones {
			severComponent(g, b)
		}
	}
}

// copyOperations копирует операции src в dst. Связи не копируются.
func copyOperations(cc *CopyContext, dst, src Component) error {
	ops := dst.operationMap()
	for name, op := range src.operationMap() {
		n, err := cc.Copy(op)
		if err != nil {
			return err
		}
		cop := n.(*OperationNode)
		cop.owner = dst
		ops[name] = cop
	}
	return nil
}

// PoseComponentNode — компонент позы арматуры. Владеет костями.
type PoseComponentNode struct {
	ComponentNode

	bones map[string]*BoneComponentNode
}

// Bone возвращает компонент кости по имени или nil.
func (p *PoseComponentNode) Bone(name string) *BoneComponentNode {
	return p.bones[name]
}

// Bones возвращает кости, упорядоченные по имени.
func (p *PoseComponentNode) Bones() []*BoneComponentNode {
	names := make([]string, 0, len(p.bones))
	for name := range p.bones {
		names = append(names, name)
	}
	sort.Strings(names)

	bones := make([]*BoneComponentNode, 0, len(names))
	for _, name := range names {
		bones = append(bones, p.bones[name])
	}
	return bones
}

func (p *PoseComponentNode) init(obj *domain.Object, subdata string) error {
	p.bones = make(map[string]*BoneComponentNode)
	return p.ComponentNode.init(obj, subdata)
}

func (p *PoseComponentNode) addToGraph(g *Graph, obj *domain.Object) error {
	return attachComponent(g, obj, p)
}

func (p *PoseComponentNode) removeFromGraph(g *Graph) error {
	return detachComponent(g, p)
}

func (p *PoseComponentNode) copyFrom(cc *CopyContext, src Node) error {
	s := src.(*PoseComponentNode)
	p.operations = make(map[string]*OperationNode, len(s.operations))
	if err := copyOperations(cc, p, s); err != nil {
		return err
	}

	p.bones = make(map[string]*BoneComponentNode, len(s.bones))
	for name, bone := range s.bones {
		n, err := cc.Copy(bone)
		if err != nil {
			return err
		}
		b := n.(*BoneComponentNode)
		b.owner = p
		p.bones[name] = b
	}
	return nil
}

func (p *PoseComponentNode) destroy() {
	for name, b := range p.bones {
		b.owner = nil
		b.destroy()
		delete(p.bones, name)
	}
	p.ComponentNode.destroy()
}

// BoneComponentNode — компонент одной кости позы.
type BoneComponentNode struct {
	ComponentNode

	channel *domain.Channel
}

// Channel возвращает канал кости в позе объекта.
func (b *BoneComponentNode) Channel() *domain.Channel {
	return b.channel
}

// Pose возвращает компонент позы, которому принадлежит кость, или nil.
func (b *BoneComponentNode) Pose() *PoseComponentNode {
	if p, ok := b.owner.(*PoseComponentNode); ok {
		return p
	}
	return nil
}

func (b *BoneComponentNode) init(obj *domain.Object, subdata string) error {
	if obj == nil {
		return ErrNilEntity
	}
	ch := obj.Pose.Channel(subdata)
	if ch == nil {
		return invariant(obj.Name+":"+subdata, "init bone", ErrUnknownBone)
	}
	b.channel = ch
	b.name = subdata
	return b.ComponentNode.init(obj, subdata)
}

func (b *BoneComponentNode) addToGraph(g *Graph, obj *domain.Object) error {
	n, err := g.GetOrCreate(obj, "", KindPose)
	if err != nil {
		return err
	}
	pose := n.(*PoseComponentNode)
	if _, exists := pose.bones[b.name]; exists {
		return invariant(b.name, "add to graph", ErrWrongOwner)
	}
	pose.bones[b.name] = b
	b.owner = pose
	return nil
}

func (b *BoneComponentNode) removeFromGraph(g *Graph) error {
	pose := b.Pose()
	if pose == nil {
		return invariant(b.name, "remove from graph", ErrNotAttached)
	}
	if pose.bones[b.name] != b {
		return invariant(b.name, "remove from graph", ErrWrongOwner)
	}
	delete(pose.bones, b.name)
	b.owner = nil
	severComponent(g, b)
	return nil
}

func (b *BoneComponentNode) copyFrom(cc *CopyContext, src Node) error {
	s := src.(*BoneComponentNode)
	b.channel = s.channel
	b.operations = make(map[string]*OperationNode, len(s.operations))
	return copyOperations(cc, b, s)
}
