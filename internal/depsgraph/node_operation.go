package depsgraph

import (
	"context"
	"strings"

	"github.com/shaiso/depsgraph/internal/domain"
)

// Callback — функция вычисления операции. Граф её не вызывает.
type Callback func(ctx context.Context, item any)

// Стандартные имена операций.
const (
	OpNamePoseRebuild     = "Rebuild Pose"
	OpNamePoseInit        = "Init Pose Eval"
	OpNamePoseFlush       = "Flush Pose Eval"
	OpNameBoneTransforms  = "Bone Transforms"
	OpNameConstraintStack = "Constraint Stack"
)

// OperationNode — атомарная единица вычисления.
type OperationNode struct {
	nodeBase
	links

	// Type — тип операции для вычислителя.
	Type OpType

	// Callback — функция вычисления. Может быть nil.
	Callback Callback

	// Param — данные, передаваемые в Callback.
	Param any

	subdata string
}

// Component возвращает компонент-владелец или nil.
func (o *OperationNode) Component() Component {
	if c, ok := o.owner.(Component); ok {
		return c
	}
	return nil
}

// Path возвращает путь операции вида "Rig/bone:Hand/Bone Transforms".
func (o *OperationNode) Path() string {
	var sb strings.Builder

	comp := o.Component()
	if comp == nil {
		return o.name
	}
	if ent := comp.Entity(); ent != nil {
		sb.WriteString(ent.Name())
		sb.WriteByte('/')
	}
	sb.WriteString(comp.Kind().String())
	if comp.Kind() == KindBone {
		sb.WriteByte(':')
		sb.WriteString(comp.Name())
	}
	sb.WriteByte('/')
	sb.WriteString(o.name)
	return sb.String()
}

func (o *OperationNode) init(obj *domain.Object, subdata string) error {
	o.subdata = subdata
	if obj == nil {
		return nil
	}

	o.Param = obj
	if o.kind == KindOpBone {
		ch := obj.Pose.Channel(subdata)
		if ch == nil {
			return invariant(obj.Name+":"+subdata, "init bone operation", ErrUnknownBone)
		}
		o.Param = ch
	}
	return nil
}

// addToGraph кладёт операцию в компонент, создавая его при необходимости.
func (o *OperationNode) addToGraph(g *Graph, obj *domain.Object) error {
	compKind, ok := o.kind.OwnerKind()
	if !ok {
		return invariant(o.name, "add to graph", ErrUnknownKind)
	}

	subdata := ""
	if compKind == KindBone {
		subdata = o.subdata
	}

	n, err := g.GetOrCreate(obj, subdata, compKind)
	if err != nil {
		return err
	}
	comp := n.(Component)

	ops := comp.operationMap()
	if _, exists := ops[o.name]; exists {
		return invariant(o.name, "add to graph", ErrWrongOwner)
	}
	ops[o.name] = o
	o.owner = comp
	return nil
}

func (o *OperationNode) removeFromGraph(g *Graph) error {
	comp := o.Component()
	if comp == nil {
		return invariant(o.name, "remove from graph", ErrNotAttached)
	}

	ops := comp.operationMap()
	if ops[o.name] != o {
		return invariant(o.name, "remove from graph", ErrWrongOwner)
	}
	delete(ops, o.name)
	o.owner = nil
	g.sever(o)
	return nil
}

func (o *OperationNode) copyFrom(_ *CopyContext, src Node) error {
	s := src.(*OperationNode)
	o.Type = s.Type
	o.Callback = s.Callback
	o.Param = s.Param
	o.subdata = s.subdata
	return nil
}

func (o *OperationNode) destroy() {
	o.inlinks = nil
	o.outlinks = nil
	o.Callback = nil
	o.Param = nil
}
