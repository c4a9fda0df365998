package depsgraph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/depsgraph/internal/domain"
)

// Factory — фабрика узлов одного типа.
type Factory interface {
	// Kind возвращает тип узлов, которые создаёт фабрика.
	Kind() NodeKind

	// TypeName возвращает читаемое имя типа.
	TypeName() string

	// Create создаёт узел и инициализирует его из объекта и subdata.
	// Узел не присоединён к графу.
	Create(obj *domain.Object, subdata string) (Node, error)

	// Copy создаёт отсоединённую копию src.
	Copy(cc *CopyContext, src Node) (Node, error)

	// Destroy освобождает отсоединённый узел.
	Destroy(n Node) error
}

// nodePtr — указатель на структуру узла.
type nodePtr[T any] interface {
	*T
	Node
}

// typeInfo — обобщённая фабрика для всех типов узлов.
type typeInfo[T any, P nodePtr[T]] struct {
	kind NodeKind
	name string
}

// NewFactory создаёт фабрику узлов типа T.
func NewFactory[T any, P nodePtr[T]](kind NodeKind, typeName string) Factory {
	return &typeInfo[T, P]{kind: kind, name: typeName}
}

func (ti *typeInfo[T, P]) Kind() NodeKind   { return ti.kind }
func (ti *typeInfo[T, P]) TypeName() string { return ti.name }

func (ti *typeInfo[T, P]) Create(obj *domain.Object, subdata string) (Node, error) {
	n := P(new(T))
	b := n.base()
	b.kind = ti.kind
	b.name = ti.name

	if err := n.init(obj, subdata); err != nil {
		return nil, fmt.Errorf("create %s: %w", ti.kind, err)
	}
	return n, nil
}

func (ti *typeInfo[T, P]) Copy(cc *CopyContext, src Node) (Node, error) {
	if src.Kind() != ti.kind {
		return nil, fmt.Errorf("%w: factory %s cannot copy %s", ErrWrongOwner, ti.kind, src.Kind())
	}

	n := P(new(T))
	*n.base() = nodeBase{
		kind:  src.Kind(),
		name:  src.Name(),
		flags: src.Flags(),
	}

	if err := n.copyFrom(cc, src); err != nil {
		return nil, fmt.Errorf("copy %s %q: %w", ti.kind, src.Name(), err)
	}
	cc.record(src, n)
	return n, nil
}

func (ti *typeInfo[T, P]) Destroy(n Node) error {
	if n.Owner() != nil {
		return invariant(n.Name(), "destroy", ErrNodeAttached)
	}
	n.destroy()
	return nil
}

// Registry — реестр фабрик узлов.
//
// Все типы, используемые графом, регистрируются до начала сборки.
// Реестр разделяется графами и потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	factories map[NodeKind]Factory
	closed    bool
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[NodeKind]Factory),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными типами узлов.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, f := range standardFactories() {
		// Реестр пустой, дубликатов быть не может
		_ = r.Register(f)
	}

	return r
}

func standardFactories() []Factory {
	return []Factory{
		NewFactory[RootNode](KindRoot, "Root DepsNode"),
		NewFactory[TimeSourceNode](KindTimeSource, "Time Source"),
		NewFactory[EntityNode](KindEntity, "ID Node"),
		NewFactory[SubgraphNode](KindSubgraph, "Subgraph Node"),

		NewFactory[ComponentNode](KindParameters, "Parameters Component"),
		NewFactory[ComponentNode](KindProxy, "Proxy Component"),
		NewFactory[ComponentNode](KindAnimation, "Animation Component"),
		NewFactory[ComponentNode](KindTransform, "Transform Component"),
		NewFactory[ComponentNode](KindGeometry, "Geometry Component"),
		NewFactory[ComponentNode](KindSequencer, "Sequencer Component"),
		NewFactory[ComponentNode](KindParticles, "Particles Component"),
		NewFactory[PoseComponentNode](KindPose, "Pose Eval Component"),
		NewFactory[BoneComponentNode](KindBone, "Bone Component"),

		NewFactory[OperationNode](KindOpParameters, "Parameters Operation"),
		NewFactory[OperationNode](KindOpProxy, "Proxy Operation"),
		NewFactory[OperationNode](KindOpAnimation, "Animation Operation"),
		NewFactory[OperationNode](KindOpTransform, "Transform Operation"),
		NewFactory[OperationNode](KindOpGeometry, "Geometry Operation"),
		NewFactory[OperationNode](KindOpSequencer, "Sequencer Operation"),
		NewFactory[OperationNode](KindOpUpdate, "RNA Update Operation"),
		NewFactory[OperationNode](KindOpDriver, "Driver Operation"),
		NewFactory[OperationNode](KindOpPose, "Pose Operation"),
		NewFactory[OperationNode](KindOpBone, "Bone Operation"),
		NewFactory[OperationNode](KindOpParticles, "Particles Operation"),
		NewFactory[OperationNode](KindOpRigidBody, "RigidBody Operation"),
	}
}

// Register регистрирует фабрику.
// Возвращает ErrDuplicateKind, если тип уже зарегистрирован.
func (r *Registry) Register(f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.factories[f.Kind()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, f.Kind())
	}

	r.factories[f.Kind()] = f
	return nil
}

// Lookup возвращает фабрику по типу узла.
// Возвращает ErrUnknownKind, если тип не зарегистрирован.
func (r *Registry) Lookup(kind NodeKind) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	f, exists := r.factories[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	return f, nil
}

// FactoryFor возвращает фабрику, создавшую узел.
func (r *Registry) FactoryFor(n Node) (Factory, error) {
	return r.Lookup(n.Kind())
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(kind NodeKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[kind]
	return exists && !r.closed
}

// Kinds возвращает зарегистрированные типы по возрастанию.
func (r *Registry) Kinds() []NodeKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]NodeKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Count возвращает количество зарегистрированных типов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Shutdown очищает реестр. Последующие Lookup и Register
// возвращают ErrRegistryClosed.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[NodeKind]Factory)
	r.closed = true
}
