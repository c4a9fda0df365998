package depsgraph

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/shaiso/depsgraph/internal/domain"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

// Имена стандартных функций вычисления позы.
const (
	CallbackPoseRebuild = "pose.rebuild"
	CallbackPoseInit    = "pose.init"
	CallbackPoseFlush   = "pose.flush"
)

// CallbackSource — источник функций вычисления по имени.
type CallbackSource interface {
	Get(name string) (Callback, error)
}

// Graph — граф зависимостей.
//
// Сборка и валидация однопоточные: граф не защищён мьютексом,
// каждый граф собирается одной горутиной.
type Graph struct {
	// ID — идентификатор графа.
	ID uuid.UUID

	// Name — имя графа (обычно имя сцены).
	Name string

	types     *Registry
	root      *RootNode
	entities  map[uuid.UUID]*EntityNode
	subgraphs map[*SubgraphNode]struct{}

	logger    *slog.Logger
	metrics   *telemetry.Metrics
	callbacks CallbackSource

	validated bool
	broken    bool
	freed     bool
}

// Option — опция создания графа.
type Option func(*Graph)

// WithName задаёт имя графа.
func WithName(name string) Option {
	return func(g *Graph) { g.Name = name }
}

// WithID задаёт идентификатор графа.
func WithID(id uuid.UUID) Option {
	return func(g *Graph) { g.ID = id }
}

// WithLogger задаёт логгер графа.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// WithMetrics подключает Prometheus метрики.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Graph) { g.metrics = m }
}

// WithCallbacks задаёт источник функций для операций позы.
func WithCallbacks(src CallbackSource) Option {
	return func(g *Graph) { g.callbacks = src }
}

// New создаёт граф с корневым узлом.
// Все используемые типы узлов должны быть зарегистрированы в types.
func New(types *Registry, opts ...Option) (*Graph, error) {
	if types == nil {
		return nil, fmt.Errorf("new graph: %w: registry is nil", ErrUnknownKind)
	}

	g := &Graph{
		ID:        uuid.New(),
		types:     types,
		entities:  make(map[uuid.UUID]*EntityNode),
		subgraphs: make(map[*SubgraphNode]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = telemetry.WithGraphID(g.logger, g.ID.String())

	f, err := types.Lookup(KindRoot)
	if err != nil {
		return nil, fmt.Errorf("new graph: %w", err)
	}
	root, err := f.Create(nil, "")
	if err != nil {
		return nil, fmt.Errorf("new graph: %w", err)
	}
	if err := root.addToGraph(g, nil); err != nil {
		return nil, fmt.Errorf("new graph: %w", err)
	}
	g.metrics.NodeCreated(KindRoot.String())

	return g, nil
}

// Types возвращает реестр типов графа.
func (g *Graph) Types() *Registry {
	return g.types
}

// Root возвращает корневой узел.
func (g *Graph) Root() *RootNode {
	return g.root
}

// GetOrCreate находит узел по ключу (obj, subdata, kind) или создаёт его.
//
// Созданный узел присоединяется к графу; при этом рекурсивно создаются
// недостающие владельцы (кость -> поза -> entity).
// Операции создаются через AddOperation.
func (g *Graph) GetOrCreate(obj *domain.Object, subdata string, kind NodeKind) (Node, error) {
	if g.freed {
		return nil, ErrGraphFreed
	}
	if kind.IsOperation() {
		return nil, fmt.Errorf("get or create %s: %w", kind, ErrOperationKey)
	}

	n, err := g.find(obj, subdata, kind)
	if err != nil {
		return nil, err
	}
	if n != nil {
		return n, nil
	}

	f, err := g.types.Lookup(kind)
	if err != nil {
		return nil, err
	}
	n, err = f.Create(obj, subdata)
	if err != nil {
		return nil, err
	}
	if err := n.addToGraph(g, obj); err != nil {
		return nil, err
	}

	g.metrics.NodeCreated(kind.String())
	g.logger.Debug("node created", "kind", kind.String(), "name", n.Name())

	return n, nil
}

// find ищет узел без создания. Отсутствие узла — (nil, nil).
func (g *Graph) find(obj *domain.Object, subdata string, kind NodeKind) (Node, error) {
	switch kind {
	case KindRoot:
		if g.root == nil {
			return nil, nil
		}
		return g.root, nil

	case KindTimeSource:
		if obj == nil {
			if g.root == nil || g.root.timeSource == nil {
				return nil, nil
			}
			return g.root.timeSource, nil
		}
		if ent := g.entities[obj.ID]; ent != nil && ent.timeSource != nil {
			return ent.timeSource, nil
		}
		return nil, nil

	case KindSubgraph:
		if obj == nil {
			return nil, nil
		}
		for sg := range g.subgraphs {
			if sg.obj != nil && sg.obj.ID == obj.ID {
				return sg, nil
			}
		}
		return nil, nil
	}

	if obj == nil {
		return nil, fmt.Errorf("get or create %s: %w", kind, ErrNilEntity)
	}
	ent := g.entities[obj.ID]

	switch {
	case kind == KindEntity:
		if ent == nil {
			return nil, nil
		}
		return ent, nil

	case kind == KindBone:
		if ent == nil {
			return nil, nil
		}
		pose, ok := ent.components[KindPose].(*PoseComponentNode)
		if !ok {
			return nil, nil
		}
		if b := pose.bones[subdata]; b != nil {
			return b, nil
		}
		return nil, nil

	case kind.IsComponent():
		if ent == nil {
			return nil, nil
		}
		if c, ok := ent.components[kind]; ok {
			return c, nil
		}
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// entity возвращает entity-узел объекта, создавая его при необходимости.
func (g *Graph) entity(obj *domain.Object) (*EntityNode, error) {
	n, err := g.GetOrCreate(obj, "", KindEntity)
	if err != nil {
		return nil, err
	}
	return n.(*EntityNode), nil
}

// AddOperation добавляет операцию в компонент объекта.
//
// Тип операции выводится из типа компонента. Для костей subdata —
// имя кости. Если операция с таким именем уже есть, возвращается она.
func (g *Graph) AddOperation(obj *domain.Object, subdata string, component NodeKind, opType OpType, cb Callback, name string) (*OperationNode, error) {
	opKind, ok := component.OperationKind()
	if !ok {
		return nil, fmt.Errorf("add operation %q: %w: %s has no operations", name, ErrUnknownKind, component)
	}
	return g.AddOperationNode(obj, subdata, opKind, opType, cb, name)
}

// AddOperationNode добавляет операцию заданного типа.
// Нужна для типов, разделяющих компонент (update, driver, rigid body).
func (g *Graph) AddOperationNode(obj *domain.Object, subdata string, opKind NodeKind, opType OpType, cb Callback, name string) (*OperationNode, error) {
	if g.freed {
		return nil, ErrGraphFreed
	}

	compKind, ok := opKind.OwnerKind()
	if !ok {
		return nil, fmt.Errorf("add operation %q: %w: %s", name, ErrUnknownKind, opKind)
	}
	compSubdata := ""
	if compKind == KindBone {
		compSubdata = subdata
	}

	existing, err := g.find(obj, compSubdata, compKind)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if op := existing.(Component).FindOperation(name); op != nil {
			return op, nil
		}
	}

	f, err := g.types.Lookup(opKind)
	if err != nil {
		return nil, err
	}
	n, err := f.Create(obj, subdata)
	if err != nil {
		return nil, err
	}

	op := n.(*OperationNode)
	op.name = name
	op.Type = opType
	op.Callback = cb

	if err := op.addToGraph(g, obj); err != nil {
		return nil, err
	}

	g.metrics.NodeCreated(opKind.String())
	g.logger.Debug("operation added", "path", op.Path(), "type", opType.String())

	return op, nil
}

// AddSubgraph создаёт узел подграфа, встраивающий emb.
func (g *Graph) AddSubgraph(obj *domain.Object, emb *Graph, flags Flags) (*SubgraphNode, error) {
	n, err := g.GetOrCreate(obj, "", KindSubgraph)
	if err != nil {
		return nil, err
	}
	sg := n.(*SubgraphNode)
	sg.SetGraph(emb, flags)
	return sg, nil
}

// Remove отсоединяет узел от графа.
//
// Дочерние узлы не освобождаются. Связи удаляемого узла разрываются
// на обоих концах.
func (g *Graph) Remove(n Node) error {
	if err := n.removeFromGraph(g); err != nil {
		return err
	}
	g.logger.Debug("node removed", "kind", n.Kind().String(), "name", n.Name())
	return nil
}

// Destroy освобождает отсоединённый узел через фабрику его типа.
func (g *Graph) Destroy(n Node) error {
	f, err := g.types.FactoryFor(n)
	if err != nil {
		return err
	}
	return f.Destroy(n)
}

// FindEntity возвращает entity-узел объекта или nil.
func (g *Graph) FindEntity(obj *domain.Object) *EntityNode {
	if obj == nil {
		return nil
	}
	return g.entities[obj.ID]
}

// Entities возвращает entity-узлы, упорядоченные по ID объекта.
func (g *Graph) Entities() []*EntityNode {
	ents := make([]*EntityNode, 0, len(g.entities))
	for _, e := range g.entities {
		ents = append(ents, e)
	}
	sort.Slice(ents, func(i, j int) bool {
		return ents[i].obj.ID.String() < ents[j].obj.ID.String()
	})
	return ents
}

// TimeSource возвращает глобальный источник времени или nil.
func (g *Graph) TimeSource() *TimeSourceNode {
	if g.root == nil {
		return nil
	}
	return g.root.timeSource
}

// Subgraphs возвращает подграфы, упорядоченные по имени объекта.
func (g *Graph) Subgraphs() []*SubgraphNode {
	sgs := make([]*SubgraphNode, 0, len(g.subgraphs))
	for sg := range g.subgraphs {
		sgs = append(sgs, sg)
	}
	sort.SliceStable(sgs, func(i, j int) bool {
		return subgraphKey(sgs[i]) < subgraphKey(sgs[j])
	})
	return sgs
}

func subgraphKey(sg *SubgraphNode) string {
	if sg.obj == nil {
		return ""
	}
	return sg.obj.Name
}

// Validated сообщает, завершена ли валидация связей.
func (g *Graph) Validated() bool {
	return g.validated
}

// Usable сообщает, можно ли передать граф вычислителю:
// связи проверены без ошибок и граф не освобождён.
func (g *Graph) Usable() bool {
	return g.validated && !g.broken && !g.freed
}

// Freed сообщает, освобождён ли граф.
func (g *Graph) Freed() bool {
	return g.freed
}

// Free освобождает все узлы графа. Повторный вызов ничего не делает.
func (g *Graph) Free() {
	if g.freed {
		return
	}
	g.freed = true

	for _, sg := range g.Subgraphs() {
		delete(g.subgraphs, sg)
		sg.owner = nil
		sg.destroy()
	}
	for id, e := range g.entities {
		delete(g.entities, id)
		e.owner = nil
		e.destroy()
	}
	if g.root != nil {
		g.root.destroy()
		g.root = nil
	}

	g.logger.Debug("graph freed")
}

// callback возвращает функцию из источника. Без источника — nil.
func (g *Graph) callback(name string) (Callback, error) {
	if g.callbacks == nil {
		return nil, nil
	}
	cb, err := g.callbacks.Get(name)
	if err != nil {
		return nil, fmt.Errorf("resolve callback %q: %w", name, err)
	}
	return cb, nil
}
