package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/domain"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

// Имена функций, которые сборка назначает операциям костей.
const (
	CallbackBoneEval        = "bone.eval"
	CallbackConstraintsEval = "constraints.eval"
)

// BuildOptions — параметры сборки графа.
type BuildOptions struct {
	// Types — реестр типов узлов. nil — depsgraph.DefaultRegistry().
	Types *depsgraph.Registry

	// Callbacks — источник функций вычисления. nil — операции без функций.
	Callbacks depsgraph.CallbackSource

	// Logger — логгер. nil — логгер из контекста.
	Logger *slog.Logger

	// Metrics — метрики сборки. Может быть nil.
	Metrics *telemetry.Metrics
}

// Scene — собранная сцена.
type Scene struct {
	// Spec — исходное описание.
	Spec *domain.SceneSpec

	// Graph — граф с проверенными связями.
	Graph *depsgraph.Graph

	// Objects — объекты сцены по имени.
	Objects map[string]*domain.Object
}

// builder — состояние одной сборки.
type builder struct {
	spec    *domain.SceneSpec
	graph   *depsgraph.Graph
	objects map[string]*domain.Object
	cbs     depsgraph.CallbackSource
	logger  *slog.Logger
}

// Build собирает граф по описанию сцены.
//
// Первый проход создаёт объекты, кости (с Bone Transforms и, при наличии
// ограничений, Constraint Stack) и объявленные операции. Второй проход
// добавляет объявленные связи. Затем выполняется ValidateLinks.
func Build(ctx context.Context, spec *domain.SceneSpec, opts BuildOptions) (*Scene, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if opts.Callbacks != nil {
		if err := ValidateCallbacks(spec, opts.Callbacks); err != nil {
			return nil, err
		}
	}

	types := opts.Types
	if types == nil {
		types = depsgraph.DefaultRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.FromContext(ctx)
	}
	logger = telemetry.WithScene(logger, spec.Name)

	graphOpts := []depsgraph.Option{
		depsgraph.WithName(spec.Name),
		depsgraph.WithLogger(logger),
		depsgraph.WithMetrics(opts.Metrics),
	}
	if opts.Callbacks != nil {
		graphOpts = append(graphOpts, depsgraph.WithCallbacks(opts.Callbacks))
	}

	g, err := depsgraph.New(types, graphOpts...)
	if err != nil {
		return nil, err
	}

	b := &builder{
		spec:    spec,
		graph:   g,
		objects: make(map[string]*domain.Object, len(spec.Objects)),
		cbs:     opts.Callbacks,
		logger:  logger,
	}

	// Первый проход: создаём все узлы
	for i := range spec.Objects {
		if err := b.addObject(&spec.Objects[i]); err != nil {
			g.Free()
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		g.Free()
		return nil, err
	}

	// Второй проход: объявленные связи
	for i, rel := range spec.Relations {
		if err := b.addRelation(i, rel); err != nil {
			g.Free()
			return nil, err
		}
	}

	if err := g.ValidateLinks(); err != nil {
		g.Free()
		return nil, err
	}

	logger.Info("scene built",
		"graph_id", g.ID.String(),
		"objects", len(b.objects),
		"relations", len(g.Relations()),
	)

	return &Scene{Spec: spec, Graph: g, Objects: b.objects}, nil
}

// ValidateCallbacks проверяет, что все функции из описания зарегистрированы.
func ValidateCallbacks(spec *domain.SceneSpec, src depsgraph.CallbackSource) error {
	required := []string{
		depsgraph.CallbackPoseRebuild,
		depsgraph.CallbackPoseInit,
		depsgraph.CallbackPoseFlush,
		CallbackBoneEval,
		CallbackConstraintsEval,
	}
	for _, name := range required {
		if _, err := src.Get(name); err != nil {
			return NewValidationError("", "callbacks",
				fmt.Sprintf("standard callback %s is not registered", name), ErrUnknownCallback)
		}
	}

	for _, obj := range spec.Objects {
		for _, op := range obj.Operations {
			if op.Callback == "" {
				continue
			}
			if _, err := src.Get(op.Callback); err != nil {
				return NewValidationError(obj.Name, "operations",
					fmt.Sprintf("operation %s: callback %s is not registered", op.Name, op.Callback), ErrUnknownCallback)
			}
		}
	}
	return nil
}

// callback возвращает функцию по имени. Без источника или имени — nil.
func (b *builder) callback(name string) (depsgraph.Callback, error) {
	if b.cbs == nil || name == "" {
		return nil, nil
	}
	return b.cbs.Get(name)
}

// addObject создаёт entity, кости и операции объекта.
func (b *builder) addObject(def *domain.ObjectDef) error {
	obj := def.Object()
	b.objects[def.Name] = obj

	if _, err := b.graph.GetOrCreate(obj, "", depsgraph.KindEntity); err != nil {
		return fmt.Errorf("object %s: %w", def.Name, err)
	}
	if def.TimeSource {
		if _, err := b.graph.GetOrCreate(obj, "", depsgraph.KindTimeSource); err != nil {
			return fmt.Errorf("object %s: time source: %w", def.Name, err)
		}
	}

	for _, bone := range def.Bones {
		if err := b.addBone(obj, bone); err != nil {
			return fmt.Errorf("object %s: bone %s: %w", def.Name, bone.Name, err)
		}
	}

	for _, op := range def.Operations {
		if err := b.addOperation(obj, op); err != nil {
			return fmt.Errorf("object %s: operation %s: %w", def.Name, op.Name, err)
		}
	}

	b.logger.Debug("object added", "object", def.Name, "bones", len(def.Bones), "operations", len(def.Operations))
	return nil
}

// addBone создаёт кость и её стандартные операции.
func (b *builder) addBone(obj *domain.Object, bone domain.BoneDef) error {
	if _, err := b.graph.GetOrCreate(obj, bone.Name, depsgraph.KindBone); err != nil {
		return err
	}

	cb, err := b.callback(CallbackBoneEval)
	if err != nil {
		return err
	}
	if _, err := b.graph.AddOperation(obj, bone.Name, depsgraph.KindBone, depsgraph.OpExec, cb, depsgraph.OpNameBoneTransforms); err != nil {
		return err
	}

	if len(bone.Constraints) == 0 {
		return nil
	}

	cb, err = b.callback(CallbackConstraintsEval)
	if err != nil {
		return err
	}
	_, err = b.graph.AddOperation(obj, bone.Name, depsgraph.KindBone, depsgraph.OpExec, cb, depsgraph.OpNameConstraintStack)
	return err
}

// addOperation создаёт объявленную операцию.
func (b *builder) addOperation(obj *domain.Object, def domain.OperationDef) error {
	comp, err := depsgraph.ParseKind(def.Component)
	if err != nil {
		return err
	}

	kind, _ := comp.OperationKind()
	if def.Kind != "" {
		if kind, err = depsgraph.ParseKind(def.Kind); err != nil {
			return err
		}
	}

	opType, err := depsgraph.ParseOpType(def.Type)
	if err != nil {
		return err
	}

	cb, err := b.callback(def.Callback)
	if err != nil {
		return err
	}

	_, err = b.graph.AddOperationNode(obj, def.Bone, kind, opType, cb, def.Name)
	return err
}

// addRelation добавляет объявленную связь.
func (b *builder) addRelation(i int, def domain.RelationDef) error {
	from, err := b.resolve(def.From)
	if err != nil {
		return fmt.Errorf("relations[%d]: %w", i, err)
	}
	to, err := b.resolve(def.To)
	if err != nil {
		return fmt.Errorf("relations[%d]: %w", i, err)
	}

	kind, err := depsgraph.ParseRelationKind(def.Kind)
	if err != nil {
		return fmt.Errorf("relations[%d]: %w", i, err)
	}

	if _, err := b.graph.AddRelation(from, to, kind, def.Label); err != nil {
		return fmt.Errorf("relations[%d]: %w", i, err)
	}
	return nil
}

// resolve находит узел графа по ссылке.
func (b *builder) resolve(raw string) (depsgraph.Linkable, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := b.objects[ref.Object]
	if !ok {
		return nil, fmt.Errorf("%w: object %q", ErrUnknownRef, ref.Object)
	}
	ent := b.graph.FindEntity(obj)
	if ent == nil {
		return nil, fmt.Errorf("%w: object %q", ErrUnknownRef, ref.Object)
	}

	var comp depsgraph.Component
	if ref.Component == depsgraph.KindBone {
		pose, ok := ent.Component(depsgraph.KindPose).(*depsgraph.PoseComponentNode)
		if !ok || pose.Bone(ref.Bone) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
		}
		bone := pose.Bone(ref.Bone)
		if ref.Operation == "" {
			return bone, nil
		}
		comp = bone
	} else {
		comp = ent.Component(ref.Component)
	}

	if comp == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	op := comp.FindOperation(ref.Operation)
	if op == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRef, ref)
	}
	return op, nil
}
