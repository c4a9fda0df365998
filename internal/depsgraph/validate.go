package depsgraph

import (
	"fmt"
	"slices"
	"time"
)

// Метки связей, которые добавляет валидация.
const (
	LabelPoseRebuildInit = "[Pose Rebuild -> Pose Init] DepsRel"
	LabelPoseInitFlush   = "[Pose Init -> Pose Cleanup] DepsRel"
	LabelBoneSource      = "PoseEval Source-Bone Link"
	LabelBoneSink        = "PoseEval Sink-Bone Link"
)

// ValidateLinks превращает объявленные связи уровня компонентов
// в точные связи между операциями.
//
// Обход детерминирован: entity по ID, компоненты по типу, кости по имени.
// Выполняется один раз. При ошибке граф помечается сломанным
// и Usable() возвращает false; частичные изменения не откатываются.
func (g *Graph) ValidateLinks() error {
	switch {
	case g.freed:
		return ErrGraphFreed
	case g.broken:
		return ErrGraphBroken
	case g.validated:
		return invariant(g.Name, "validate links", ErrAlreadyValidated)
	case g.root == nil:
		return invariant(g.Name, "validate links", ErrNoRoot)
	}

	start := time.Now()
	err := g.root.validateLinks(g)
	g.metrics.ValidationDone(time.Since(start), err)

	if err != nil {
		g.broken = true
		g.logger.Error("link validation failed", "error", err)
		return fmt.Errorf("validate links: %w", err)
	}

	g.validated = true
	g.logger.Debug("links validated",
		"entities", len(g.entities),
		"duration", time.Since(start),
	)
	return nil
}

// validateLinks достраивает служебные операции позы и проверяет кости.
func (p *PoseComponentNode) validateLinks(g *Graph) error {
	if len(p.bones) > 0 || len(p.operations) > 0 {
		if err := p.ensureEvalOperations(g); err != nil {
			return err
		}
	}

	for _, b := range p.Bones() {
		if err := b.validateLinks(g); err != nil {
			return err
		}
	}
	return nil
}

// ensureEvalOperations создаёт Rebuild -> Init -> Flush.
func (p *PoseComponentNode) ensureEvalOperations(g *Graph) error {
	ent := p.Entity()
	if ent == nil {
		return invariant(p.name, "validate links", ErrNotAttached)
	}
	obj := ent.Object()

	steps := []struct {
		name     string
		opType   OpType
		callback string
	}{
		{OpNamePoseRebuild, OpRebuild, CallbackPoseRebuild},
		{OpNamePoseInit, OpInit, CallbackPoseInit},
		{OpNamePoseFlush, OpPost, CallbackPoseFlush},
	}

	ops := make([]*OperationNode, 0, len(steps))
	for _, s := range steps {
		cb, err := g.callback(s.callback)
		if err != nil {
			return err
		}
		op, err := g.AddOperation(obj, "", KindPose, s.opType, cb, s.name)
		if err != nil {
			return err
		}
		op.Param = obj.Pose
		ops = append(ops, op)
	}

	if _, err := g.AddRelation(ops[0], ops[1], RelationComponentOrder, LabelPoseRebuildInit); err != nil {
		return err
	}
	if _, err := g.AddRelation(ops[1], ops[2], RelationComponentOrder, LabelPoseInitFlush); err != nil {
		return err
	}
	return nil
}

// validateLinks вставляет кость в цепочку вычисления позы.
//
// Объявленные входящие связи кости переносятся на Bone Transforms.
// Исходящие выходят из конечной операции кости, а если у кости есть
// связь с IK-решателем, все остальные выходят из решателя.
func (b *BoneComponentNode) validateLinks(g *Graph) error {
	const op = "validate links"

	pose := b.Pose()
	if pose == nil {
		return invariant(b.name, op, ErrNotAttached)
	}

	btrans := b.FindOperation(OpNameBoneTransforms)
	if btrans == nil {
		return invariant(b.name, op, fmt.Errorf("%w: %q", ErrMissingOperation, OpNameBoneTransforms))
	}
	poseInit := pose.FindOperation(OpNamePoseInit)
	if poseInit == nil {
		return invariant(b.name, op, fmt.Errorf("%w: %q", ErrMissingOperation, OpNamePoseInit))
	}
	poseFlush := pose.FindOperation(OpNamePoseFlush)
	if poseFlush == nil {
		return invariant(b.name, op, fmt.Errorf("%w: %q", ErrMissingOperation, OpNamePoseFlush))
	}

	// Корневые кости начинают вычисление после инициализации позы
	if b.channel.Parent == nil {
		if _, err := g.AddRelation(poseInit, btrans, RelationOperation, LabelBoneSource); err != nil {
			return err
		}
	}

	for _, rel := range slices.Clone(b.inlinks) {
		if err := g.retarget(rel, btrans); err != nil {
			return err
		}
	}

	finalOp := btrans
	if b.channel.HasConstraints() {
		finalOp = b.FindOperation(OpNameConstraintStack)
		if finalOp == nil {
			return invariant(b.name, op, fmt.Errorf("%w: %q", ErrMissingOperation, OpNameConstraintStack))
		}
	}

	var ikOp Linkable
	for _, rel := range b.outlinks {
		if rel.Kind == RelationIKSolverUpdate {
			ikOp = rel.To
			break
		}
	}

	for _, rel := range slices.Clone(b.outlinks) {
		from := Linkable(finalOp)
		if ikOp != nil && rel.To != ikOp {
			from = ikOp
		}
		if err := g.resource(rel, from); err != nil {
			return err
		}
	}

	if _, err := g.AddRelation(finalOp, poseFlush, RelationOperation, LabelBoneSink); err != nil {
		return err
	}
	return nil
}
