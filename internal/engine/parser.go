package engine

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/domain"
)

// SupportedVersions — поддерживаемые версии формата описания сцены.
const SupportedVersions = "^1.0.0"

var supportedVersions = mustParseConstraint(SupportedVersions)

func mustParseConstraint(raw string) *semver.Constraints {
	c, err := semver.NewConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Допустимые типы объектов.
var validObjectTypes = map[domain.ObjectType]bool{
	domain.ObjectEmpty:    true,
	domain.ObjectMesh:     true,
	domain.ObjectArmature: true,
	domain.ObjectCurve:    true,
	domain.ObjectLattice:  true,
	domain.ObjectCamera:   true,
}

// Validate выполняет полную валидацию SceneSpec.
//
// Проверяет:
// - Версию формата
// - Наличие и уникальность объектов
// - Кости: уникальность, существование родителей, отсутствие циклов
// - Операции: компонент, тип узла, тип операции, кость
// - Связи: грамматику ссылок, существование концов, отсутствие петель после переноса на операции костей
func Validate(spec *domain.SceneSpec) error {
	if spec == nil || len(spec.Objects) == 0 {
		return ErrEmptyScene
	}

	if err := validateVersion(spec.Version); err != nil {
		return err
	}

	objects := make(map[string]*domain.ObjectDef, len(spec.Objects))
	for i := range spec.Objects {
		obj := &spec.Objects[i]

		if err := ValidateObject(obj, objects); err != nil {
			return err
		}
	}

	ik := ikTargets(spec.Relations)
	for i, rel := range spec.Relations {
		if err := validateRelation(i, rel, objects, ik); err != nil {
			return err
		}
	}

	return nil
}

// validateVersion проверяет версию формата. Пустая версия допустима.
func validateVersion(raw string) error {
	if raw == "" {
		return nil
	}

	v, err := semver.NewVersion(raw)
	if err != nil {
		return NewValidationError("", "version",
			fmt.Sprintf("invalid version %q: %v", raw, err), ErrInvalidVersion)
	}
	if !supportedVersions.Check(v) {
		return NewValidationError("", "version",
			fmt.Sprintf("version %s does not satisfy %s", v, SupportedVersions), ErrUnsupportedVersion)
	}
	return nil
}

// ValidateObject валидирует один объект.
// objects — уже встреченные объекты (для проверки уникальности).
func ValidateObject(obj *domain.ObjectDef, objects map[string]*domain.ObjectDef) error {
	if obj.Name == "" {
		return NewValidationError("", "name", "object has empty name", ErrEmptyName)
	}
	if _, exists := objects[obj.Name]; exists {
		return NewValidationError(obj.Name, "name",
			fmt.Sprintf("duplicate object name: %s", obj.Name), ErrDuplicateName)
	}
	objects[obj.Name] = obj

	typ := domain.ObjectType(obj.Type)
	if typ == "" {
		typ = domain.ObjectEmpty
	}
	if !validObjectTypes[typ] {
		return NewValidationError(obj.Name, "type",
			fmt.Sprintf("unknown object type: %s", obj.Type), ErrUnknownObjectType)
	}

	if err := validateBones(obj); err != nil {
		return err
	}

	ops := make(map[string]bool, len(obj.Operations))
	for _, op := range obj.Operations {
		if err := validateOperation(obj, op, ops); err != nil {
			return err
		}
	}

	return nil
}

// validateBones проверяет имена и родителей костей.
func validateBones(obj *domain.ObjectDef) error {
	parents := make(map[string]string, len(obj.Bones))
	for _, b := range obj.Bones {
		if b.Name == "" {
			return NewValidationError(obj.Name, "bones", "bone has empty name", ErrEmptyName)
		}
		if _, exists := parents[b.Name]; exists {
			return NewValidationError(obj.Name, "bones",
				fmt.Sprintf("duplicate bone: %s", b.Name), ErrDuplicateName)
		}
		parents[b.Name] = b.Parent
	}

	for _, b := range obj.Bones {
		if b.Parent == "" {
			continue
		}
		if _, exists := parents[b.Parent]; !exists {
			return NewValidationError(obj.Name, "bones",
				fmt.Sprintf("bone %s: parent %s not found", b.Name, b.Parent), ErrUnknownParent)
		}

		// Подъём по родителям не должен вернуться к исходной кости
		seen := map[string]bool{b.Name: true}
		for p := b.Parent; p != ""; p = parents[p] {
			if seen[p] {
				return NewValidationError(obj.Name, "bones",
					fmt.Sprintf("bone %s: parent chain loops at %s", b.Name, p), ErrBoneCycle)
			}
			seen[p] = true
		}
	}

	return nil
}

// validateOperation проверяет операцию объекта.
// ops — ключи уже встреченных операций "<component>:<bone>/<name>".
func validateOperation(obj *domain.ObjectDef, op domain.OperationDef, ops map[string]bool) error {
	if op.Name == "" {
		return NewValidationError(obj.Name, "operations", "operation has empty name", ErrEmptyName)
	}

	comp, err := depsgraph.ParseKind(op.Component)
	if err != nil || !comp.IsComponent() {
		return NewValidationError(obj.Name, "operations",
			fmt.Sprintf("operation %s: unknown component %q", op.Name, op.Component), ErrUnknownComponent)
	}

	if comp == depsgraph.KindBone {
		if !hasBone(obj, op.Bone) {
			return NewValidationError(obj.Name, "operations",
				fmt.Sprintf("operation %s: bone %q not found", op.Name, op.Bone), ErrMissingBone)
		}
	} else if op.Bone != "" {
		return NewValidationError(obj.Name, "operations",
			fmt.Sprintf("operation %s: bone is only valid for bone components", op.Name), ErrUnknownComponent)
	}

	if op.Kind != "" {
		kind, err := depsgraph.ParseKind(op.Kind)
		if err != nil || !kind.IsOperation() {
			return NewValidationError(obj.Name, "operations",
				fmt.Sprintf("operation %s: unknown kind %q", op.Name, op.Kind), ErrUnknownOperationKind)
		}
		if owner, _ := kind.OwnerKind(); owner != comp {
			return NewValidationError(obj.Name, "operations",
				fmt.Sprintf("operation %s: kind %s belongs to %s, not %s", op.Name, kind, owner, comp), ErrUnknownOperationKind)
		}
	}

	if _, err := depsgraph.ParseOpType(op.Type); err != nil {
		return NewValidationError(obj.Name, "operations",
			fmt.Sprintf("operation %s: %v", op.Name, err), err)
	}

	key := comp.String() + ":" + op.Bone + "/" + op.Name
	if ops[key] {
		return NewValidationError(obj.Name, "operations",
			fmt.Sprintf("duplicate operation: %s", op.Name), ErrDuplicateName)
	}
	ops[key] = true

	return nil
}

// validateRelation проверяет концы связи.
func validateRelation(i int, rel domain.RelationDef, objects map[string]*domain.ObjectDef, ik map[Ref]Ref) error {
	field := fmt.Sprintf("relations[%d]", i)

	from, err := ParseRef(rel.From)
	if err != nil {
		return NewValidationError("", field, err.Error(), err)
	}
	to, err := ParseRef(rel.To)
	if err != nil {
		return NewValidationError("", field, err.Error(), err)
	}
	if from == to {
		return NewValidationError("", field,
			fmt.Sprintf("relation %s -> %s points to itself", rel.From, rel.To), ErrSelfRelation)
	}

	if _, err := depsgraph.ParseRelationKind(rel.Kind); err != nil {
		return NewValidationError("", field, err.Error(), err)
	}

	for _, ref := range []Ref{from, to} {
		if err := resolveRef(ref, objects); err != nil {
			return NewValidationError(ref.Object, field, err.Error(), err)
		}
	}

	src := boneSource(from, to, objects[from.Object], ik)
	if src == boneTarget(to) {
		return NewValidationError(from.Object, field,
			fmt.Sprintf("relation %s -> %s collapses onto %s", rel.From, rel.To, src), ErrSelfRelation)
	}

	return nil
}

// ikTargets возвращает для каждой кости первую цель её IK-связи.
// Ссылки, которые не разбираются, пропускаются: о них сообщит validateRelation.
func ikTargets(relations []domain.RelationDef) map[Ref]Ref {
	targets := make(map[Ref]Ref)
	for _, rel := range relations {
		kind, err := depsgraph.ParseRelationKind(rel.Kind)
		if err != nil || kind != depsgraph.RelationIKSolverUpdate {
			continue
		}
		from, err := ParseRef(rel.From)
		if err != nil || from.Component != depsgraph.KindBone || from.Operation != "" {
			continue
		}
		to, err := ParseRef(rel.To)
		if err != nil {
			continue
		}
		if _, ok := targets[from]; !ok {
			targets[from] = to
		}
	}
	return targets
}

// boneTarget возвращает операцию, на которую сборка переносит входящую
// связь компонента кости. Остальные ссылки возвращаются как есть.
func boneTarget(ref Ref) Ref {
	if ref.Component != depsgraph.KindBone || ref.Operation != "" {
		return ref
	}
	ref.Operation = depsgraph.OpNameBoneTransforms
	return ref
}

// boneSource возвращает операцию, из которой сборка выводит исходящую
// связь компонента кости: IK-решатель, если он есть и связь ведёт не в него,
// иначе конечную операцию кости.
func boneSource(from, to Ref, obj *domain.ObjectDef, ik map[Ref]Ref) Ref {
	if from.Component != depsgraph.KindBone || from.Operation != "" {
		return from
	}
	if solver, ok := ik[from]; ok && solver != to {
		return solver
	}
	from.Operation = depsgraph.OpNameBoneTransforms
	if isAutoBoneOperation(obj, from.Bone, depsgraph.OpNameConstraintStack) {
		from.Operation = depsgraph.OpNameConstraintStack
	}
	return from
}

// resolveRef проверяет, что ссылка указывает на узел, который будет создан при сборке.
func resolveRef(ref Ref, objects map[string]*domain.ObjectDef) error {
	obj, ok := objects[ref.Object]
	if !ok {
		return fmt.Errorf("%w: object %q", ErrUnknownRef, ref.Object)
	}

	if ref.Component == depsgraph.KindBone {
		if !hasBone(obj, ref.Bone) {
			return fmt.Errorf("%w: bone %q", ErrUnknownRef, ref)
		}
		if ref.Operation == "" || isAutoBoneOperation(obj, ref.Bone, ref.Operation) {
			return nil
		}
	}

	for _, op := range obj.Operations {
		comp, _ := depsgraph.ParseKind(op.Component)
		if comp == ref.Component && op.Bone == ref.Bone && op.Name == ref.Operation {
			return nil
		}
	}
	return fmt.Errorf("%w: operation %q", ErrUnknownRef, ref)
}

func hasBone(obj *domain.ObjectDef, name string) bool {
	if name == "" {
		return false
	}
	for _, b := range obj.Bones {
		if b.Name == name {
			return true
		}
	}
	return false
}

// isAutoBoneOperation сообщает, создаёт ли сборка операцию name для кости сама.
func isAutoBoneOperation(obj *domain.ObjectDef, bone, name string) bool {
	if name == depsgraph.OpNameBoneTransforms {
		return true
	}
	if name != depsgraph.OpNameConstraintStack {
		return false
	}
	for _, b := range obj.Bones {
		if b.Name == bone {
			return len(b.Constraints) > 0
		}
	}
	return false
}
