package depsgraph

import (
	"fmt"
	"strings"
)

// NodeKind — тип узла графа. Множество типов закрыто.
type NodeKind int

// Общие узлы.
const (
	KindRoot NodeKind = iota + 1
	KindTimeSource
	KindEntity
	KindSubgraph
)

// Узлы-компоненты.
const (
	KindParameters NodeKind = iota + 100
	KindProxy
	KindAnimation
	KindTransform
	KindGeometry
	KindSequencer
	KindParticles
	KindPose
	KindBone
)

// Узлы-операции.
const (
	KindOpParameters NodeKind = iota + 200
	KindOpProxy
	KindOpAnimation
	KindOpTransform
	KindOpGeometry
	KindOpSequencer
	KindOpUpdate
	KindOpDriver
	KindOpPose
	KindOpBone
	KindOpParticles
	KindOpRigidBody
)

var kindNames = map[NodeKind]string{
	KindRoot:         "root",
	KindTimeSource:   "time_source",
	KindEntity:       "entity",
	KindSubgraph:     "subgraph",
	KindParameters:   "parameters",
	KindProxy:        "proxy",
	KindAnimation:    "animation",
	KindTransform:    "transform",
	KindGeometry:     "geometry",
	KindSequencer:    "sequencer",
	KindParticles:    "particles",
	KindPose:         "pose",
	KindBone:         "bone",
	KindOpParameters: "op_parameters",
	KindOpProxy:      "op_proxy",
	KindOpAnimation:  "op_animation",
	KindOpTransform:  "op_transform",
	KindOpGeometry:   "op_geometry",
	KindOpSequencer:  "op_sequencer",
	KindOpUpdate:     "op_update",
	KindOpDriver:     "op_driver",
	KindOpPose:       "op_pose",
	KindOpBone:       "op_bone",
	KindOpParticles:  "op_particles",
	KindOpRigidBody:  "op_rigidbody",
}

// String возвращает короткое имя типа.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsComponent сообщает, является ли тип компонентом (включая кость).
func (k NodeKind) IsComponent() bool {
	return k >= KindParameters && k <= KindBone
}

// IsOperation сообщает, является ли тип операцией.
func (k NodeKind) IsOperation() bool {
	return k >= KindOpParameters && k <= KindOpRigidBody
}

// operationOwners — компонент, которому принадлежит операция каждого типа.
var operationOwners = map[NodeKind]NodeKind{
	KindOpParameters: KindParameters,
	KindOpProxy:      KindProxy,
	KindOpAnimation:  KindAnimation,
	KindOpTransform:  KindTransform,
	KindOpGeometry:   KindGeometry,
	KindOpSequencer:  KindSequencer,
	KindOpUpdate:     KindParameters,
	KindOpDriver:     KindParameters,
	KindOpPose:       KindPose,
	KindOpBone:       KindBone,
	KindOpParticles:  KindParticles,
	KindOpRigidBody:  KindTransform,
}

// componentOperations — тип операции по умолчанию для компонента.
var componentOperations = map[NodeKind]NodeKind{
	KindParameters: KindOpParameters,
	KindProxy:      KindOpProxy,
	KindAnimation:  KindOpAnimation,
	KindTransform:  KindOpTransform,
	KindGeometry:   KindOpGeometry,
	KindSequencer:  KindOpSequencer,
	KindParticles:  KindOpParticles,
	KindPose:       KindOpPose,
	KindBone:       KindOpBone,
}

// OwnerKind возвращает тип компонента, владеющего операцией типа k.
func (k NodeKind) OwnerKind() (NodeKind, bool) {
	owner, ok := operationOwners[k]
	return owner, ok
}

// OperationKind возвращает тип операции по умолчанию для компонента k.
func (k NodeKind) OperationKind() (NodeKind, bool) {
	op, ok := componentOperations[k]
	return op, ok
}

// ParseKind разбирает короткое имя типа.
func ParseKind(s string) (NodeKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// OpType — тип операции с точки зрения вычислителя.
type OpType int

// Типы операций.
const (
	OpExec OpType = iota
	OpInit
	OpRebuild
	OpPost
	OpSim
	OpRNAUpdate
	OpDriver
)

var opTypeNames = [...]string{
	OpExec:      "exec",
	OpInit:      "init",
	OpRebuild:   "rebuild",
	OpPost:      "post",
	OpSim:       "sim",
	OpRNAUpdate: "rna_update",
	OpDriver:    "driver",
}

// String возвращает имя типа операции.
func (t OpType) String() string {
	if t >= 0 && int(t) < len(opTypeNames) {
		return opTypeNames[t]
	}
	return fmt.Sprintf("optype(%d)", int(t))
}

// ParseOpType разбирает имя типа операции. Пустая строка означает OpExec.
func ParseOpType(s string) (OpType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OpExec, nil
	}
	for i, name := range opTypeNames {
		if name == s {
			return OpType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOpType, s)
}

// RelationKind — тип связи между операциями.
type RelationKind int

// Типы связей.
const (
	RelationStandard RelationKind = iota
	RelationRootToActive
	RelationDatablock
	RelationTime
	RelationComponentOrder
	RelationOperation
	RelationDriver
	RelationDriverTarget
	RelationTransform
	RelationGeometryEval
	RelationUpdate
	RelationUpdateUI

	// RelationIKSolverUpdate — связь кости с операцией IK-решателя.
	// Валидация перенаправляет остальные исходящие связи кости через неё.
	RelationIKSolverUpdate
)

var relationNames = [...]string{
	RelationStandard:       "standard",
	RelationRootToActive:   "root_to_active",
	RelationDatablock:      "datablock",
	RelationTime:           "time",
	RelationComponentOrder: "component_order",
	RelationOperation:      "operation",
	RelationDriver:         "driver",
	RelationDriverTarget:   "driver_target",
	RelationTransform:      "transform",
	RelationGeometryEval:   "geometry_eval",
	RelationUpdate:         "update",
	RelationUpdateUI:       "update_ui",
	RelationIKSolverUpdate: "ik_solver_update",
}

// String возвращает имя типа связи.
func (k RelationKind) String() string {
	if k >= 0 && int(k) < len(relationNames) {
		return relationNames[k]
	}
	return fmt.Sprintf("relation(%d)", int(k))
}

// ParseRelationKind разбирает имя типа связи. Пустая строка означает RelationStandard.
func ParseRelationKind(s string) (RelationKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RelationStandard, nil
	}
	for i, name := range relationNames {
		if name == s {
			return RelationKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRelationKind, s)
}

// Flags — битовый набор флагов узла.
type Flags uint32

const (
	// FlagFirstRef — подграф держит первую ссылку на встроенный граф.
	FlagFirstRef Flags = 1 << iota

	// FlagShared — встроенный граф разделяется несколькими подграфами.
	FlagShared
)

// Has сообщает, установлены ли все биты f.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}
