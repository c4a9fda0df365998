package callbacks

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/domain"
	"github.com/shaiso/depsgraph/internal/telemetry"
)

// ErrCallbackNotFound — функция не найдена в реестре.
var ErrCallbackNotFound = errors.New("callback not found")

// Имена стандартных функций вычисления.
const (
	PoseRebuild     = depsgraph.CallbackPoseRebuild
	PoseInit        = depsgraph.CallbackPoseInit
	PoseFlush       = depsgraph.CallbackPoseFlush
	BoneEval        = "bone.eval"
	ConstraintsEval = "constraints.eval"
	IKTreeEval      = "iktree.eval"
	SplineIKEval    = "splineik.eval"
	LocalTransform  = "object.local_transform"
	ObjectParent    = "object.parent"
	MeshGeometry    = "mesh.geometry"
	CurveGeometry   = "curve.geometry"
	LatticeGeometry = "lattice.geometry"
	AnimsysDriver   = "animsys.driver"
	ParticlesEval   = "particles.eval"
	RigidBodySim    = "rigidbody.sim"
	RigidBodySync   = "rigidbody.sync"
)

// StandardNames возвращает имена стандартных функций.
func StandardNames() []string {
	return []string{
		PoseRebuild,
		PoseInit,
		PoseFlush,
		BoneEval,
		ConstraintsEval,
		IKTreeEval,
		SplineIKEval,
		LocalTransform,
		ObjectParent,
		MeshGeometry,
		CurveGeometry,
		LatticeGeometry,
		AnimsysDriver,
		ParticlesEval,
		RigidBodySim,
		RigidBodySync,
	}
}

// Trace возвращает функцию, которая только пишет в лог вычисляемый элемент.
//
// Тела вычислений находятся вне этого модуля; Trace позволяет прогнать
// собранный граф и увидеть, какие операции и с какими данными вызываются.
func Trace(name string) depsgraph.Callback {
	return func(ctx context.Context, item any) {
		telemetry.FromContext(ctx).Debug("evaluate",
			"callback", name,
			"item", Describe(item),
		)
	}
}

// Describe возвращает короткое описание данных операции.
func Describe(item any) string {
	switch v := item.(type) {
	case nil:
		return "<nil>"
	case *domain.Object:
		return "object " + v.Name
	case *domain.Channel:
		return "bone " + v.Name
	case *domain.Pose:
		return fmt.Sprintf("pose (%d channels)", len(v.Channels))
	default:
		return fmt.Sprintf("%T", item)
	}
}
