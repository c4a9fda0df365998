package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/depsgraph/internal/depsgraph"
	"github.com/shaiso/depsgraph/internal/domain"
)

// validScene возвращает минимальную корректную сцену с арматурой.
func validScene() *domain.SceneSpec {
	return &domain.SceneSpec{
		Version: "1.0.0",
		Name:    "test",
		Objects: []domain.ObjectDef{
			{
				Name: "Rig",
				Type: "armature",
				Bones: []domain.BoneDef{
					{Name: "Upper"},
					{Name: "Lower", Parent: "Upper", Constraints: []string{"IK"}},
				},
				Operations: []domain.OperationDef{
					{Name: "IK Solver", Component: "pose", Type: "sim"},
				},
			},
			{
				Name: "Body",
				Type: "mesh",
				Operations: []domain.OperationDef{
					{Name: "Deform", Component: "geometry"},
				},
			},
		},
		Relations: []domain.RelationDef{
			{From: "Rig/bone:Upper", To: "Rig/pose/IK Solver", Kind: "ik_solver_update"},
			{From: "Rig/bone:Lower/Constraint Stack", To: "Body/geometry/Deform"},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validScene()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyScene(t *testing.T) {
	tests := []struct {
		name string
		spec *domain.SceneSpec
	}{
		{
			name: "nil spec",
			spec: nil,
		},
		{
			name: "no objects",
			spec: &domain.SceneSpec{Objects: []domain.ObjectDef{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			if !errors.Is(err, ErrEmptyScene) {
				t.Errorf("expected ErrEmptyScene, got %v", err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *domain.SceneSpec)
		wantErr error
		field   string
	}{
		{
			name:    "invalid version",
			mutate:  func(s *domain.SceneSpec) { s.Version = "one" },
			wantErr: ErrInvalidVersion,
			field:   "version",
		},
		{
			name:    "unsupported version",
			mutate:  func(s *domain.SceneSpec) { s.Version = "2.0.0" },
			wantErr: ErrUnsupportedVersion,
			field:   "version",
		},
		{
			name:    "empty object name",
			mutate:  func(s *domain.SceneSpec) { s.Objects[1].Name = "" },
			wantErr: ErrEmptyName,
			field:   "name",
		},
		{
			name:    "duplicate object",
			mutate:  func(s *domain.SceneSpec) { s.Objects[1].Name = "Rig" },
			wantErr: ErrDuplicateName,
			field:   "name",
		},
		{
			name:    "unknown object type",
			mutate:  func(s *domain.SceneSpec) { s.Objects[1].Type = "volume" },
			wantErr: ErrUnknownObjectType,
			field:   "type",
		},
		{
			name:    "duplicate bone",
			mutate:  func(s *domain.SceneSpec) { s.Objects[0].Bones[1].Name = "Upper" },
			wantErr: ErrDuplicateName,
			field:   "bones",
		},
		{
			name:    "unknown parent",
			mutate:  func(s *domain.SceneSpec) { s.Objects[0].Bones[1].Parent = "Spine" },
			wantErr: ErrUnknownParent,
			field:   "bones",
		},
		{
			name:    "parent cycle",
			mutate:  func(s *domain.SceneSpec) { s.Objects[0].Bones[0].Parent = "Lower" },
			wantErr: ErrBoneCycle,
			field:   "bones",
		},
		{
			name:    "unknown component",
			mutate:  func(s *domain.SceneSpec) { s.Objects[1].Operations[0].Component = "modifier" },
			wantErr: ErrUnknownComponent,
			field:   "operations",
		},
		{
			name: "bone operation without bone",
			mutate: func(s *domain.SceneSpec) {
				s.Objects[0].Operations = append(s.Objects[0].Operations,
					domain.OperationDef{Name: "Spline IK", Component: "bone"})
			},
			wantErr: ErrMissingBone,
			field:   "operations",
		},
		{
			name:    "kind of another component",
			mutate:  func(s *domain.SceneSpec) { s.Objects[1].Operations[0].Kind = "op_rigidbody" },
			wantErr: ErrUnknownOperationKind,
			field:   "operations",
		},
		{
			name:    "unknown op type",
			mutate:  func(s *domain.SceneSpec) { s.Objects[1].Operations[0].Type = "render" },
			wantErr: depsgraph.ErrUnknownOpType,
			field:   "operations",
		},
		{
			name: "duplicate operation",
			mutate: func(s *domain.SceneSpec) {
				s.Objects[1].Operations = append(s.Objects[1].Operations, s.Objects[1].Operations[0])
			},
			wantErr: ErrDuplicateName,
			field:   "operations",
		},
		{
			name:    "invalid ref",
			mutate:  func(s *domain.SceneSpec) { s.Relations[0].From = "Rig" },
			wantErr: ErrInvalidRef,
			field:   "relations[0]",
		},
		{
			name:    "unknown object ref",
			mutate:  func(s *domain.SceneSpec) { s.Relations[1].To = "Camera/geometry/Deform" },
			wantErr: ErrUnknownRef,
			field:   "relations[1]",
		},
		{
			name:    "constraint stack without constraints",
			mutate:  func(s *domain.SceneSpec) { s.Relations[1].From = "Rig/bone:Upper/Constraint Stack" },
			wantErr: ErrUnknownRef,
			field:   "relations[1]",
		},
		{
			name:    "self relation",
			mutate:  func(s *domain.SceneSpec) { s.Relations[1].To = s.Relations[1].From },
			wantErr: ErrSelfRelation,
			field:   "relations[1]",
		},
		{
			name: "bone inlink collapses onto bone transforms",
			mutate: func(s *domain.SceneSpec) {
				s.Relations = append(s.Relations, domain.RelationDef{
					From: "Rig/bone:Lower/Bone Transforms", To: "Rig/bone:Lower",
				})
			},
			wantErr: ErrSelfRelation,
			field:   "relations[2]",
		},
		{
			name: "bone outlink collapses onto bone transforms",
			mutate: func(s *domain.SceneSpec) {
				s.Relations[0].Kind = "standard"
				s.Relations = append(s.Relations, domain.RelationDef{
					From: "Rig/bone:Upper", To: "Rig/bone:Upper/Bone Transforms",
				})
			},
			wantErr: ErrSelfRelation,
			field:   "relations[2]",
		},
		{
			name: "bone outlink collapses onto constraint stack",
			mutate: func(s *domain.SceneSpec) {
				s.Relations = append(s.Relations, domain.RelationDef{
					From: "Rig/bone:Lower", To: "Rig/bone:Lower/Constraint Stack",
				})
			},
			wantErr: ErrSelfRelation,
			field:   "relations[2]",
		},
		{
			name:    "unknown relation kind",
			mutate:  func(s *domain.SceneSpec) { s.Relations[0].Kind = "ik" },
			wantErr: depsgraph.ErrUnknownRelationKind,
			field:   "relations[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validScene()
			tt.mutate(spec)

			err := Validate(spec)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, vErr.Field)
			}
		})
	}
}

func TestValidate_BoneOutlinkThroughIK(t *testing.T) {
	spec := validScene()
	// У Upper есть IK-связь, поэтому связь выводится из решателя
	spec.Relations = append(spec.Relations, domain.RelationDef{
		From: "Rig/bone:Upper", To: "Rig/bone:Upper/Bone Transforms",
	})

	if err := Validate(spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{
			in:   "Rig/bone:Hand",
			want: Ref{Object: "Rig", Component: depsgraph.KindBone, Bone: "Hand"},
		},
		{
			in:   "Rig/bone:Hand/Bone Transforms",
			want: Ref{Object: "Rig", Component: depsgraph.KindBone, Bone: "Hand", Operation: "Bone Transforms"},
		},
		{
			in:   "Body/geometry/Deform/Pass",
			want: Ref{Object: "Body", Component: depsgraph.KindGeometry, Operation: "Deform/Pass"},
		},
		{in: "Body", wantErr: true},
		{in: "Body/geometry", wantErr: true},
		{in: "Body/geometry:x/Deform", wantErr: true},
		{in: "Rig/bone/Bone Transforms", wantErr: true},
		{in: "Rig/modifier/Deform", wantErr: true},
		{in: "Rig/op_bone/Deform", wantErr: true},
		{in: "/geometry/Deform", wantErr: true},
		{in: "Body/geometry/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRef) {
					t.Errorf("expected ErrInvalidRef, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
			if got.String() != tt.in {
				t.Errorf("expected round trip %q, got %q", tt.in, got.String())
			}
		})
	}
}
