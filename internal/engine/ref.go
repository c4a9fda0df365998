package engine

import (
	"fmt"
	"strings"

	"github.com/shaiso/depsgraph/internal/depsgraph"
)

// Ref — разобранная ссылка на конец связи.
//
// Грамматика: <object>/<component>[:<bone>][/<operation>].
// Без операции ссылка допустима только на компонент кости.
type Ref struct {
	Object    string
	Component depsgraph.NodeKind
	Bone      string
	Operation string
}

// ParseRef разбирает ссылку на конец связи.
func ParseRef(s string) (Ref, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}

	ref := Ref{Object: parts[0]}
	if len(parts) == 3 {
		if parts[2] == "" {
			return Ref{}, fmt.Errorf("%w: %q: empty operation", ErrInvalidRef, s)
		}
		ref.Operation = parts[2]
	}

	comp, bone, hasBone := strings.Cut(parts[1], ":")
	kind, err := depsgraph.ParseKind(comp)
	if err != nil || !kind.IsComponent() {
		return Ref{}, fmt.Errorf("%w: %q: unknown component %q", ErrInvalidRef, s, comp)
	}
	ref.Component = kind

	switch {
	case kind == depsgraph.KindBone && (!hasBone || bone == ""):
		return Ref{}, fmt.Errorf("%w: %q: bone name required", ErrInvalidRef, s)
	case kind != depsgraph.KindBone && hasBone:
		return Ref{}, fmt.Errorf("%w: %q: only bone components take a name", ErrInvalidRef, s)
	case kind != depsgraph.KindBone && ref.Operation == "":
		return Ref{}, fmt.Errorf("%w: %q: operation required", ErrInvalidRef, s)
	}
	ref.Bone = bone

	return ref, nil
}

// String возвращает ссылку в канонической форме.
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(r.Object)
	sb.WriteByte('/')
	sb.WriteString(r.Component.String())
	if r.Bone != "" {
		sb.WriteByte(':')
		sb.WriteString(r.Bone)
	}
	if r.Operation != "" {
		sb.WriteByte('/')
		sb.WriteString(r.Operation)
	}
	return sb.String()
}
