package domain

// SceneSpec — описание сцены, из которого собирается граф.
//
// Поддерживаются форматы HCL, YAML и JSON; теги всех трёх описывают
// одну и ту же структуру.
type SceneSpec struct {
	// Version — версия формата описания (semver, поддерживается ^1.0.0).
	Version string `json:"version" yaml:"version" hcl:"version,optional"`

	// Name — имя сцены. Становится именем графа.
	Name string `json:"name" yaml:"name" hcl:"name,optional"`

	// Description — описание сцены.
	Description string `json:"description,omitempty" yaml:"description,omitempty" hcl:"description,optional"`

	// Objects — объекты сцены.
	Objects []ObjectDef `json:"objects" yaml:"objects" hcl:"object,block"`

	// Relations — объявленные связи.
	Relations []RelationDef `json:"relations,omitempty" yaml:"relations,omitempty" hcl:"relation,block"`
}

// ObjectDef — описание объекта сцены.
type ObjectDef struct {
	// Name — уникальное имя объекта.
	Name string `json:"name" yaml:"name" hcl:"name,label"`

	// Type — тип объекта: "mesh", "armature", "empty", ...
	Type string `json:"type" yaml:"type" hcl:"type,optional"`

	// TimeSource — объект имеет собственное время.
	TimeSource bool `json:"time_source,omitempty" yaml:"time_source,omitempty" hcl:"time_source,optional"`

	// Bones — кости арматуры.
	Bones []BoneDef `json:"bones,omitempty" yaml:"bones,omitempty" hcl:"bone,block"`

	// Operations — операции объекта.
	Operations []OperationDef `json:"operations,omitempty" yaml:"operations,omitempty" hcl:"operation,block"`
}

// BoneDef — описание кости.
type BoneDef struct {
	Name        string   `json:"name" yaml:"name" hcl:"name,label"`
	Parent      string   `json:"parent,omitempty" yaml:"parent,omitempty" hcl:"parent,optional"`
	Constraints []string `json:"constraints,omitempty" yaml:"constraints,omitempty" hcl:"constraints,optional"`
}

// OperationDef — описание операции.
type OperationDef struct {
	// Name — имя операции, уникальное в пределах компонента.
	Name string `json:"name" yaml:"name" hcl:"name,label"`

	// Component — компонент-владелец: "transform", "geometry", "pose", "bone", ...
	Component string `json:"component" yaml:"component" hcl:"component"`

	// Bone — имя кости, если Component = "bone".
	Bone string `json:"bone,omitempty" yaml:"bone,omitempty" hcl:"bone,optional"`

	// Kind — тип узла операции, если он отличается от типа по умолчанию
	// для компонента (например, "op_rigidbody" в transform).
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty" hcl:"kind,optional"`

	// Type — тип операции: "exec" (по умолчанию), "init", "sim", ...
	Type string `json:"type,omitempty" yaml:"type,omitempty" hcl:"type,optional"`

	// Callback — имя функции вычисления.
	Callback string `json:"callback,omitempty" yaml:"callback,omitempty" hcl:"callback,optional"`
}

// RelationDef — объявленная связь.
//
// Концы задаются ссылками вида "<object>/<component>[:<bone>][/<operation>]".
type RelationDef struct {
	From  string `json:"from" yaml:"from" hcl:"from"`
	To    string `json:"to" yaml:"to" hcl:"to"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty" hcl:"kind,optional"`
	Label string `json:"label,omitempty" yaml:"label,omitempty" hcl:"label,optional"`
}

// Object создаёт объект сцены по описанию. Каналы костей связываются
// с родителями; неизвестный родитель оставляет кость корневой.
func (d ObjectDef) Object() *Object {
	obj := NewObject(d.Name, ObjectType(d.Type))
	if len(d.Bones) == 0 {
		return obj
	}

	obj.Pose = &Pose{Channels: make([]*Channel, 0, len(d.Bones))}
	for _, b := range d.Bones {
		obj.Pose.Channels = append(obj.Pose.Channels, &Channel{
			Name:        b.Name,
			Constraints: b.Constraints,
		})
	}
	for _, b := range d.Bones {
		if b.Parent != "" {
			obj.Pose.Channel(b.Name).Parent = obj.Pose.Channel(b.Parent)
		}
	}
	return obj
}
