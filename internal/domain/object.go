package domain

import (
	"github.com/google/uuid"
)

// objectNamespace — пространство имён для детерминированных ID объектов.
// Один и тот же объект сцены получает один и тот же ID при каждой пересборке.
var objectNamespace = uuid.MustParse("6f1c1d2e-3b5a-4c1e-9d0a-2f7e5b8c4a11")

// ObjectType — тип объекта сцены.
type ObjectType string

// Типы объектов.
const (
	ObjectEmpty    ObjectType = "empty"
	ObjectMesh     ObjectType = "mesh"
	ObjectArmature ObjectType = "armature"
	ObjectCurve    ObjectType = "curve"
	ObjectLattice  ObjectType = "lattice"
	ObjectCamera   ObjectType = "camera"
)

// Object — внешняя сущность сцены, зависимости которой отслеживает граф.
//
// Граф не владеет объектом: entity-узел хранит только ссылку на него,
// а ключом в графе служит ID.
type Object struct {
	// ID — идентификатор объекта.
	ID uuid.UUID `json:"id"`

	// Name — уникальное в пределах сцены имя.
	Name string `json:"name"`

	// Type — тип объекта.
	Type ObjectType `json:"type"`

	// Pose — поза арматуры. nil для объектов без скелета.
	Pose *Pose `json:"pose,omitempty"`
}

// NewObject создаёт объект с ID, выведенным из имени.
func NewObject(name string, typ ObjectType) *Object {
	return &Object{
		ID:   ObjectID(name),
		Name: name,
		Type: typ,
	}
}

// ObjectID возвращает детерминированный ID для имени объекта.
func ObjectID(name string) uuid.UUID {
	return uuid.NewSHA1(objectNamespace, []byte(name))
}

// Pose — набор каналов костей арматуры.
type Pose struct {
	Channels []*Channel `json:"channels"`
}

// Channel возвращает канал кости по имени или nil.
func (p *Pose) Channel(name string) *Channel {
	if p == nil {
		return nil
	}
	for _, ch := range p.Channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// Channel — канал кости в позе.
type Channel struct {
	// Name — имя кости.
	Name string `json:"name"`

	// Parent — родительский канал. nil для корневых костей.
	Parent *Channel `json:"-"`

	// Constraints — имена ограничений, наложенных на кость.
	Constraints []string `json:"constraints,omitempty"`
}

// HasConstraints сообщает, есть ли у кости стек ограничений.
func (c *Channel) HasConstraints() bool {
	return len(c.Constraints) > 0
}
