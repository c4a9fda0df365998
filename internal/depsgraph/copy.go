package depsgraph

// CopyContext — контекст копирования узлов.
//
// Запоминает соответствие исходных узлов и копий, чтобы после
// копирования можно было восстановить связи.
type CopyContext struct {
	types  *Registry
	copies map[Node]Node
}

// NewCopyContext создаёт контекст копирования.
func NewCopyContext(types *Registry) *CopyContext {
	return &CopyContext{
		types:  types,
		copies: make(map[Node]Node),
	}
}

// Copy копирует узел через фабрику его типа.
func (cc *CopyContext) Copy(src Node) (Node, error) {
	f, err := cc.types.FactoryFor(src)
	if err != nil {
		return nil, err
	}
	return f.Copy(cc, src)
}

// CopyOf возвращает копию исходного узла, если она была создана.
func (cc *CopyContext) CopyOf(src Node) (Node, bool) {
	n, ok := cc.copies[src]
	return n, ok
}

// Len возвращает количество скопированных узлов.
func (cc *CopyContext) Len() int {
	return len(cc.copies)
}

func (cc *CopyContext) record(src, dst Node) {
	cc.copies[src] = dst
}

// CopyEntity создаёт отсоединённую глубокую копию entity-узла.
//
// Каждый компонент копируется своей фабрикой и кладётся под тем же
// типом. Связи не копируются: у операций копии пустые списки связей.
func CopyEntity(cc *CopyContext, src *EntityNode) (*EntityNode, error) {
	n, err := cc.Copy(src)
	if err != nil {
		return nil, err
	}
	return n.(*EntityNode), nil
}
