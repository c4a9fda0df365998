package callbacks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/depsgraph/internal/depsgraph"
)

// Registry — реестр функций вычисления операций.
//
// Граф получает функции по имени через интерфейс depsgraph.CallbackSource.
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	callbacks map[string]depsgraph.Callback
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		callbacks: make(map[string]depsgraph.Callback),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными функциями.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, name := range StandardNames() {
		r.Register(name, Trace(name))
	}

	return r
}

// Register регистрирует функцию под именем.
// Если функция с таким именем уже существует, она будет перезаписана.
func (r *Registry) Register(name string, cb depsgraph.Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[name] = cb
}

// Get возвращает функцию по имени.
// Возвращает ErrCallbackNotFound, если функция не найдена.
func (r *Registry) Get(name string) (depsgraph.Callback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cb, exists := r.callbacks[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCallbackNotFound, name)
	}

	return cb, nil
}

// Has проверяет, зарегистрирована ли функция.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.callbacks[name]
	return exists
}

// Names возвращает список всех зарегистрированных имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.callbacks))
	for name := range r.callbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных функций.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callbacks)
}

// Unregister удаляет функцию из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, name)
}
