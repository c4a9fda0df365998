package depsgraph

import "errors"

// Ошибки конфигурации реестра типов.
var (
	// ErrUnknownKind — тип узла не зарегистрирован.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrDuplicateKind — тип узла уже зарегистрирован.
	ErrDuplicateKind = errors.New("node kind already registered")

	// ErrRegistryClosed — реестр остановлен через Shutdown.
	ErrRegistryClosed = errors.New("type registry is shut down")

	// ErrUnknownOpType — неизвестный тип операции.
	ErrUnknownOpType = errors.New("unknown operation type")

	// ErrUnknownRelationKind — неизвестный тип связи.
	ErrUnknownRelationKind = errors.New("unknown relation kind")
)

// Нарушения инвариантов графа.
var (
	// ErrRootExists — граф уже содержит корневой узел.
	ErrRootExists = errors.New("graph already has a root node")

	// ErrNoRoot — у графа нет корневого узла.
	ErrNoRoot = errors.New("graph has no root node")

	// ErrWrongOwner — узел не принадлежит ожидаемому владельцу.
	ErrWrongOwner = errors.New("node is not owned by the expected container")

	// ErrNotAttached — узел не присоединён к графу.
	ErrNotAttached = errors.New("node is not attached")

	// ErrNodeAttached — попытка уничтожить присоединённый узел.
	ErrNodeAttached = errors.New("node is still attached")

	// ErrMissingOperation — ожидаемая операция отсутствует.
	ErrMissingOperation = errors.New("required operation is missing")

	// ErrSelfRelation — связь узла с самим собой.
	ErrSelfRelation = errors.New("relation endpoints are the same node")

	// ErrUnknownBone — в позе объекта нет кости с таким именем.
	ErrUnknownBone = errors.New("unknown bone")

	// ErrNilEntity — узлу требуется объект, но он не передан.
	ErrNilEntity = errors.New("entity object is nil")

	// ErrOperationKey — операции создаются через AddOperation.
	ErrOperationKey = errors.New("operations are created with AddOperation")

	// ErrNilEndpoint — у связи отсутствует конец.
	ErrNilEndpoint = errors.New("relation endpoint is nil")

	// ErrAlreadyValidated — связи графа уже проверены.
	ErrAlreadyValidated = errors.New("graph links already validated")

	// ErrGraphBroken — предыдущая валидация завершилась ошибкой.
	ErrGraphBroken = errors.New("graph is broken by a failed validation")

	// ErrGraphFreed — граф освобождён.
	ErrGraphFreed = errors.New("graph is freed")
)

// ErrCopyUnsupported — копирование узла этого типа не реализовано.
var ErrCopyUnsupported = errors.New("copy is not supported for this node kind")

// InvariantError — нарушение инварианта с контекстом узла.
type InvariantError struct {
	Node string // имя или путь узла
	Op   string // операция, в которой обнаружено нарушение
	Err  error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *InvariantError) Error() string {
	if e.Node != "" {
		return e.Op + " " + e.Node + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *InvariantError) Unwrap() error {
	return e.Err
}

func invariant(node, op string, err error) *InvariantError {
	return &InvariantError{Node: node, Op: op, Err: err}
}
