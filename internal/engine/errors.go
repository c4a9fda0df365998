package engine

import "errors"

// Ошибки валидации SceneSpec.
var (
	// ErrEmptyScene — сцена не содержит объектов.
	ErrEmptyScene = errors.New("scene has no objects")

	// ErrInvalidVersion — версия формата не разбирается как semver.
	ErrInvalidVersion = errors.New("invalid scene format version")

	// ErrUnsupportedVersion — версия формата не поддерживается.
	ErrUnsupportedVersion = errors.New("unsupported scene format version")

	// ErrEmptyName — объект, кость или операция без имени.
	ErrEmptyName = errors.New("empty name")

	// ErrDuplicateName — несколько объектов, костей или операций с одним именем.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrUnknownObjectType — неизвестный тип объекта.
	ErrUnknownObjectType = errors.New("unknown object type")

	// ErrUnknownComponent — неизвестный компонент.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrUnknownOperationKind — тип узла операции неизвестен или не подходит компоненту.
	ErrUnknownOperationKind = errors.New("unknown operation kind")

	// ErrUnknownParent — родительская кость не найдена.
	ErrUnknownParent = errors.New("bone parent not found")

	// ErrBoneCycle — кости образуют цикл через parent.
	ErrBoneCycle = errors.New("bone parent cycle")

	// ErrMissingBone — операция кости без существующей кости.
	ErrMissingBone = errors.New("bone not found")

	// ErrUnknownCallback — функция вычисления не зарегистрирована.
	ErrUnknownCallback = errors.New("unknown callback")

	// ErrInvalidRef — ссылка на конец связи не соответствует грамматике.
	ErrInvalidRef = errors.New("invalid endpoint reference")

	// ErrUnknownRef — ссылка указывает на несуществующий узел.
	ErrUnknownRef = errors.New("endpoint reference not found")

	// ErrSelfRelation — связь ссылается на один и тот же узел.
	ErrSelfRelation = errors.New("relation endpoints are the same")
)

// Ошибки чтения описаний.
var (
	// ErrUnsupportedFormat — расширение файла не поддерживается.
	ErrUnsupportedFormat = errors.New("unsupported scene file format")

	// ErrParse — описание не разбирается.
	ErrParse = errors.New("scene parse failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Object  string // объект, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Object != "" {
		return "object " + e.Object + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(object, field, message string, err error) *ValidationError {
	return &ValidationError{
		Object:  object,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
