package tagreports

import (
	"errors"
	"fmt"
)

// Ошибки движка. Все они пробрасываются вызывающему без подмены значений,
// проверять их следует через errors.Is / errors.As.
var (
	ErrInvalidTag        = errors.New("некорректный тег")
	ErrUnknownTag        = fmt.Errorf("%w: тег не зарегистрирован", ErrInvalidTag)
	ErrDuplicateHeader   = errors.New("найдено несколько тегов заголовка")
	ErrMissingHeader     = errors.New("тег заголовка не найден")
	ErrMissingData       = errors.New("теги данных не найдены")
	ErrInconsistentData  = errors.New("теги данных расположены в разных строках")
	ErrDataNotAdjacent   = errors.New("строка данных должна идти сразу после строки заголовка")
	ErrNotValidated      = errors.New("шаблон не прошёл проверку: вызовите Validate()")
	ErrTemplateNotFound  = errors.New("шаблон не найден")
	ErrInvalidRole       = errors.New("некорректная роль тега")
	ErrResolution        = errors.New("ошибка вычисления значения тега")
	ErrPluginNotFound    = errors.New("не удалось загрузить реализацию")
	ErrInvalidConfig     = errors.New("некорректная конфигурация")
	errUnsupportedTarget = errors.New("не задан выход для сохранения отчёта")
)

// ResolutionError оборачивает ошибку (или панику) стратегии вычисления значения.
type ResolutionError struct {
	Tag string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("тег %s: %v", e.Tag, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is позволяет сравнивать с ErrResolution без знания конкретной причины.
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }
