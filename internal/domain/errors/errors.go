package errors

import (
	"errors"
	"fmt"
)

// Виды ошибок. Любая ошибка сервиса оборачивает ровно один из них.
var (
	ErrNotFound           = errors.New("ресурс не найден")
	ErrUnauthorized       = errors.New("нет доступа")
	ErrInvalidInput       = errors.New("некорректные входные данные")
	ErrInvalidCredentials = errors.New("неверные учетные данные")
	ErrStoreFailure       = errors.New("ошибка хранилища")
	ErrConflict           = errors.New("конфликт ресурса")
)

var (
	ErrUserNotFound = fmt.Errorf("пользователь не найден: %w", ErrNotFound)
	ErrTaskNotFound = fmt.Errorf("задача не найдена: %w", ErrNotFound)
	ErrFileNotFound = fmt.Errorf("файл не найден: %w", ErrNotFound)

	ErrUserAlreadyExists = fmt.Errorf("пользователь уже существует: %w", ErrConflict)

	ErrModifyForbidden = fmt.Errorf("нет прав на изменение задачи: %w", ErrUnauthorized)
	ErrDeleteForbidden = fmt.Errorf("нет прав на удаление задачи: %w", ErrUnauthorized)
	ErrTokenInvalid    = fmt.Errorf("токен недействителен: %w", ErrInvalidCredentials)

	ErrValidationFailed   = fmt.Errorf("ошибка валидации: %w", ErrInvalidInput)
	ErrInvalidEmail       = fmt.Errorf("некорректный email: %w", ErrInvalidInput)
	ErrInvalidPassword    = fmt.Errorf("некорректный пароль: %w", ErrInvalidInput)
	ErrInvalidName        = fmt.Errorf("некорректное имя пользователя: %w", ErrInvalidInput)
	ErrInvalidRole        = fmt.Errorf("недопустимая роль пользователя: %w", ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("недопустимый статус задачи: %w", ErrInvalidInput)
	ErrInvalidPriority    = fmt.Errorf("недопустимый приоритет задачи: %w", ErrInvalidInput)
	ErrInvalidTitle       = fmt.Errorf("некорректный заголовок задачи: %w", ErrInvalidInput)
	ErrInvalidDescription = fmt.Errorf("некорректное описание задачи: %w", ErrInvalidInput)
	ErrInvalidID          = fmt.Errorf("некорректный идентификатор: %w", ErrInvalidInput)
	ErrEmptyFile          = fmt.Errorf("пустой файл: %w", ErrInvalidInput)
	ErrFileTooLarge       = fmt.Errorf("файл слишком большой: %w", ErrInvalidInput)
)

var (
	ErrInternalServer        = errors.New("внутренняя ошибка сервера")
	ErrBadRequest            = errors.New("неверный запрос")
	ErrInvalidGzipRequest    = errors.New("некорректное gzip-тело запроса")
	ErrGzipCompressionFailed = errors.New("ошибка gzip-сжатия ответа")

	ErrConfigFileReadFailed = errors.New("не удалось прочитать файл конфигурации")
	ErrConfigParseFailed    = errors.New("не удалось разобрать файл конфигурации")
	ErrConfigInvalidFormat  = errors.New("неверный формат значения")
	ErrUnknownStorage       = errors.New("неизвестный тип хранилища")
	ErrUnknownBlobDriver    = errors.New("неизвестный тип файлового хранилища")
)

var kinds = []error{
	ErrNotFound,
	ErrUnauthorized,
	ErrInvalidInput,
	ErrInvalidCredentials,
	ErrConflict,
	ErrStoreFailure,
}

// Kind возвращает вид ошибки. Неклассифицированные ошибки считаются
// отказом хранилища.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStoreFailure
}

// Store оборачивает ошибку ввода-вывода хранилища.
func Store(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreFailure, err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}
