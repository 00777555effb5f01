package models

import "errors"

// Ошибки бизнес-логики, которые обработчики переводят
// в сообщения пользователю. Ни одна из них не фатальна для процесса.
var (
	// ErrInsufficientCredits — на балансе меньше кредитов, чем стоит операция
	ErrInsufficientCredits = errors.New("недостаточно кредитов")

	// ErrUserNotFound — пользователь отсутствует в хранилище
	ErrUserNotFound = errors.New("пользователь не найден")

	// ErrInvalidInput — некорректный ввод пользователя (плохой URL, пустые эмодзи)
	ErrInvalidInput = errors.New("некорректный ввод")

	// ErrExternalService — сервис сокращения ссылок недоступен или вернул не 200
	ErrExternalService = errors.New("внешний сервис недоступен")
)
