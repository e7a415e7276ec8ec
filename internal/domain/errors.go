package domain

import "errors"

var (
	// ErrInvalidResponse возвращается, если API вернул ответ неожиданной формы.
	ErrInvalidResponse = errors.New("некорректный ответ API")
	// ErrAuthExhausted возвращается, когда исчерпан бюджет обновлений токена.
	ErrAuthExhausted = errors.New("исчерпаны попытки авторизации")
	// ErrFetch описывает сетевую или HTTP-ошибку, не связанную с авторизацией.
	ErrFetch = errors.New("ошибка запроса к API")
	// ErrTokenAcquisition возвращается, если не удалось получить токен.
	ErrTokenAcquisition = errors.New("не удалось получить токен")

	// ErrSessionExpired возвращается, если каталога нет в кэше.
	ErrSessionExpired = errors.New("сессия истекла")
	// ErrChapterNotFound возвращается, если серия не найдена в каталоге.
	ErrChapterNotFound = errors.New("серия не найдена")
	// ErrQualityNotFound возвращается, если у серии нет запрошенного качества.
	ErrQualityNotFound = errors.New("качество не найдено")
	// ErrMalformedAction возвращается для повреждённых данных кнопки.
	ErrMalformedAction = errors.New("некорректные данные кнопки")

	// ErrAllSourcesFailed возвращается, когда ни один способ доставки не сработал.
	ErrAllSourcesFailed = errors.New("все источники недоступны")
	// ErrWrongContent: транспорт не принял содержимое по ссылке; пробуем следующий источник.
	ErrWrongContent = errors.New("неверный тип содержимого")
)
