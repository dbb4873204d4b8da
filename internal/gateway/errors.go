package gateway

import "errors"

var (
	// ErrNetwork — транспортный сбой: нет ответа, нет связи, таймаут.
	// Всегда ретраибелен вызывающим и никогда не запускает обновление пары.
	ErrNetwork = errors.New("network failure")

	// ErrSessionExpired — refresh-токен отсутствует или отвергнут сервером.
	// Гейтвей к этому моменту уже очистил учётные данные и дёрнул хук
	// принудительного разлогина. Транспорт для UI: экран входа.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidAuthResponse — сервер прислал "успешный" ответ без обеих
	// частей пары токенов. Нарушение протокола; по последствиям для локальной
	// сессии эквивалентно ErrSessionExpired.
	ErrInvalidAuthResponse = errors.New("invalid auth response")
)
