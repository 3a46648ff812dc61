package mq

import "errors"

var (
	// ErrConnectionClosed — соединение закрыто вызовом Close.
	ErrConnectionClosed = errors.New("amqp connection closed")

	// ErrNoChannel — канал недоступен (идёт переподключение).
	ErrNoChannel = errors.New("amqp channel not available")
)
