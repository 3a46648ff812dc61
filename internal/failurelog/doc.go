// Package failurelog выбирает и открывает журнал ошибок строк.
//
// Драйверы:
//   - file     — JSON Lines в локальном файле (по умолчанию)
//   - postgres — таблица row_failures (pgx)
//   - sqlite   — таблица row_failures в файле SQLite
//   - amqp     — сообщения row.failed в RabbitMQ
//   - none     — журнал не ведётся
package failurelog
