// Package mq публикует события пакетной обработки в RabbitMQ.
//
// Топология:
//
//	rowpipe.events (direct)
//	├── rowpipe.row_failures [routing: row.failed]
//	└── rowpipe.batches      [routing: batch.finished]
//
// Publisher реализует журнал ошибок строк: каждая упавшая строка
// публикуется отдельным сообщением row.failed.
package mq
