// Package repo содержит хранилища журнала ошибок строк.
//
// FailureRepo пишет в PostgreSQL через pgx, SQLiteFailureRepo в локальный
// файл SQLite. Обе реализации только добавляют записи; чтение нужно для
// просмотра журнала конкретного пакета.
package repo
