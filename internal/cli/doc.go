// Package cli реализует команды rowpipe.
//
// # Команды
//
//   - run      — обработать CSV: каждая строка превращается в серию HTTP-запросов
//   - init     — сгенерировать заготовку файла запросов по заголовкам CSV
//   - validate — проверить файл запросов и вывести список шагов
//
// # Вывод
//
// Output пишет прогресс по строкам и итоговую таблицу в stdout, предупреждения
// и ошибки в stderr. С флагом --json итог выводится в JSON, а строки прогресса
// уходят в stderr, чтобы stdout можно было передать в jq.
//
// # Настройки
//
// Ключ API, таймаут, журнал ошибок и экспорт метрик берутся из config.Settings
// (файл rowpipe.yaml и переменные ROWPIPE_*). Флаги команды run перекрывают
// соответствующие настройки.
package cli
