// Package engine содержит ядро обработки строки без HTTP.
//
// Включает:
//   - coerce.go    — приведение сырых значений ячеек к типам
//   - scope.go     — двухслойный поиск значений (извлечённые → строки таблиц)
//   - resolver.go  — подстановка $name в тело запроса, URL и заголовки
//   - condition.go — вычисление условий выполнения шага
//   - extract.go   — извлечение полей из ответа (путь через точку, JMESPath)
//   - parser.go    — разбор и валидация последовательности запросов
//   - scaffold.go  — генерация шаблона последовательности по заголовкам CSV
//
// Все функции чистые: шаблоны и строки не изменяются, проблемы,
// не прерывающие строку, возвращаются как []Warning.
package engine
