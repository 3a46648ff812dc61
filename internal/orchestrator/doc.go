// Package orchestrator управляет обработкой строк.
//
// Orchestrator отвечает за:
//   - Выполнение последовательности запросов для одной строки (ProcessRow)
//   - Пропуск шагов, условие которых не выполнено
//   - Передачу извлечённых значений следующим шагам
//   - Остановку строки на первом упавшем шаге
//   - Обработку пакета строк (Run): паузы, журнал ошибок, итоги
//
// Каждая строка проходит машину состояний RowState:
//
//	PENDING → RUNNING(step i) → SUCCEEDED | FAILED(step i)
//
// Упавшая строка не останавливает пакет.
package orchestrator
