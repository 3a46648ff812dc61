// Package steps выполняет шаги последовательности запросов.
//
// # Executor
//
// Executor принимает один domain.RequestStep и данные строки:
//
//	exec := steps.NewExecutor(steps.ExecutorConfig{
//	    Doer:   steps.NewHTTPClient(steps.HTTPClientConfig{APIKey: key}),
//	    Logger: logger,
//	})
//	out, err := exec.Execute(ctx, &step, steps.Input{Row: row, Extracted: values})
//
// Порядок работы для одного запроса:
//  1. endpoint: глобальный override или шаблон шага, подстановка с URL-кодированием
//  2. метод: GET POST PUT PATCH DELETE, иначе POST
//  3. заголовки: последовательности, затем шага
//  4. тело: подстановка в шаблон payload (кроме GET и DELETE)
//  5. подтверждение (только в интерактивном режиме)
//  6. отправка через Doer
//  7. извлечение полей из ответа в рабочую копию значений
//
// Шаг с loopOverSecondary повторяет запрос для каждой строки вторичной
// таблицы. Поиск значений: извлечённые → вторичная строка → основная.
//
// # Транспорт
//
// Doer — интерфейс HTTP транспорта:
//   - HTTPClient — net/http + otelhttp, ключ API, метрики Prometheus
//   - DryRunDoer — печатает запросы, ничего не отправляет
//
// # Обработка ошибок
//
// Ответ вне 2xx возвращается как *HTTPError. Executor оборачивает любую
// ошибку в *StepError со статусом и телом ответа. Повторов нет: ошибка
// шага завершает обработку строки.
//
// # Файлы пакета
//
//   - step.go     — Request, Response, Doer, Confirmer, методы
//   - errors.go   — ошибки, HTTPError, StepError
//   - http.go     — HTTPClient
//   - dryrun.go   — DryRunDoer
//   - executor.go — Executor
package steps
