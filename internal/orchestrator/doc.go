// Package orchestrator выполняет workflow из нескольких фаз.
//
// Orchestrator отвечает за:
//   - Построение порядка фаз по зависимостям (Kahn)
//   - Последовательное выполнение фаз и пропуск зависимых от упавших
//   - Подсчёт сводки run (total/successful/failed/skipped)
//   - Прерывание run на FatalError с сохранением частичного результата
//   - Ограничение run дедлайном
//   - Вызов callback и сохранение истории по завершении
package orchestrator
