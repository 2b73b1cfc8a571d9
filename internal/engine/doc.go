// Package engine содержит движок выполнения шагов.
//
// Включает:
//   - clock.go     — источник времени и ожидания (Clock)
//   - retry.go     — политика повторов и стратегии backoff
//   - executor.go  — выполнение одного шага с повторами
//   - fanout.go    — параллельный запуск шагов (fan-out / fan-in)
//   - deadline.go  — гонка фазы с дедлайном
//   - aggregate.go — сводный вердикт healthy/degraded/unhealthy
//   - phase.go     — фазы: параллельные и последовательные цепочки
//
// Ошибки разделены на три класса: проверка со статусом fail (данные,
// не ошибка), RetryableError (повторяется внутри Executor) и FatalError
// (прерывает весь run).
package engine
