// Package mq публикует события Sentinel в RabbitMQ и принимает команды.
//
// Exchanges:
//   - sentinel.events   (topic)  — alert.<source>, run.completed
//   - sentinel.commands (direct) — run.requested
//   - sentinel.dlq      (direct) — отклонённые команды
//
// Соединение переподключается само; публикация при разрыве возвращает
// ошибку, повторов нет.
package mq
