// Package notify отправляет уведомления во внешние системы по HTTP.
//
// Webhook выполняет одну попытку POST через circuit breaker: доставка
// best-effort, повторов нет. Callback сообщает внешней системе
// о завершении run.
package notify
