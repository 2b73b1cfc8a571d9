// Package scheduler запускает периодические задания Sentinel.
//
// Расписание задания — cron-выражение (5 полей, с учётом timezone) или
// фиксированный интервал. Задания выполняются последовательно в одном
// цикле, поэтому запуски одного задания не пересекаются. Ошибка задания
// логируется и не останавливает планировщик.
package scheduler
