// Package alert доставляет пачки алертов в sinks.
//
// Доставка best-effort: ошибка sink логируется и учитывается в метриках,
// но не влияет на результат проверки или run. Пустая пачка не отправляется.
package alert
