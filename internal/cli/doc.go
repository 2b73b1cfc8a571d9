// Package cli реализует инструмент командной строки Sentinel.
//
// # Обзор
//
// CLI — клиентская утилита для Sentinel API. Работает через HTTP
// и не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Разбирает конверты {data}, {data, total}
// и {error}; ошибка API возвращается как *APIError, в том числе
// с частичным результатом run.
//
//	client := cli.NewClient("http://localhost:8080", 0)
//	status, err := client.Status()
//
// ## Output
//
// Два формата (--output): table (text/tabwriter) и json.
// Данные выводятся в stdout, сообщения — в stderr:
// sentinel runs list --output json | jq .
//
// ## Commands
//
//   - status
//   - health [--run]
//   - optimize
//   - runs list [--purpose P] [--limit N]
//   - runs get RUN_ID
//
// Команды создаются фабриками (NewStatusCmd и т.д.), которые принимают
// clientFn и outputFn, чтобы Client и Output создавались после разбора
// PersistentFlags.
package cli
