// Package probe содержит тела шагов для проверки сайта.
//
// Включает:
//   - fetch.go    — коллаборатор Fetcher и его HTTP-реализация
//   - classify.go — классификация ответов в RetryableError
//   - checks.go   — шаги для страниц, API, sitemap, robots.txt и ping
//   - quick.go    — быстрый статус по одной странице
//
// Шаги возвращают pass/warn как данные; недоступность и не-2xx/3xx
// ответы возвращаются как RetryableError и повторяются Executor.
package probe
