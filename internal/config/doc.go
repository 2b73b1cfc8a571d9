// Package config загружает конфигурацию Sentinel из YAML.
//
// Перед разбором в файле подставляются ${VAR} и ${VAR:-default}.
// После разбора применяются значения по умолчанию и переменные окружения
// (DB_URL, AMQP_URL, REDIS_URL, HTTP_ADDR, LOG_LEVEL, LOG_FORMAT).
// Watcher перечитывает файл при изменении.
package config
