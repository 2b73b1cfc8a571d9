package config

import (
	"os"
	"regexp"
)

// envPattern — ${VAR} или ${VAR:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv подставляет переменные окружения.
// Незаданная переменная без default заменяется пустой строкой.
func ExpandEnv(input string) string {
	return expandWith(input, os.LookupEnv)
}

func expandWith(input string, lookup func(string) (string, bool)) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		m := envPattern.FindStringSubmatch(match)
		if v, ok := lookup(m[1]); ok {
			return v
		}
		return m[2]
	})
}
