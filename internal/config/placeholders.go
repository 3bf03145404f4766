package config

import (
	"os"
	"regexp"
)

var (
	// placeholderRegex matches placeholder patterns like {WORD}
	placeholderRegex = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)

	// envVarRegex matches environment variable naming pattern (uppercase letters, numbers, underscores)
	envVarRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// expandEnvPlaceholders replaces {VAR_NAME} placeholders with the value of
// the environment variable. Placeholders that are not upper case, or whose
// variable is unset or empty, are left as-is.
func expandEnvPlaceholders(pattern string) string {
	return placeholderRegex.ReplaceAllStringFunc(pattern, func(m string) string {
		sub := placeholderRegex.FindStringSubmatch(m)
		if len(sub) != 2 {
			return m
		}
		name := sub[1]

		if envVarRegex.MatchString(name) {
			if val := os.Getenv(name); val != "" {
				return val
			}
		}

		return m
	})
}
