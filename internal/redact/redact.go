package redact

import (
	"regexp"
	"strings"
)

// envAssignment matches NAME=value where NAME looks like a credential, as in
// `docker exec -e SNYK_TOKEN=...`. The name is kept, the value dropped.
var envAssignment = regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:TOKEN|SECRET|PASSWORD|PASSWD|API_KEY|APIKEY|ACCESS_KEY)[A-Z0-9_]*)=("[^"]*"|'[^']*'|[^\s'"]+)`)

var sensitivePatterns = []*regexp.Regexp{
	// GitHub
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),

	// AWS
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// CLI flags carrying tokens: --token abc, --auth-token=abc
	regexp.MustCompile(`(?i)--(?:api-)?(?:auth-)?token(?:=|\s+)[^\s'"]+`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),

	// Basic auth in URLs
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),
}

const redactedPlaceholder = "[REDACTED]"

func Redact(input string) string {
	result := envAssignment.ReplaceAllString(input, "${1}="+redactedPlaceholder)
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, redactedPlaceholder)
	}
	return result
}

// RedactEnvVars masks the values of NAME=value pairs whose name looks like
// a credential, e.g. the variables forwarded into a tool container.
func RedactEnvVars(envVars []string) []string {
	sensitiveEnvNames := []string{
		"TOKEN",
		"SECRET",
		"PASSWORD",
		"PASSWD",
		"API_KEY",
		"APIKEY",
		"ACCESS_KEY",
	}

	result := make([]string, 0, len(envVars))
	for _, env := range envVars {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			result = append(result, env)
			continue
		}

		name := strings.ToUpper(parts[0])
		isSensitive := false
		for _, sensitive := range sensitiveEnvNames {
			if strings.Contains(name, sensitive) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			result = append(result, parts[0]+"="+redactedPlaceholder)
		} else {
			result = append(result, env)
		}
	}
	return result
}

func RedactArgs(args []string) []string {
	if args == nil {
		return nil
	}
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = Redact(arg)
	}
	return result
}
