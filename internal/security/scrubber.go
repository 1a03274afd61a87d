// internal/security/scrubber.go
package security

import "regexp"

var (
	// ActionRunScript inherits the daemon's full process environment (see
	// executor.runScript), so a script's stdout/stderr can echo back
	// whatever secret the user exported for it — most commonly as a
	// KEY=value assignment, e.g. a webhook or cloud-sync notifier script
	// printing its own config for debugging.
	envSecretPattern = regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:TOKEN|SECRET|API[_-]?KEY|PASSWORD|WEBHOOK)[A-Z0-9_]*)\s*=\s*\S+`)
	// Bearer token pattern, as sent to a webhook or cloud-sync endpoint.
	bearerPattern = regexp.MustCompile(`Bearer\s+\S{20,}`)
	// Long hex strings (32+ chars) — likely API keys or signing secrets.
	hexKeyPattern = regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`)
)

// ScrubOutput redacts sensitive data from action output and error text
// before it's persisted to the run log.
func ScrubOutput(output string) string {
	result := envSecretPattern.ReplaceAllString(output, "$1=[REDACTED]")
	result = bearerPattern.ReplaceAllString(result, "Bearer [REDACTED]")
	result = hexKeyPattern.ReplaceAllString(result, "[REDACTED]")
	return result
}
