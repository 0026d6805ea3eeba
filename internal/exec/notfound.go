package exec

import (
	"fmt"
	"regexp"
	"strings"
)

// commandNotFoundPatterns detect "command not found" output from the
// common remote shells. They only apply to exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-bash: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// IsCommandNotFound checks if output indicates a missing command.
// Returns the command name (if extractable) and whether it's a command-not-found error.
func IsCommandNotFound(output string, exitCode int) (string, bool) {
	if exitCode != 127 {
		return "", false
	}

	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(output); len(matches) > 1 {
			return matches[1], true
		}
	}

	return "", true
}

func commandNotFoundHint(cmd, name string) string {
	if name == "" {
		if parts := strings.Fields(cmd); len(parts) > 0 {
			name = parts[0]
		} else {
			name = "command"
		}
	}
	return fmt.Sprintf("'%s' wasn't found in the remote PATH. Install it on the machine or use its full path.", name)
}
