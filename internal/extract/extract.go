// Package extract pulls shell commands out of fenced code blocks in model output.
package extract

import (
	"regexp"
	"strings"
)

const sentinel = ";"

var fencedBlock = regexp.MustCompile("```(.+?)```")

// shellPrefixes are fence language tags dropped from the start of a block.
// Any other tag (```python) stays part of the command.
var shellPrefixes = []string{"bash" + sentinel, "sh" + sentinel}

// Commands returns the fenced blocks of text as single-line commands, in the
// order they first appear, without duplicates. A multi-line block is joined
// into one line. An empty block yields an empty string.
func Commands(text string) []string {
	flat := strings.ReplaceAll(text, "\n", sentinel)

	commands := []string{}
	seen := make(map[string]bool)

	for _, match := range fencedBlock.FindAllStringSubmatch(flat, -1) {
		command := normalize(match[1])
		if seen[command] {
			continue
		}
		seen[command] = true
		commands = append(commands, command)
	}

	return commands
}

func normalize(block string) string {
	command := trim(block)
	for _, prefix := range shellPrefixes {
		if strings.HasPrefix(command, prefix) {
			command = trim(strings.TrimPrefix(command, prefix))
			break
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(command, sentinel, " "))
}

func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == ';' || r == ' ' || r == '\t' || r == '\r'
	})
}
