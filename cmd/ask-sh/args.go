package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// inlineFlags are words the shell function may pass through stdin together
// with the request. Both spellings are accepted.
var inlineFlags = map[string]string{
	"--debug":        "debug",
	"--debug_ask_sh": "debug",
	"--no-pane":      "no-pane",
	"--no_pane":      "no-pane",
	"--no-suggest":   "no-suggest",
	"--no_suggest":   "no-suggest",
}

// inlineToggles are the flags found inside a request
type inlineToggles struct {
	debug     bool
	noPane    bool
	noSuggest bool
}

// readRequest returns the first line of r without its line ending
func readRequest(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read request from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// stripInlineFlags removes flag words from request and reports which were seen
func stripInlineFlags(request string) (string, inlineToggles) {
	var toggles inlineToggles
	words := []string{}

	for _, word := range strings.Fields(request) {
		switch inlineFlags[word] {
		case "debug":
			toggles.debug = true
		case "no-pane":
			toggles.noPane = true
		case "no-suggest":
			toggles.noSuggest = true
		default:
			words = append(words, word)
		}
	}

	return strings.Join(words, " "), toggles
}
