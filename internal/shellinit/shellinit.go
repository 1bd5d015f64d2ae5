// Package shellinit renders the shell function printed by `ask-sh --init`.
package shellinit

import (
	"fmt"
	"strings"
)

const script = `# This function is generated by %[1]s --init
# Add to your shell rc file: eval "$(%[1]s --init)"
ask() {
    local suggested_commands selected_command picker REPLY
    suggested_commands=$(printf '%%s\n' "$*" | %[1]s)
    [ -n "$suggested_commands" ] || return 0

    if command -v fzf >/dev/null 2>&1; then
        picker="fzf --prompt=Command> --height=40%%"
    elif command -v peco >/dev/null 2>&1; then
        picker="peco --prompt Command>"
    else
        printf '\n%%s\n' "$suggested_commands"
        return 0
    fi

    printf '\nPress Enter to pick a suggested command, or any other key to exit: '
    if [ -n "$ZSH_VERSION" ]; then
        read -r -k 1 REPLY
    else
        read -r -n 1 REPLY
    fi
    REPLY="${REPLY#"${REPLY%%%%[![:space:]]*}"}"
    printf '\n'
    [ -z "$REPLY" ] || return 0

    selected_command=$(printf '%%s\n' "$suggested_commands" | eval "$picker")
    [ -n "$selected_command" ] || return 0

    if [ -n "$ZSH_VERSION" ]; then
        print -z -- "$selected_command"
    else
        history -s -- "$selected_command"
        printf '%%s\n' "$selected_command"
    fi
}
`

// Script returns the shell function calling the binary named binary
func Script(binary string) string {
	if strings.TrimSpace(binary) == "" {
		binary = "ask-sh"
	}
	return fmt.Sprintf(script, binary)
}
