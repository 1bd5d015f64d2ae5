package ui

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
)

// Action represents the user's choice for a suggested command
type Action int

const (
	ActionRun Action = iota
	ActionCopy
	ActionCancel
)

const (
	optionRun    = "Run it"
	optionCopy   = "Copy to clipboard"
	optionCancel = "Cancel"
)

// stdio keeps prompts off stdout, which may be captured by the shell function
var stdio = survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)

// SelectCommand lets the user pick one of the suggested commands. With a
// single command it is returned without prompting.
func SelectCommand(commands []string) (string, error) {
	if len(commands) == 0 {
		return "", fmt.Errorf("no commands to choose from")
	}
	if len(commands) == 1 {
		return commands[0], nil
	}

	var choice string
	prompt := &survey.Select{
		Message: "Pick a command:",
		Options: commands,
	}
	if err := survey.AskOne(prompt, &choice, stdio); err != nil {
		return "", err
	}
	return choice, nil
}

// ConfirmCommand shows the command and asks the user what to do
func ConfirmCommand(command string) (Action, error) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(os.Stderr, "\nSuggested command:")
	fmt.Fprintf(os.Stderr, "  %s\n\n", command)

	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{optionRun, optionCopy, optionCancel},
	}

	if err := survey.AskOne(prompt, &choice, stdio); err != nil {
		return ActionCancel, err
	}

	return actionFor(choice), nil
}

func actionFor(choice string) Action {
	switch choice {
	case optionRun:
		return ActionRun
	case optionCopy:
		return ActionCopy
	default:
		return ActionCancel
	}
}

// SelectProvider prompts for the LLM provider
func SelectProvider(providers []string, current string) (string, error) {
	var provider string
	prompt := &survey.Select{
		Message: "Select an LLM provider:",
		Options: providers,
	}
	if current != "" {
		prompt.Default = current
	}

	if err := survey.AskOne(prompt, &provider, stdio); err != nil {
		return "", err
	}
	return provider, nil
}

// PromptInput asks for a line of text, offering def as the default
func PromptInput(message, def string) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: def,
	}
	if err := survey.AskOne(prompt, &value, stdio); err != nil {
		return "", err
	}
	return value, nil
}

// PromptSecret asks for a value without echoing it
func PromptSecret(message string) (string, error) {
	var value string
	prompt := &survey.Password{
		Message: message,
	}
	if err := survey.AskOne(prompt, &value, stdio); err != nil {
		return "", err
	}
	return value, nil
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, def bool) (bool, error) {
	answer := def
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}
	if err := survey.AskOne(prompt, &answer, stdio); err != nil {
		return false, err
	}
	return answer, nil
}

// ShowSection displays a section header
func ShowSection(title string) {
	bold := color.New(color.FgMagenta, color.Bold)
	bold.Fprintf(os.Stderr, "\n== %s ==\n\n", title)
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(os.Stderr, "✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(os.Stderr, "✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(os.Stderr, "! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Fprintln(os.Stderr, message)
}
