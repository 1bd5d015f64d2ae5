// Package prompt builds the system and user messages sent to the model.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const OverridesFileName = "prompts.yaml"

// Env vars that replace a single template
const (
	EnvSystemWithPane    = "SYSTEM_PROMPT_WITH_PANE"
	EnvUserWithPane      = "USER_PROMPT_WITH_PANE"
	EnvSystemWithoutPane = "SYSTEM_PROMPT_WITHOUT_PANE"
	EnvUserWithoutPane   = "USER_PROMPT_WITHOUT_PANE"
)

// Templates holds the four message templates. Placeholders are written as
// {pane_text}, {user_input}, {user_os}, {user_arch} and {user_shell}.
type Templates struct {
	SystemWithPane    string `yaml:"system_with_pane"`
	UserWithPane      string `yaml:"user_with_pane"`
	SystemWithoutPane string `yaml:"system_without_pane"`
	UserWithoutPane   string `yaml:"user_without_pane"`
}

// Vars are the values substituted into a template
type Vars struct {
	PaneText  string
	UserInput string
	OS        string
	Arch      string
	Shell     string
}

// Default returns the built-in templates
func Default() Templates {
	return Templates{
		SystemWithPane:    defaultSystemWithPane,
		UserWithPane:      defaultUserWithPane,
		SystemWithoutPane: defaultSystemWithoutPane,
		UserWithoutPane:   defaultUserWithoutPane,
	}
}

// Load returns the default templates with overrides applied, first from the
// YAML file at path (missing file is fine), then from environment variables.
func Load(path string, getenv func(string) string) (Templates, error) {
	t := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return t, fmt.Errorf("failed to read prompts file: %w", err)
		}
		if err == nil {
			var fromFile Templates
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return t, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
			}
			t = t.merge(fromFile)
		}
	}

	if getenv != nil {
		t = t.merge(Templates{
			SystemWithPane:    getenv(EnvSystemWithPane),
			UserWithPane:      getenv(EnvUserWithPane),
			SystemWithoutPane: getenv(EnvSystemWithoutPane),
			UserWithoutPane:   getenv(EnvUserWithoutPane),
		})
	}

	return t, nil
}

// GetOverridesPath returns ~/.ask-sh/prompts.yaml
func GetOverridesPath(configDir string) string {
	return filepath.Join(configDir, OverridesFileName)
}

// merge replaces every template that is set in o
func (t Templates) merge(o Templates) Templates {
	if o.SystemWithPane != "" {
		t.SystemWithPane = o.SystemWithPane
	}
	if o.UserWithPane != "" {
		t.UserWithPane = o.UserWithPane
	}
	if o.SystemWithoutPane != "" {
		t.SystemWithoutPane = o.SystemWithoutPane
	}
	if o.UserWithoutPane != "" {
		t.UserWithoutPane = o.UserWithoutPane
	}
	return t
}

// Render picks the pane or no-pane pair and fills in vars. The pane pair is
// used only when vars.PaneText is non-empty.
func (t Templates) Render(vars Vars) (system, user string) {
	r := strings.NewReplacer(
		"{pane_text}", vars.PaneText,
		"{user_input}", vars.UserInput,
		"{user_os}", vars.OS,
		"{user_arch}", vars.Arch,
		"{user_shell}", vars.Shell,
	)
	if vars.PaneText != "" {
		return r.Replace(t.SystemWithPane), r.Replace(t.UserWithPane)
	}
	return r.Replace(t.SystemWithoutPane), r.Replace(t.UserWithoutPane)
}

// DetectVars fills OS, arch and shell for the current process
func DetectVars(getenv func(string) string) Vars {
	return Vars{
		OS:    runtime.GOOS,
		Arch:  runtime.GOARCH,
		Shell: DetectShell(getenv),
	}
}

// DetectShell uses $SHELL, then the bash/zsh version variables, else "Unknown"
func DetectShell(getenv func(string) string) string {
	if shell := getenv("SHELL"); shell != "" {
		return shell
	}
	if getenv("BASH_VERSION") != "" {
		return "bash"
	}
	if getenv("ZSH_VERSION") != "" {
		return "zsh"
	}
	return "Unknown"
}

const defaultSystemWithPane = `
You are an AI assistant, tasked with helping command line users to accomplish their goals.
You're invoked through the ` + "`ask`" + ` command.
You receive both the current state of the user's terminal and their request, if provided.
Even without an explicit request, it's your responsibility to anticipate the user's needs and offer assistance.

Your answer should obey the rules below:
- Provide short and concise answers. Use bullet points if necessary.
- Any executable commands in your response should be enclosed in triple backticks like this:
` + "```" + `
ffmpeg -i input.mp4 -c:v libx264 -crf 23 -c:a aac -b:a 128k -ac 2 -ar 44100 output.mp4
` + "```" + `
- Do not include the language identifier such as ` + "```ruby or ```python" + ` at the start of the code block.
- Avoid awk or sed where another tool does the job; suggesting to install one is fine.

The user is operating on a {user_arch} machine, using {user_shell} on {user_os}.
`

const defaultUserWithPane = `
Terminal state:
{pane_text}
User's request:
{user_input}
`

const defaultSystemWithoutPane = `
You are an AI assistant that helps command line users on their terminal.
You're invoked through the ` + "`ask`" + ` command and given the user's request. Help them fulfill it.

Your answer should obey the rules below:
- Provide short and concise answers. Use bullet points if necessary.
- Any executable commands in your response should be enclosed in triple backticks like this:
` + "```" + `
ffmpeg -i input.mp4 -c:v libx264 -crf 23 -c:a aac -b:a 128k -ac 2 -ar 44100 output.mp4
` + "```" + `
- Do not include the language identifier such as ` + "```ruby or ```python" + ` at the start of the code block.
- Avoid awk or sed where another tool does the job; suggesting to install one is fine.

The user is operating on a {user_arch} machine, using {user_shell} on {user_os}.
`

const defaultUserWithoutPane = `
User's request: {user_input}
`
