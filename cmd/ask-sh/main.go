package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/iishyfishyy/ask-sh/internal/agent"
	"github.com/iishyfishyy/ask-sh/internal/config"
	"github.com/iishyfishyy/ask-sh/internal/executor"
	"github.com/iishyfishyy/ask-sh/internal/history"
	"github.com/iishyfishyy/ask-sh/internal/llm"
	"github.com/iishyfishyy/ask-sh/internal/pane"
	"github.com/iishyfishyy/ask-sh/internal/prompt"
	"github.com/iishyfishyy/ask-sh/internal/shellinit"
	"github.com/iishyfishyy/ask-sh/internal/ui"

	"github.com/spf13/cobra"
)

const binaryName = "ask-sh"

var (
	// version is set at build time with -ldflags "-X main.version=..."
	version = "dev"

	// CLI flags
	debug        bool
	noPane       bool
	noSuggest    bool
	initScript   bool
	providerName string
	modelName    string
	baseURL      string
	timeout      time.Duration

	historyLimit int
	historyClear bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags are only read before the first
// request word, so requests like "what does tar -xzf do" pass through intact.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          binaryName + " [request]",
		Short:        "Ask an LLM for help from your terminal",
		Long:         "ask-sh sends your request, and optionally the visible tmux pane, to an LLM and suggests shell commands",
		Version:      version,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runAsk,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&noPane, "no-pane", false, "Do not send the tmux pane contents")
	rootCmd.Flags().BoolVar(&noSuggest, "no-suggest", false, "Do not print or offer suggested commands")
	rootCmd.Flags().BoolVar(&initScript, "init", false, "Print the shell function to add to your rc file")
	rootCmd.Flags().StringVar(&providerName, "provider", "", "LLM provider (openai or anthropic)")
	rootCmd.Flags().StringVar(&modelName, "model", "", "Model identifier")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible API base URL")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall time allowed for a request")
	rootCmd.Flags().SetInterspersed(false)

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the LLM provider, model and API key",
		Args:  cobra.NoArgs,
		RunE:  runConfigure,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show past requests and suggested commands",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all history")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(historyCmd)

	return rootCmd
}

// loadSettings layers the config file, environment and command-line flags
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	if debug {
		configPath, _ := config.GetConfigPath()
		fmt.Fprintf(os.Stderr, "[DEBUG] Config: loading from %s\n", configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	getenv := os.Getenv
	if providerName != "" {
		getenv = func(key string) string {
			if key == config.EnvProvider {
				return providerName
			}
			return os.Getenv(key)
		}
	}

	s := config.Resolve(cfg, getenv)
	if modelName != "" {
		s.LLM.Model = modelName
	}
	if cmd.Flags().Changed("base-url") {
		s.LLM.BaseURL = baseURL
	}
	s.Debug = s.Debug || debug
	s.LLM.Debug = s.Debug
	s.NoPane = s.NoPane || noPane
	s.NoSuggest = s.NoSuggest || noSuggest

	return s, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if initScript {
		fmt.Print(shellinit.Script(binaryName))
		return nil
	}

	var request string
	if len(args) > 0 {
		request = strings.Join(args, " ")
	} else {
		if ui.IsTerminal(os.Stdin) {
			return cmd.Help()
		}
		line, err := readRequest(os.Stdin)
		if err != nil {
			return err
		}
		request = line
	}

	request, toggles := stripInlineFlags(request)
	debug = debug || toggles.debug
	noPane = noPane || toggles.noPane
	noSuggest = noSuggest || toggles.noSuggest

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	if settings.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Main: starting with request: %q\n", request)
		fmt.Fprintf(os.Stderr, "[DEBUG] Config: %s\n", settings.LLM)
		fmt.Fprintf(os.Stderr, "[DEBUG] Config: no_pane=%v no_suggest=%v history=%v timeout=%s\n",
			settings.NoPane, settings.NoSuggest, settings.History, timeout)
	}

	provider, err := llm.NewProvider(settings.LLM)
	if err != nil {
		if errors.Is(err, llm.ErrConfig) && settings.LLM.APIKey == "" {
			ui.ShowInfo(fmt.Sprintf("Set %s or run '%s configure'", config.KeyEnvVar(settings.LLM.Provider), binaryName))
		}
		return err
	}

	configDir, err := config.GetConfigDir()
	if err != nil {
		return err
	}

	templates, err := prompt.Load(prompt.GetOverridesPath(configDir), os.Getenv)
	if err != nil {
		return err
	}

	var paneSource agent.PaneSource
	if !settings.NoPane {
		capturer := pane.NewCapturer()
		capturer.SetDebug(settings.Debug)
		if capturer.Available() {
			paneSource = capturer
		} else {
			fmt.Fprintf(os.Stderr, "*** Note: terminal output is not sent to the model. Run inside tmux to enable it, or pass --no-pane (or set %s=true) to hide this note. ***\n\n", config.EnvNoPane)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Debug lines from the providers write to stderr directly, so the
	// spinner only runs without --debug.
	out := color.Error
	var logOut io.Writer = os.Stderr
	var spinner *ui.Spinner
	if ui.IsTerminal(os.Stderr) && !settings.Debug {
		spinner = ui.NewSpinner(os.Stderr, "Thinking...")
		spinner.Start()
		defer spinner.Stop()
		out = spinner.StopOnWrite(out)
		logOut = spinner.StopOnWrite(logOut)
	}

	ag := agent.NewLLMAgent(provider, templates, prompt.DetectVars(os.Getenv), paneSource, out)
	ag.SetDebug(settings.Debug)
	ag.SetLog(logOut)

	resp, err := ag.Ask(ctx, agent.Request{Input: request, UsePane: paneSource != nil})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	if resp.Text == "" && len(resp.Errors) > 0 {
		return fmt.Errorf("no reply received from %s", provider.Name())
	}

	entryID := recordHistory(ctx, settings, provider, request, resp.Commands)

	if settings.NoSuggest || len(resp.Commands) == 0 {
		return nil
	}

	if !ui.IsInteractive() {
		for _, command := range resp.Commands {
			fmt.Println(command)
		}
		return nil
	}

	return offerCommands(ctx, settings, resp.Commands, entryID)
}

// offerCommands lets the user pick a suggested command and run or copy it
func offerCommands(ctx context.Context, settings config.Settings, commands []string, entryID int64) error {
	command, err := ui.SelectCommand(commands)
	if err != nil {
		return fmt.Errorf("failed to select command: %w", err)
	}

	action, err := ui.ConfirmCommand(command)
	if err != nil {
		return fmt.Errorf("failed to get user confirmation: %w", err)
	}

	switch action {
	case ui.ActionRun:
		if settings.Debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] User: chose to run command\n")
		}
		markChosen(settings, entryID, command, true)
		// The request deadline does not apply to the command itself
		if err := executor.ExecuteWithDebug(context.WithoutCancel(ctx), command, settings.Debug); err != nil {
			ui.ShowError(fmt.Sprintf("Command failed: %v", err))
		}
	case ui.ActionCopy:
		if err := clipboard.WriteAll(command); err != nil {
			ui.ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		} else {
			ui.ShowSuccess("Command copied to clipboard!")
		}
		markChosen(settings, entryID, command, false)
	default:
		ui.ShowInfo("Cancelled")
	}

	return nil
}

// recordHistory stores the invocation and returns its entry ID, or 0 when
// history is disabled or unavailable. Failures never fail the request.
func recordHistory(ctx context.Context, settings config.Settings, provider llm.Provider, request string, commands []string) int64 {
	if !settings.History {
		return 0
	}

	store, err := openHistory()
	if err != nil {
		if settings.Debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] History: %v\n", err)
		}
		return 0
	}
	defer store.Close()

	id, err := store.Add(context.WithoutCancel(ctx), history.Entry{
		Request:  request,
		Provider: provider.Name(),
		Model:    provider.Model(),
		Commands: commands,
	})
	if err != nil {
		ui.ShowWarning(fmt.Sprintf("Failed to save history: %v", err))
		return 0
	}
	if settings.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] History: saved entry %d (%d commands)\n", id, len(commands))
	}
	return id
}

func markChosen(settings config.Settings, id int64, command string, executed bool) {
	if id == 0 {
		return
	}
	store, err := openHistory()
	if err != nil {
		return
	}
	defer store.Close()

	if err := store.MarkChosen(context.Background(), id, command, executed); err != nil && settings.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] History: %v\n", err)
	}
}

func openHistory() (*history.Store, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return history.Open(history.GetHistoryPath(configDir))
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	if historyClear {
		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		ui.ShowSuccess("History cleared")
		return nil
	}

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		ui.ShowInfo("No history yet")
		return nil
	}

	faint := color.New(color.Faint)
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	for _, e := range entries {
		age := ui.FormatAge(e.Timestamp)
		if age != "just now" {
			age += " ago"
		}
		faint.Printf("%s  %s/%s\n", age, e.Provider, e.Model)
		bold.Printf("  %s\n", e.Request)
		for _, c := range e.Commands {
			marker := " "
			if c == e.Chosen {
				marker = "*"
				if e.Executed {
					marker = ">"
				}
			}
			cyan.Printf("  %s %s\n", marker, c)
		}
		fmt.Println()
	}

	return nil
}

func runConfigure(cmd *cobra.Command, args []string) error {
	ui.ShowSection("ask-sh Configuration")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	current := cfg.Provider
	if current == "" {
		current = config.DefaultProvider
	}
	provider, err := ui.SelectProvider([]string{llm.ProviderOpenAI, llm.ProviderAnthropic}, current)
	if err != nil {
		return err
	}

	model := cfg.Model
	if model == "" || provider != current {
		model = config.DefaultModel(provider)
	}
	model, err = ui.PromptInput("Model:", model)
	if err != nil {
		return err
	}

	base := ""
	if provider == llm.ProviderOpenAI {
		base, err = ui.PromptInput("API base URL (empty for api.openai.com):", cfg.BaseURL)
		if err != nil {
			return err
		}
	}

	keyVar := config.KeyEnvVar(provider)
	storeKey, err := ui.PromptYesNo(fmt.Sprintf("Store the API key in the config file? (otherwise $%s is used)", keyVar), cfg.APIKey != "")
	if err != nil {
		return err
	}
	apiKey := ""
	if storeKey {
		apiKey, err = ui.PromptSecret("API key:")
		if err != nil {
			return err
		}
		if apiKey == "" && provider == cfg.Provider {
			apiKey = cfg.APIKey
		}
	}

	keepHistory, err := ui.PromptYesNo("Keep a local history of requests?", cfg.History == nil || *cfg.History)
	if err != nil {
		return err
	}

	cfg.Provider = provider
	cfg.Model = strings.TrimSpace(model)
	cfg.BaseURL = strings.TrimSpace(base)
	cfg.APIKey = strings.TrimSpace(apiKey)
	cfg.History = &keepHistory

	// Catch a bad base URL or missing key before saving
	s := config.Resolve(cfg, os.Getenv)
	if _, err := llm.NewProvider(s.LLM); err != nil {
		if !errors.Is(err, llm.ErrConfig) || s.LLM.APIKey != "" {
			return err
		}
		ui.ShowWarning(fmt.Sprintf("No API key found. Set %s before using %s.", keyVar, binaryName))
	}

	if err := config.Save(cfg); err != nil {
		return err
	}

	configPath, _ := config.GetConfigPath()
	ui.ShowSuccess(fmt.Sprintf("Configuration saved to %s", configPath))
	return nil
}
