package cmd

import (
	"fmt"
	"os"

	"github.com/rexolve-ai/rexolve/internal/config"
	"github.com/rexolve-ai/rexolve/internal/provider"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgFile     string
	backendFlag string
	modelFlag   string
	apiBaseFlag string
	storageFlag string
	ephemeral   bool
	useTUI      bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rexolve",
		Short: "Talk through a decision with the PrepSeek assistant",
		Long: "rexolve is a chat client for thinking through decisions. Conversations are kept\n" +
			"as sessions on disk; each question is answered with the whole session as context.",
		// Running rexolve with no subcommand starts chat mode.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Default TUI on when stdout is a terminal and --tui was not explicitly set.
			if !cmd.Root().PersistentFlags().Changed("tui") && term.IsTerminal(int(os.Stdout.Fd())) {
				useTUI = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/rexolve/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "", "answering backend: prepseek, anthropic, openai, deepseek, ...")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model (LLM backends only)")
	rootCmd.PersistentFlags().StringVar(&apiBaseFlag, "api-base", "", "PrepSeek service root for /ask-doubt and /ocr")
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", "", "session storage driver: sqlite, file or memory")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep sessions in memory only (same as --storage memory)")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use bubbletea TUI mode (default: auto-detect terminal)")

	// Subcommands
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd(appVersion, appCommit, appDate))

	return rootCmd
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config values
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if apiBaseFlag != "" {
		cfg.APIBase = apiBaseFlag
	}
	if storageFlag != "" {
		cfg.Storage.Driver = storageFlag
	}
	if ephemeral {
		cfg.Storage.Driver = config.DriverMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerBaseURLs references the canonical map in the config package.
var providerBaseURLs = config.KnownProviderBaseURLs

// buildAnswerer creates the answering backend named by cfg.Backend.
func buildAnswerer(cfg *config.Config) (provider.Answerer, error) {
	name := cfg.Backend
	if name == config.DefaultBackend {
		return provider.NewDoubtClient(cfg.APIBase, nil), nil
	}

	pc := cfg.GetProviderConfig(name)
	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for backend %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY\n"+
				"  - run: rexolve init",
			name, name,
		)
	}

	// Determine model: CLI flag > config file > provider defaults YAML
	model := cfg.Model
	if pc.Model != "" && model == "" {
		model = pc.Model
	}
	if model == "" {
		model = config.KnownProviderModels[name]
	}

	switch name {
	case "anthropic":
		return provider.NewAnthropicProvider(apiKey, model), nil
	default:
		// All other backends use the OpenAI-compatible API
		baseURL := pc.BaseURL
		if baseURL == "" {
			u, ok := providerBaseURLs[name]
			if !ok {
				return nil, fmt.Errorf("unknown backend %q; set providers.%s.base_url in config", name, name)
			}
			baseURL = u
		}
		return provider.NewOpenAIProvider(apiKey, baseURL, model), nil
	}
}

// buildRecognizer returns the OCR endpoint client, or nil when OCR is off.
// OCR always goes to the PrepSeek service, whichever backend answers.
func buildRecognizer(cfg *config.Config) provider.Recognizer {
	if !cfg.OCR || cfg.APIBase == "" {
		return nil
	}
	return provider.NewDoubtClient(cfg.APIBase, nil)
}
