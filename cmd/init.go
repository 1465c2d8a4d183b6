package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rexolve-ai/rexolve/internal/config"
	"github.com/spf13/cobra"
)

var initBackends = []string{"prepseek", "anthropic", "openai", "deepseek", "groq", "qwen", "kimi"}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up rexolve: choose a backend, enter its address or API key, and save the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			return runInit(cmd, path)
		},
	}
}

func runInit(cmd *cobra.Command, configPath string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	fmt.Fprintln(out, "Welcome to the rexolve configuration wizard!")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Available backends:")
	for i, b := range initBackends {
		fmt.Fprintf(out, "  %d. %s\n", i+1, b)
	}
	selected := 0
	if n, err := strconv.Atoi(ask(fmt.Sprintf("\nSelect backend (1-%d) [1]: ", len(initBackends)))); err == nil && n >= 1 && n <= len(initBackends) {
		selected = n - 1
	}
	backend := initBackends[selected]
	fmt.Fprintf(out, "Selected: %s\n\n", backend)

	cfg := config.DefaultConfig()
	cfg.Backend = backend

	if v := ask(fmt.Sprintf("PrepSeek service URL (used for answers and OCR) [%s]: ", config.DefaultAPIBase)); v != "" {
		cfg.APIBase = v
	}

	if backend != config.DefaultBackend {
		apiKey := ask(fmt.Sprintf("Enter API key for %s: ", backend))
		if apiKey == "" {
			return fmt.Errorf("API key cannot be empty")
		}
		cfg.Providers[backend] = &config.ProviderConfig{APIKey: apiKey}
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "\nConfig file already exists at %s\n", configPath)
		if strings.ToLower(ask("Overwrite? [y/N]: ")) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfig saved to %s\n", configPath)
	fmt.Fprintln(out, "You can now run: rexolve")
	return nil
}
