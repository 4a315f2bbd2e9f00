package tokenctl

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tokend/pkg/types"
)

// Config carries the persistent CLI settings.
type Config struct {
	Server  string
	Timeout time.Duration
	LogLvl  string
}

func defaultConfig() *Config {
	return &Config{
		Server:  envStr("TOKEND_URL", "http://localhost:5001"),
		Timeout: 30 * time.Second,
		LogLvl:  envStr("TOKENCTL_LOG_LEVEL", "info"),
	}
}

// Main builds and executes the command tree.
func Main() {
	root := buildRootCmdWith(defaultConfig())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// buildRootCmdWith constructs a Cobra command tree wired to a shared Client.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "tokenctl",
		Short:         "Smoke-test utilities for a running tokend server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("server", cfg.Server, "Base URL of the server (defaults TOKEND_URL or http://localhost:5001)")
	root.PersistentFlags().Duration("timeout", cfg.Timeout, "Request timeout")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults TOKENCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("server"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Server = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("timeout"); f != nil {
			if d, err := time.ParseDuration(f.Value.String()); err == nil && d > 0 {
				cfg.Timeout = d
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}
	client := func() *Client { return NewClient(cfg.Server, cfg.Timeout) }

	healthCmd := &cobra.Command{Use: "health", Short: "Print server health and loaded models", Example: "  tokenctl health", RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client().Health()
		if err != nil {
			return err
		}
		info("status=%s embedding=%v", h.Status, h.EmbeddingModelLoaded)
		for lang, loaded := range h.ModelsLoaded {
			info("  %-10s loaded=%v model=%s", lang, loaded, h.ModelNames[lang])
		}
		return nil
	}}

	tokenizeCmd := &cobra.Command{Use: "tokenize <text>", Short: "Tokenize text and print aligned spans", Example: `  tokenctl tokenize "Hello world"`, Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := client().TokenizeDisplay(args[0])
		if err != nil {
			return err
		}
		info("lang=%s model=%s tokens=%d match=%v misses=%d", resp.DetectedLanguage, resp.ModelUsed, resp.TokenCount, resp.Match, resp.AlignmentMisses)
		for _, tp := range resp.TokenPositions {
			debug("  [%d:%d] %q (id=%d subword=%v)", tp.Start, tp.End, tp.Token, tp.TokenID, tp.IsSubword)
		}
		return nil
	}}

	predictCmd := &cobra.Command{Use: "predict <text> <pos>...", Short: "Predict top-5 candidates for masked positions", Example: `  tokenctl predict "Hello world" 0 1`, Args: cobra.MinimumNArgs(2), RunE: func(cmd *cobra.Command, args []string) error {
		positions, err := parsePositions(args[1:])
		if err != nil {
			return err
		}
		resp, err := client().PredictTokens(args[0], positions)
		if err != nil {
			return err
		}
		printPredictions(resp)
		return nil
	}}

	contextCmd := &cobra.Command{Use: "context <text> <pos>...", Short: "Predict top-3 candidates for masked positions", Args: cobra.MinimumNArgs(2), RunE: func(cmd *cobra.Command, args []string) error {
		positions, err := parsePositions(args[1:])
		if err != nil {
			return err
		}
		resp, err := client().PredictContext(args[0], positions)
		if err != nil {
			return err
		}
		printPredictions(resp)
		return nil
	}}

	embedCmd := &cobra.Command{Use: "embed <text>...", Short: "Embed texts and print dimensions", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		task, _ := cmd.Flags().GetString("task")
		resp, err := client().Embed(args, task)
		if err != nil {
			return err
		}
		info("embedded %d texts, dim=%d task=%s", len(resp.Embeddings), resp.Dimension, resp.Task)
		return nil
	}}
	embedCmd.Flags().String("task", "", "Embedding task hint (default text-matching)")

	smokeCmd := &cobra.Command{Use: "smoke", Short: "Run the server's built-in smoke checks", Example: "  tokenctl smoke", RunE: func(cmd *cobra.Command, args []string) error {
		c := client()
		tok, err := c.Test()
		if err != nil {
			return err
		}
		info("tokenize smoke: tokens=%d match=%v", tok.TokenCount, tok.Match)
		if !tok.Match {
			warn("reconstruction mismatch: %q", tok.Reconstructed)
		}
		mlm, err := c.TestMLM()
		if err != nil {
			return err
		}
		printPredictions(mlm)
		return nil
	}}

	root.AddCommand(healthCmd, tokenizeCmd, predictCmd, contextCmd, embedCmd, smokeCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}

func parsePositions(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("position %q is not an integer", a)
		}
		out = append(out, n)
	}
	return out, nil
}

func printPredictions(resp types.PredictResponse) {
	info("lang=%s model=%s positions=%d", resp.DetectedLanguage, resp.ModelUsed, len(resp.Predictions))
	for _, p := range resp.Predictions {
		info("  position %d (was %q, p=%.4f):", p.Position, p.OriginalToken, p.OriginalProbability)
		for _, c := range p.Predictions {
			info("    %-15s p=%.4f", c.Token, c.Probability)
		}
	}
}
