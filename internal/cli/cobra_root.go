package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X gradio/internal/cli.Version=...".
var Version = "dev"

// Config carries the persistent flags shared by every subcommand.
type Config struct {
	Token       string
	OutputDir   string
	ConfigFile  string
	LogLevel    string
	MetricsAddr string
	RegistryURL string

	Stdout io.Writer
	Stderr io.Writer
}

// Execute runs the gr command tree with args. It returns an error instead of
// exiting, enabling reuse from tests.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := &Config{
		Token:      envStr("HF_TOKEN", ""),
		ConfigFile: envStr("GR_CONFIG", ""),
		LogLevel:   envStr("GR_LOG_LEVEL", "warn"),
		Stdout:     stdout,
		Stderr:     stderr,
	}
	root := buildRootCmdWith(cfg)
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// buildRootCmdWith constructs the command tree bound to cfg.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "gr",
		Short:         "Gradio command line client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfg.Token, "token", "t", cfg.Token, "Hugging Face access token (defaults HF_TOKEN)")
	pf.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Directory to save returned files into; without it their URLs are printed")
	pf.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Config file (.toml|.yaml|.json, defaults GR_CONFIG)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error|off (defaults GR_LOG_LEVEL or warn)")
	pf.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve client metrics on this address while the command runs")
	pf.StringVar(&cfg.RegistryURL, "registry-url", cfg.RegistryURL, "Space registry base URL")
	_ = pf.MarkHidden("registry-url")

	runCmd := &cobra.Command{
		Use:     "run <app> <route> [args...]",
		Aliases: []string{"r"},
		Short:   "Perform a prediction",
		Example: "  gr run gradio/hello_world /predict World\n  gr -o out run owner/tts /synthesize \"hello\"",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), cmd, cfg, args[0], args[1], args[2:])
		},
	}
	listCmd := &cobra.Command{
		Use:     "list <app>",
		Aliases: []string{"ls"},
		Short:   "List routes in a Gradio app",
		Example: "  gr ls gradio/hello_world",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd, cfg, args[0])
		},
	}
	root.AddCommand(runCmd, listCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	root.AddCommand(completionCmd)

	root.SetVersionTemplate(fmt.Sprintf("gr %s\n", Version))
	return root
}
