// Package cli implements the ggufd command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ggufd/internal/config"
	"ggufd/internal/llamacpp"
	"ggufd/internal/logging"
	"ggufd/internal/manager"
	"ggufd/internal/registry"
)

// Version is stamped at build time with -ldflags "-X ggufd/internal/cli.Version=...".
var Version = "dev"

// Seams replaced by tests.
var (
	fnNewRuntime = func(kind string) llamacpp.Runtime {
		if kind == "fake" {
			return llamacpp.NewFake("")
		}
		return llamacpp.New()
	}
	fnLoadRegistry = registry.LoadDir
)

// globalOpts are the persistent flags shared by every subcommand.
type globalOpts struct {
	configPath string
	envFile    string
	logLevel   string
	logConsole bool
	runtime    string

	stdout io.Writer
	stderr io.Writer
}

// Run executes the command tree with args and returns the first error.
func Run(args []string) error {
	root := buildRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(args)
	return root.Execute()
}

func buildRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOpts{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "ggufd",
		Short:         "Local GGUF inference engine",
		Long:          "ggufd loads one GGUF model through llama.cpp and serves greedy text generation over HTTP or from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file with GGUFD_* overrides (ignored if missing)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off (defaults GGUFD_LOG_LEVEL or info)")
	root.PersistentFlags().BoolVar(&g.logConsole, "log-console", false, "Human-readable log output instead of JSON")
	root.PersistentFlags().StringVar(&g.runtime, "runtime", "", "Model runtime: llama|fake (defaults GGUFD_RUNTIME or llama)")

	root.AddCommand(
		newServeCmd(g),
		newGenerateCmd(g),
		newMetadataCmd(g),
		newBackendCmd(g),
		newVersionCmd(g),
		newCompletionCmd(root, stdout),
	)
	return root
}

// resolve builds the effective config: file, then environment, then flags
// that were set explicitly on the command line.
func (g *globalOpts) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Resolve(g.configPath, g.envFile)
	if err != nil {
		return cfg, err
	}
	fl := cmd.Flags()
	if fl.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if fl.Changed("log-console") {
		cfg.LogConsole = g.logConsole
	}
	if fl.Changed("runtime") {
		cfg.Runtime = g.runtime
	}
	return cfg, cfg.Validate()
}

func (g *globalOpts) logger(cfg config.Config) (zerolog.Logger, io.Closer) {
	return logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cfg.LogConsole,
		Out:     g.stderr,
	})
}

// newManager wires a Manager from cfg. A missing models directory only
// leaves the registry empty.
func newManager(cfg config.Config, log zerolog.Logger) *manager.Manager {
	reg, err := fnLoadRegistry(cfg.ModelsDir)
	if err != nil {
		log.Warn().Err(err).Str("models_dir", cfg.ModelsDir).Msg("model registry unavailable")
	}
	mlog := log.With().Str("component", "manager").Logger()
	return manager.NewWithConfig(manager.ManagerConfig{
		Runtime:            fnNewRuntime(cfg.Runtime),
		Logger:             &mlog,
		Publisher:          manager.NewLogPublisher(log),
		Registry:           reg,
		DefaultContextSize: cfg.ContextSize,
		BatchWidth:         cfg.BatchWidth,
		Threads:            cfg.Threads,
		Memory:             manager.MemoryProfile{TotalVRAMGB: cfg.TotalVRAMGB},
	})
}

func newVersionCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(g.stdout, "ggufd %s (runtime %s)\n", Version, fnNewRuntime(g.runtime).Kind())
			return err
		},
	}
}

func newCompletionCmd(root *cobra.Command, out io.Writer) *cobra.Command {
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(out, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(out) }})
	return completionCmd
}
