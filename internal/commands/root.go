// Package commands provides CLI commands for chatstream.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/chatstream/internal/config"
	"github.com/diogo/chatstream/internal/logging"
	"github.com/diogo/chatstream/internal/tui"
)

var (
	// Global flags
	personaFlag  string
	endpointFlag string
	verboseFlag  bool
	logLevelFlag string

	// Query flags
	outputFlag string
	fileFlag   string
	rawFlag    bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chatstream [prompt]",
	Short: "Streaming chat client for NDJSON chat endpoints",
	Long: `chatstream sends a conversation to a chat endpoint and prints the reply
as it streams back, one JSON line per fragment.

Examples:
  chatstream chat                       Start interactive chat
  chatstream "What is Go?"              Send a single query
  chatstream -f prompt.md               Read prompt from file
  cat prompt.md | chatstream            Read prompt from stdin
  chatstream "Hello" -o chat.md         Save the transcript to a file
  chatstream serve                      Run a local test backend`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check for version flag
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(deps.Stdout, "chatstream %s (built %s)\n", Version, BuildTime)
			return nil
		}

		prompt, ok, err := readPrompt(args)
		if err != nil {
			return err
		}
		if !ok {
			return cmd.Help()
		}

		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		return runQuery(cmd.Context(), deps, cfg, prompt, rawFlag)
	},
}

// readPrompt picks the prompt from --file, then piped stdin, then the argument
func readPrompt(args []string) (string, bool, error) {
	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if hasPipedStdin(deps.Stdin) {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}
	return "", false, nil
}

// hasPipedStdin reports whether r is a pipe or file rather than a terminal
func hasPipedStdin(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// loadSettings merges the config file, environment and flags
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}
	cfg, err = config.LoadEnv(cfg)
	if err != nil {
		return cfg, err
	}
	cfg = applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if _, err := paletteFor(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("persona") {
		cfg.Persona = strings.TrimSpace(personaFlag)
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = strings.TrimSpace(endpointFlag)
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verboseFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if cfg.Verbose && !flags.Changed("log-level") {
		cfg.LogLevel = "debug"
	}
	return cfg
}

// setupLogging installs the file logger. A broken config or environment only
// degrades logging; the command itself reports those errors.
func setupLogging(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	cfg, _ = config.LoadEnv(cfg)
	cfg = applyFlags(cmd, cfg)

	logger, err := logging.Init(cfg)
	if err != nil {
		if cfg.Verbose {
			fmt.Fprintf(deps.Stderr, "[verbose] logging disabled: %v\n", err)
		}
		return nil
	}
	logger.Debug("command started",
		zap.String("command", cmd.CommandPath()),
		zap.String("version", Version),
	)
	return nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		tui.PrintError(err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&personaFlag, "persona", "p", "", "Persona whose system prompt opens the session")
	rootCmd.PersistentFlags().StringVarP(&endpointFlag, "endpoint", "e", "", "Chat endpoint URL")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Print diagnostics to stderr and log at debug level")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	_ = rootCmd.RegisterFlagCompletionFunc("persona", completePersonaNames)

	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the transcript to a file (.md or .json)")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print only the streamed reply text")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(personaCmd)
	rootCmd.AddCommand(serveCmd)
}
