package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/staffline/staffline-api/internal/config"
	"github.com/staffline/staffline-api/internal/debug"
	"github.com/staffline/staffline-api/internal/iocontext"
	"github.com/staffline/staffline-api/internal/outfmt"
	"github.com/staffline/staffline-api/internal/validation"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output    string
	JSON      bool
	JQ        string
	Compact   bool
	Quiet     bool
	Debug     bool
	BaseURL   string
	Timeout   time.Duration
	Transport string
	Storage   string
	RedisAddr string
	EnvFile   string
	// MetricsFile receives call metrics in the Prometheus text format.
	MetricsFile string
}

// flags is reset at the start of every Execute call so tests get clean
// state. Reading it outside a command's RunE sees the previous run.
var flags rootFlags

// env holds the environment read at the start of Execute.
var env config.Env

func defaultStorage() string {
	if v := strings.TrimSpace(os.Getenv("STAFFLINE_STORAGE")); v != "" {
		return strings.ToLower(v)
	}
	return storageKeyring
}

func defaultRedisAddr() string {
	if v := strings.TrimSpace(os.Getenv("STAFFLINE_REDIS_ADDR")); v != "" {
		return v
	}
	return "localhost:6379"
}

// loadDotEnv loads .env from the working directory and from the user config
// directory. Variables already set in the environment win.
func loadDotEnv(extra string) error {
	if extra != "" {
		if err := godotenv.Load(extra); err != nil {
			return fmt.Errorf("failed to load env file %q: %w", extra, err)
		}
	}
	candidates := []string{".env"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "staffline", ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
	return nil
}

// envFileArg finds --env-file before cobra parses flags, since the env must
// be loaded before flag defaults are computed.
func envFileArg(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	if err := loadDotEnv(envFileArg(args)); err != nil {
		return err
	}
	e, err := config.LoadEnv()
	if err != nil {
		return err
	}
	env = e

	flags = rootFlags{
		Output:    "text",
		BaseURL:   env.BaseURL,
		Timeout:   env.Timeout,
		Transport: env.Transport,
		Storage:   defaultStorage(),
		RedisAddr: defaultRedisAddr(),
	}
	if flags.BaseURL == "" {
		flags.BaseURL = config.DefaultBaseURL
	}
	if flags.Timeout == 0 {
		flags.Timeout = config.DefaultTimeout
	}

	root := &cobra.Command{
		Use:                "sl",
		Short:              "Command-line client for the Staffline workforce API",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true, // enhanceUnknownError provides did-you-mean
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if flags.JSON {
				if cmd.Flags().Changed("output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)
			if flags.JQ != "" {
				ctx = outfmt.WithQuery(ctx, flags.JQ)
			}

			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}
			if err := validation.ValidateBaseURL(flags.BaseURL); err != nil {
				return fmt.Errorf("invalid --base-url: %w", err)
			}

			ioStreams := iocontext.GetIO(ctx)
			if flags.Quiet {
				ioStreams = &iocontext.IO{Out: ioStreams.Out, ErrOut: io.Discard, In: ioStreams.In}
			}
			ctx = iocontext.WithIO(ctx, ioStreams)
			cmd.SetOut(ioStreams.Out)
			cmd.SetErr(ioStreams.ErrOut)

			debug.SetupLogger(ioStreams.ErrOut, flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)
	streams := iocontext.GetIO(ctx)
	root.SetOut(streams.Out)
	root.SetErr(streams.ErrOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVar(&flags.JQ, "jq", "", "jq expression to filter JSON output (implies --output json)")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress error notifications on stderr")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	pf.StringVar(&flags.BaseURL, "base-url", flags.BaseURL, "API base URL (env STAFFLINE_BASE_URL)")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (env STAFFLINE_TIMEOUT)")
	pf.StringVar(&flags.Transport, "transport", flags.Transport, "Transport: http|direct|fake (env STAFFLINE_TRANSPORT)")
	pf.StringVar(&flags.Storage, "storage", flags.Storage, "Session storage: keyring|redis|memory (env STAFFLINE_STORAGE)")
	pf.StringVar(&flags.RedisAddr, "redis-addr", flags.RedisAddr, "Redis address for --storage redis (env STAFFLINE_REDIS_ADDR)")
	pf.StringVar(&flags.EnvFile, "env-file", "", "Load environment variables from this file first")
	pf.StringVar(&flags.MetricsFile, "metrics-file", "", "Write call metrics to this file (Prometheus text format)")

	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newMockServerCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command
// and flag errors.
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		if unknown := extractQuoted(msg); unknown != "" {
			var names []string
			for _, c := range root.Commands() {
				if c.IsAvailableCommand() {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestion := suggestCommand(unknown, names); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestion)
			}
		}
		return msg
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "unknown shorthand flag") {
		unknown := extractFlag(msg)
		if unknown == "" {
			return msg
		}
		seen := make(map[string]bool)
		var names []string
		addFlags := func(fs *pflag.FlagSet) {
			fs.VisitAll(func(f *pflag.Flag) {
				if name := "--" + f.Name; !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			})
		}
		helpCmd := "sl --help"
		if targetCmd != nil {
			addFlags(targetCmd.Flags())
			addFlags(targetCmd.InheritedFlags())
			helpCmd = targetCmd.CommandPath() + " --help"
		} else {
			addFlags(root.PersistentFlags())
		}
		if suggestion := suggestFlag(unknown, names); suggestion != "" {
			return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestion, helpCmd)
		}
		return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
	}

	return msg
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag name (e.g., "--foo") from an error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		return ""
	}
	rest := s[idx:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimRight(rest, ".,;:!?\"'")
}
