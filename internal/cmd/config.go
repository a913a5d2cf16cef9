package cmd

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/staffline/staffline-api/internal/outfmt"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the settings requests are built from",
		Long: strings.TrimSpace(`
Show the effective settings after flags, environment and .env files are
applied. The auth token is never printed.
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			s := a.store.Get()
			token, set := a.store.AuthToken()
			hasToken := set && token != ""
			headers := make([]string, 0, len(s.DefaultHeaders))
			for k := range s.DefaultHeaders {
				headers = append(headers, k)
			}
			slices.Sort(headers)

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"base_url":     s.BaseURL,
					"timeout":      s.Timeout.String(),
					"transport":    a.store.Kind().String(),
					"storage":      flags.Storage,
					"redis_addr":   flags.RedisAddr,
					"headers":      s.DefaultHeaders,
					"token_set":    hasToken,
					"version":      a.store.Version(),
					"metrics_file": flags.MetricsFile,
				})
			}

			f := outfmt.NewFormatter(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr())
			pairs := [][2]string{
				{"Base URL", s.BaseURL},
				{"Timeout", s.Timeout.String()},
				{"Transport", a.store.Kind().String()},
				{"Storage", flags.Storage},
			}
			if flags.Storage == storageRedis {
				pairs = append(pairs, [2]string{"Redis", flags.RedisAddr})
			}
			for _, k := range headers {
				pairs = append(pairs, [2]string{"Header " + k, s.DefaultHeaders[k]})
			}
			pairs = append(pairs, [2]string{"Token set", yesNo(hasToken)})
			return f.Pairs(pairs...)
		}),
	}
}
