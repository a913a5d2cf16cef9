package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/staffline/staffline-api/internal/endpoint"
	"github.com/staffline/staffline-api/internal/outfmt"
	"github.com/staffline/staffline-api/internal/session"
)

var healthEndpoint = endpoint.Make(endpoint.GET, "health")

type statusView struct {
	BaseURL   string        `json:"base_url"`
	Transport string        `json:"transport"`
	Storage   string        `json:"storage"`
	LoggedIn  bool          `json:"logged_in"`
	TokenFrom string        `json:"token_from,omitempty"`
	User      *session.User `json:"user,omitempty"`
	ExpiresAt string        `json:"expires_at,omitempty"`
	Reachable *bool         `json:"reachable,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connection and session status",
		Long: strings.TrimSpace(`
Show where requests go and which session they carry. Nothing is sent to the
API unless --check is given, which calls the health endpoint.
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			settings := a.store.Get()
			view := statusView{
				BaseURL:   settings.BaseURL,
				Transport: a.store.Kind().String(),
				Storage:   flags.Storage,
			}

			token := ""
			switch {
			case env.Token != "":
				token, view.TokenFrom = env.Token, "env"
			case a.restored != nil:
				token, view.TokenFrom = a.restored.Token, flags.Storage
				user := a.restored.User
				view.User = &user
			}
			view.LoggedIn = token != ""
			if exp, ok := session.Expiry(token); ok {
				view.ExpiresAt = exp.UTC().Format(time.RFC3339)
			}

			if check {
				out := a.caller.Do(ctx, healthEndpoint, nil)
				ok := !out.Status.IsError
				view.Reachable = &ok
			}

			if isJSON(cmd) {
				return printJSON(cmd, view)
			}

			pairs := [][2]string{
				{"Base URL", view.BaseURL},
				{"Transport", view.Transport},
				{"Storage", view.Storage},
				{"Logged in", yesNo(view.LoggedIn)},
			}
			if view.User != nil {
				pairs = append(pairs, [2]string{"User", describeUser(*view.User)})
			}
			if view.TokenFrom != "" {
				pairs = append(pairs, [2]string{"Token from", view.TokenFrom})
			}
			if view.ExpiresAt != "" {
				pairs = append(pairs, [2]string{"Expires", view.ExpiresAt})
			}
			if view.Reachable != nil {
				pairs = append(pairs, [2]string{"Reachable", yesNo(*view.Reachable)})
			}
			f := outfmt.NewFormatter(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err := f.Pairs(pairs...); err != nil {
				return err
			}
			if view.Reachable != nil && !*view.Reachable {
				return &handledError{err: fmt.Errorf("API at %s is not reachable", view.BaseURL), exitCode: exitNetwork}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Also call the health endpoint")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
