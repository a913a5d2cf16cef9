package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/staffline/staffline-api/internal/call"
	"github.com/staffline/staffline-api/internal/endpoint"
	"github.com/staffline/staffline-api/internal/iocontext"
	"github.com/staffline/staffline-api/internal/outfmt"
	"github.com/staffline/staffline-api/internal/session"
	"github.com/staffline/staffline-api/internal/validation"
)

var (
	loginEndpoint = endpoint.Make(endpoint.POST, "auth", "login")
	meEndpoint    = endpoint.Make(endpoint.GET, "users", "me")
)

// loginResponse accepts both the flat and the nested login shapes.
type loginResponse struct {
	Token  string        `json:"token"`
	UserID int           `json:"userId"`
	Email  string        `json:"email"`
	User   *session.User `json:"user"`
	Data   *struct {
		Token string        `json:"token"`
		User  *session.User `json:"user"`
	} `json:"data"`
}

func (r loginResponse) session() (session.Session, bool) {
	token, user := r.Token, r.User
	if r.Data != nil {
		if token == "" {
			token = r.Data.Token
		}
		if user == nil {
			user = r.Data.User
		}
	}
	if token == "" {
		return session.Session{}, false
	}
	if user == nil {
		user = &session.User{ID: r.UserID, Email: r.Email}
	}
	return session.Session{Token: token, User: *user}, true
}

func newLoginCmd() *cobra.Command {
	var (
		email         string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: strings.TrimSpace(`
Log in with your Staffline email and password. The returned token and user
are stored in the session storage (OS keychain by default) and attached to
every later request.
`),
		Example: strings.TrimSpace(`
  sl login --email ada@example.com --password-stdin < pw.txt
  STAFFLINE_PASSWORD=secret sl login --email ada@example.com
  sl login --storage redis --email ada@example.com
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if err := validation.ValidateEmail(email); err != nil {
				return fmt.Errorf("invalid --email: %w", err)
			}
			if passwordStdin {
				line, err := bufio.NewReader(iocontext.GetIO(ctx).In).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				password = os.Getenv("STAFFLINE_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("--password, --password-stdin, or STAFFLINE_PASSWORD is required")
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := a.caller.Do(ctx, loginEndpoint, map[string]string{
				"email":    email,
				"password": password,
			})
			if out.Status.IsError {
				return failed(cmd, out)
			}

			var resp loginResponse
			if err := call.Decode(out.Res, &resp); err != nil {
				return fmt.Errorf("unexpected login response: %w", err)
			}
			s, ok := resp.session()
			if !ok {
				return fmt.Errorf("login response did not include a token")
			}
			if err := a.sessions.Save(ctx, s); err != nil {
				return err
			}
			a.store.SetAuthToken(s.Token, true)

			if isJSON(cmd) {
				return printJSON(cmd, sessionView(s))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", describeUser(s.User))
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sessions.Clear(ctx); err != nil {
				return err
			}
			a.store.SetAuthToken("", true)

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"logged_out": true})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user as the API sees it",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.restored == nil && env.Token == "" {
				return session.ErrNoSession
			}

			out := a.caller.Do(ctx, meEndpoint, nil)
			if out.Status.IsError {
				return failed(cmd, out)
			}

			var resp struct {
				Data session.User `json:"data"`
			}
			if err := call.Decode(out.Res, &resp); err != nil {
				return fmt.Errorf("unexpected /users/me response: %w", err)
			}
			if isJSON(cmd) {
				return printJSON(cmd, resp.Data)
			}

			f := outfmt.NewFormatter(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Pairs(
				[2]string{"ID", fmt.Sprint(resp.Data.ID)},
				[2]string{"Name", resp.Data.Name},
				[2]string{"Email", resp.Data.Email},
				[2]string{"Role", resp.Data.Role},
				[2]string{"Company", fmt.Sprint(resp.Data.CompanyID)},
			)
		}),
	}
}

func describeUser(u session.User) string {
	switch {
	case u.Name != "" && u.Role != "":
		return fmt.Sprintf("%s <%s> (%s)", u.Name, u.Email, u.Role)
	case u.Name != "":
		return fmt.Sprintf("%s <%s>", u.Name, u.Email)
	default:
		return u.Email
	}
}

// sessionView is the JSON shape for a session. It never includes the token.
func sessionView(s session.Session) map[string]any {
	view := map[string]any{"user": s.User}
	if exp, ok := session.Expiry(s.Token); ok {
		view["expires_at"] = exp.UTC().Format(time.RFC3339)
		view["expired"] = !exp.After(clock.Now())
	}
	return view
}
