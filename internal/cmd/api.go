package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/staffline/staffline-api/internal/call"
	"github.com/staffline/staffline-api/internal/dryrun"
	"github.com/staffline/staffline-api/internal/endpoint"
	"github.com/staffline/staffline-api/internal/iocontext"
)

func newCallCmd() *cobra.Command {
	var (
		data   string
		fields []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "call VERB PATH [PATH...]",
		Short: "Call any API endpoint",
		Long: strings.TrimSpace(`
Send a request through the configured transport and print the response body
as JSON. Paths are relative to --base-url.

GET and DELETE send the payload as query parameters; POST, PUT and PATCH send
it as a JSON body. Several paths run concurrently with the same verb and
payload, and the results are printed as an array in argument order.
`),
		Example: strings.TrimSpace(`
  sl call GET /users/me
  sl call POST /attendance -f note=office
  sl call PATCH /attendance/12 -d '{"checkOut":true}'
  sl call GET /users/me /attendance --jq '.[1].data | length'
`),
		Args: cobra.MinimumNArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Unknown verbs are not rejected here: the dispatcher reports
			// them like any other failed call.
			verb := endpoint.Verb(strings.ToUpper(strings.TrimSpace(args[0])))

			payload, err := buildPayload(cmd, data, fields)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			paths := args[1:]
			if dryRun {
				return previewCalls(cmd, a, verb, paths, payload)
			}
			if len(paths) == 1 {
				out := a.caller.Do(ctx, endpoint.Make(verb, paths[0]), payload)
				if out.Status.IsError {
					return failed(cmd, out)
				}
				return printJSON(cmd, out.Res)
			}

			reqs := make([]call.Request, len(paths))
			for i, p := range paths {
				reqs[i] = call.Request{Endpoint: endpoint.Make(verb, p), Payload: payload}
			}
			outs := a.caller.DoAll(ctx, reqs)

			results := make([]any, len(outs))
			var firstErr *call.Outcome
			for i := range outs {
				if outs[i].Status.IsError {
					results[i] = map[string]any{"error": outs[i].Status, "data": outs[i].Res}
					if firstErr == nil {
						firstErr = &outs[i]
					}
					continue
				}
				results[i] = outs[i].Res
			}
			if err := printJSON(cmd, results); err != nil {
				return err
			}
			if firstErr != nil {
				err := firstErr.Err()
				return &handledError{err: err, exitCode: ExitCode(err)}
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "Request payload as JSON, @file, or - for stdin")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Payload field key=value (repeatable; key:=json for raw JSON)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the requests without sending them")
	return cmd
}

func previewCalls(cmd *cobra.Command, a *app, verb endpoint.Verb, paths []string, payload any) error {
	token, set := a.store.AuthToken()
	authenticated := set && token != ""
	baseURL := a.store.Get().BaseURL

	previews := make([]dryrun.Preview, len(paths))
	for i, p := range paths {
		previews[i] = dryrun.New(baseURL, endpoint.Make(verb, p), payload, authenticated)
	}
	if isJSON(cmd) {
		if len(previews) == 1 {
			return printJSON(cmd, previews[0])
		}
		return printJSON(cmd, previews)
	}
	for _, p := range previews {
		if err := p.Write(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}

// buildPayload merges --data and --field into one payload. Fields are only
// allowed on top of an object.
func buildPayload(cmd *cobra.Command, data string, fields []string) (any, error) {
	var payload any
	if data != "" {
		v, err := readData(data, iocontext.GetIO(cmd.Context()).In)
		if err != nil {
			return nil, err
		}
		payload = v
	}
	if len(fields) == 0 {
		return payload, nil
	}

	extra, err := parseFieldPairs(fields)
	if err != nil {
		return nil, err
	}
	switch base := payload.(type) {
	case nil:
		return extra, nil
	case map[string]any:
		for k, v := range extra {
			base[k] = v
		}
		return base, nil
	default:
		return nil, fmt.Errorf("--field requires --data to be a JSON object")
	}
}
