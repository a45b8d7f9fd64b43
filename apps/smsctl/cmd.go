package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/NVK2907/sms-app-sub000/core"
	"github.com/NVK2907/sms-app-sub000/core/session"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errReported    = errors.New("error already reported")
	errNotLoggedIn = errors.New("not logged in: run `smsctl login` first")
)

type commandLine struct {
	store  session.Store
	client *api.Client
	logger core.Logger
	out    io.Writer

	gate *session.Gate
}

func newCommandLine(store session.Store, client *api.Client, logger core.Logger, out io.Writer) *commandLine {
	cli := &commandLine{store: store, logger: logger, out: out}
	cli.gate = session.NewGate(store, api.NewAuth(client), logger)
	cli.client = client.WithTokens(cli.gate)
	return cli
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "smsctl",
		Short:         "School management system client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	cmd.SetOut(cli.out)
	cmd.SetErr(cli.out)

	cmd.AddCommand(cli.newLoginCmd())
	cmd.AddCommand(cli.newLogoutCmd())
	cmd.AddCommand(cli.newWhoamiCmd())
	cmd.AddCommand(cli.newHomeCmd())
	cmd.AddCommand(cli.newRegisterCmd())
	cmd.AddCommand(cli.newListCmd())
	cmd.AddCommand(cli.newGetCmd())
	cmd.AddCommand(cli.newCreateCmd())
	cmd.AddCommand(cli.newUpdateCmd())
	cmd.AddCommand(cli.newDeleteCmd())
	cmd.AddCommand(cli.newUsersCmd())
	return cmd
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	root := cli.newRootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(ctx)
}

// requireSession resolves the persisted session and fails unless it is authenticated.
func (cli *commandLine) requireSession(ctx context.Context, what string) error {
	cli.gate.Initialize(ctx)
	d := session.Authorize(cli.gate.State(), session.Route{Path: what}, what)
	if d.Verdict != session.Render {
		return errNotLoggedIn
	}
	return nil
}

func (cli *commandLine) readPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return strings.TrimRight(string(pwd), "\r\n"), nil
}

// failed prints the user facing message of err.
func (cli *commandLine) failed(err error, fallback string) error {
	fmt.Fprintf(cli.out, "✘ %s\n", core.UserMessage(err, fallback))
	return errReported
}
