package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NVK2907/sms-app-sub000/core/school"
	"github.com/NVK2907/sms-app-sub000/core/session"
)

func (cli *commandLine) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME",
		Short: "Log in; the password is prompted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.readPassword("Enter password:")
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			usr, err := cli.gate.Login(cmd.Context(), session.Credentials{Username: args[0], Password: pwd})
			if err != nil {
				return cli.failed(err, "Login failed. Please try again.")
			}
			fmt.Fprintf(cli.out, "Logged in as %s (%s)\n", usr.DisplayName(), usr.PrimaryRole())
			return nil
		},
	}
}

func (cli *commandLine) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.gate.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cli.out, "Logged out")
			return nil
		},
	}
}

func (cli *commandLine) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.requireSession(cmd.Context(), "whoami"); err != nil {
				return err
			}
			usr := cli.gate.State().Identity
			fmt.Fprintf(cli.out, "%s (%s)\n", usr.DisplayName(), usr.Username)
			fmt.Fprintf(cli.out, "role: %s\n", usr.PrimaryRole())
			if usr.Email != "" {
				fmt.Fprintf(cli.out, "email: %s\n", usr.Email)
			}
			if exp, ok := session.TokenExpiry(cli.gate.Token()); ok {
				fmt.Fprintf(cli.out, "session expires: %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func (cli *commandLine) newHomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show where the logged in user lands, and what they can manage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cli.gate.Initialize(cmd.Context())
			st := cli.gate.State()
			d := session.DispatchRoot(st)
			fmt.Fprintln(cli.out, d.Location)
			if d.Location == session.LoginPath {
				return nil
			}
			for _, name := range school.RoleResources[st.Role()] {
				fmt.Fprintf(cli.out, "  %s\n", name)
			}
			return nil
		},
	}
}

func (cli *commandLine) newRegisterCmd() *cobra.Command {
	var reg session.Registration

	cmd := &cobra.Command{
		Use:   "register USERNAME",
		Short: "Create an account; the password is prompted. It does not log in.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg.Username = args[0]
			pwd, err := cli.readPassword("Choose a password:")
			if err != nil {
				return err
			}
			reg.Password = pwd
			usr, err := cli.gate.Register(cmd.Context(), reg)
			if err != nil {
				return cli.failed(err, "Registration failed. Please try again.")
			}
			fmt.Fprintf(cli.out, "✔ Registered %s; you can now log in\n", usr.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.FullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVar(&reg.Role, "role", "", "admin, teacher or student")
	return cmd
}
