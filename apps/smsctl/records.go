package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/NVK2907/sms-app-sub000/core/listing"
	"github.com/NVK2907/sms-app-sub000/core/school"
	"github.com/NVK2907/sms-app-sub000/services/api"
)

var entityNames = strings.Join(school.ResourceNames(), "|")

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// entityArgs resolves the entity (and the id, when withID) of a record command,
// after making sure there is a session.
func (cli *commandLine) entityArgs(cmd *cobra.Command, args []string, withID bool) (entity, int64, error) {
	e, err := lookupEntity(args[0])
	if err != nil {
		return nil, 0, err
	}
	var id int64
	if withID {
		if id, err = parseID(args[1]); err != nil {
			return nil, 0, err
		}
	}
	if err := cli.requireSession(cmd.Context(), cmd.Name()+" "+args[0]); err != nil {
		return nil, 0, err
	}
	return e, id, nil
}

func (cli *commandLine) newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list " + entityNames,
		Short: "List a page of records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.page < 1 {
				return errors.New("--page starts at 1")
			}
			e, _, err := cli.entityArgs(cmd, args, false)
			if err != nil {
				return err
			}
			return e.list(cmd.Context(), cli, opts)
		},
	}
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.size, "size", 0, "page size (default from config)")
	cmd.Flags().StringToStringVar(&opts.filters, "filter", nil, "filter, eg. --filter status=PRESENT (\""+listing.AllSentinel+"\" means any)")
	cmd.Flags().StringVar(&opts.keyword, "keyword", "", "free text search")
	return cmd
}

func (cli *commandLine) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get " + entityNames + " ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, id, err := cli.entityArgs(cmd, args, true)
			if err != nil {
				return err
			}
			return e.get(cmd.Context(), cli, id)
		},
	}
}

func (cli *commandLine) newCreateCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "create " + entityNames + " --data JSON",
		Short: "Create a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := cli.entityArgs(cmd, args, false)
			if err != nil {
				return err
			}
			return e.create(cmd.Context(), cli, []byte(data))
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "the record, as JSON")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (cli *commandLine) newUpdateCmd() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update " + entityNames + " ID --data JSON",
		Short: "Replace a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, id, err := cli.entityArgs(cmd, args, true)
			if err != nil {
				return err
			}
			return e.update(cmd.Context(), cli, id, []byte(data))
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "the record, as JSON")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func (cli *commandLine) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete " + entityNames + " ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, id, err := cli.entityArgs(cmd, args, true)
			if err != nil {
				return err
			}
			return e.delete(cmd.Context(), cli, id)
		},
	}
}

func (cli *commandLine) newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User account actions",
	}
	users := entities["users"].(typedEntity[school.User])

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle-status ID",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, id, err := cli.entityArgs(cmd, []string{"users", args[0]}, true)
			if err != nil {
				return err
			}
			res, ctrl := users.controller(cli, 0)
			return users.mutate(cmd.Context(), cli, ctrl, api.ToggleStatusMutation(res, id))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset-password ID",
		Short: "Set a new password; it is prompted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, id, err := cli.entityArgs(cmd, []string{"users", args[0]}, true)
			if err != nil {
				return err
			}
			pwd, err := cli.readPassword("New password:")
			if err != nil {
				return err
			}
			res, ctrl := users.controller(cli, 0)
			return users.mutate(cmd.Context(), cli, ctrl, api.ResetPasswordMutation(res, id, pwd))
		},
	})
	return cmd
}
