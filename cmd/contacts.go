package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/foomo/contactserver/contact"
	"github.com/foomo/contactserver/pkg/store"
	"github.com/foomo/contactserver/pkg/validate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewContactsCommand administers the contacts document without a running server
func NewContactsCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the contacts document directly",
	}

	addStoreFlags(cmd.PersistentFlags(), v)

	cmd.AddCommand(newContactsListCommand(v))
	cmd.AddCommand(newContactsShowCommand(v))
	cmd.AddCommand(newContactsAddCommand(v))
	cmd.AddCommand(newContactsDeleteCommand(v))

	return cmd
}

func newContactsListCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all contacts",
		Args:  cobra.NoArgs,
		RunE: withStore(v, func(cmd *cobra.Command, s *store.Store, args []string) error {
			contacts, err := s.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(contacts) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no contacts")
				return err
			}
			return printContacts(cmd.OutOrStdout(), contacts...)
		}),
	}
}

func newContactsShowCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a single contact",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(v, func(cmd *cobra.Command, s *store.Store, args []string) error {
			c, ok, err := s.FindByName(cmd.Context(), args[0])
			if err != nil {
				return err
			} else if !ok {
				return errors.Errorf("contact %q not found", args[0])
			}
			return printContacts(cmd.OutOrStdout(), c)
		}),
	}
}

func newContactsAddCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <email> <phone>",
		Short: "Add a contact",
		Args:  cobra.ExactArgs(3),
		RunE: withStore(v, func(cmd *cobra.Command, s *store.Store, args []string) error {
			c := contact.New(strings.TrimSpace(args[0]), strings.TrimSpace(args[1]), strings.TrimSpace(args[2]))
			if err := validate.Add(cmd.Context(), s, c); err != nil {
				return describeInvalid(err)
			}
			if err := s.Add(cmd.Context(), c); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %q\n", c.Name)
			return err
		}),
	}
}

func newContactsDeleteCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(v, func(cmd *cobra.Command, s *store.Store, args []string) error {
			ok, err := s.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			} else if !ok {
				return errors.Errorf("contact %q not found", args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return err
		}),
	}
}

func withStore(v *viper.Viper, fn func(cmd *cobra.Command, s *store.Store, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := openStore(cmd.Context(), v, zap.L())
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := s.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, s, args)
	}
}

func printContacts(w io.Writer, contacts ...contact.Contact) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tEMAIL\tPHONE")
	for _, c := range contacts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Email, c.Phone)
	}
	return tw.Flush()
}

func describeInvalid(err error) error {
	fields := validate.Fields(err)
	if len(fields) == 0 {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f.Error())
	}
	return errors.Errorf("invalid contact: %s", strings.Join(msgs, "; "))
}
