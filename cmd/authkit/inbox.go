package main

import (
	"fmt"

	"github.com/goliatone/go-authkit/mail"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

func newInboxCommand() *cobra.Command {
	var peek bool

	cmd := &cobra.Command{
		Use:   "inbox <account>",
		Short: "Print the unread messages of a configured mail account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			sessions, err := mail.NewSessions(rt.cfg.Mail.Accounts...)
			if err != nil {
				return err
			}

			receiver, err := mail.ReceiverFor(sessions, args[0],
				mail.WithLogger(rt.logger.Named("mail")),
				mail.WithMarkSeen(rt.cfg.Mail.MarkSeen && !peek),
			)
			if err != nil {
				return err
			}

			messages, err := receiver.Emails(cmd.Context())
			if err != nil {
				return err
			}

			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no unread messages")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), print.MaybeHighlightJSON(messages))
			return nil
		},
	}

	cmd.Flags().BoolVar(&peek, "peek", false, "Leave messages unread")

	return cmd
}
