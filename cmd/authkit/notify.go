package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-authkit/mail"
	"github.com/spf13/cobra"
)

func newNotifyCommand() *cobra.Command {
	var (
		subject string
		html    bool
	)

	cmd := &cobra.Command{
		Use:   "notify <recipient> <body>",
		Short: "Send an email through the configured SMTP relay",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			if err := rt.cfg.Mail.SMTP.Validate(); err != nil {
				return err
			}

			sender := mail.NewSender(rt.cfg.Mail.SMTP, mail.WithSenderLogger(rt.logger.Named("smtp")))

			err = sender.Send(cmd.Context(), mail.Envelope{
				To:      []string{args[0]},
				Subject: subject,
				Body:    strings.Join(args[1:], " "),
				HTML:    html,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "authkit notification", "Message subject")
	cmd.Flags().BoolVar(&html, "html", false, "Send the body as HTML")

	return cmd
}
