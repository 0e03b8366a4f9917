package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-authkit"
	"github.com/goliatone/go-authkit/messaging"
	"github.com/spf13/cobra"
)

func newSendCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "send <destination> <text>",
		Short: "Publish a message to the broker",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			if err := rt.cfg.Messaging.Validate(); err != nil {
				return err
			}

			components, err := messaging.New(rt.cfg.Messaging,
				messaging.WithLogger(rt.logger.Named("messaging")),
				messaging.WithHeaders(authkit.AuditorHeaders),
			)
			if err != nil {
				return err
			}
			defer components.Close()

			text := strings.Join(args[1:], " ")

			var payload any = text
			if asJSON {
				body := map[string]any{}
				if err := json.Unmarshal([]byte(text), &body); err != nil {
					return err
				}
				payload = body
			}

			if err := components.Sender().SendTo(cmd.Context(), args[0], payload); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Send the text as a JSON object")

	return cmd
}
