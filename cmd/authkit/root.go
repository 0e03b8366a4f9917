package main

import (
	"context"
	"errors"
	"io"

	"github.com/goliatone/go-authkit/config"
	"github.com/goliatone/go-authkit/logging"
	"github.com/spf13/cobra"
)

type runtimeState struct {
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
	writer     io.Writer
}

type runtimeKey struct{}

func newRootCommand(out io.Writer) *cobra.Command {
	rt := &runtimeState{writer: out}

	root := &cobra.Command{
		Use:           "authkit",
		Short:         "User login, role and mailbox service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rt.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			rt.cfg = cfg

			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			rt.logger = logger

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "Path to a YAML config file")
	config.RegisterFlags(root.PersistentFlags())

	root.SetOut(out)
	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newInboxCommand(),
		newSendCommand(),
		newNotifyCommand(),
		newConfigCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil || rt.cfg == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}
