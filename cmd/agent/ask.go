package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var conversation string
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Run one agent turn and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.buildAgent(ctx); err != nil {
				return err
			}

			reply := a.agent.Converse(ctx, conversation, strings.Join(args, " "))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
			return err
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "cli", "conversation id, reused across calls with a redis memory backend")
	return cmd
}
