package main

import (
	"fmt"

	"lendledger/internal/usecase/reminder"

	"github.com/spf13/cobra"
)

func remindCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the payment reminder sweep once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("lookahead") {
				cfg.ReminderLookaheadDays = days
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()
			sink := newSink(cfg, st)

			n, err := reminder.NewJob(st.loans, sink, cfg.ReminderLookaheadDays).Run(cmd.Context())
			// drain queued mail before exiting
			sink.Close()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminders\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "lookahead", 3, "days ahead to look for upcoming installments")
	return cmd
}
