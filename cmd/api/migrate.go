package main

import (
	"lendledger/internal/infrastructure/db"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()
			if err := db.Migrate(st.db); err != nil {
				return err
			}
			logrus.WithField("driver", cfg.DBDriver).Info("migrate: schema up to date")
			return nil
		},
	}
}
