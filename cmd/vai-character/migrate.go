package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-go/vai-character/pkg/config"
	"github.com/vango-go/vai-character/pkg/transcript/pgstore"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply transcript database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("%s_DATABASE_URL is required", config.EnvPrefix)
			}
			ctx := cmd.Context()
			store, err := pgstore.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			applied, err := store.Migrate(ctx)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				cmd.Println("transcript schema is up to date")
				return nil
			}
			for _, m := range applied {
				cmd.Printf("applied %05d %s\n", m.Version, m.Path)
			}
			return nil
		},
	}
}
