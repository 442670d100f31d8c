package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Creates or upgrades the schema. --demo seeds the dev_survey form and --blueprint
applies a YAML blueprint of dictionaries and forms in one transaction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := context.Background()
		logger := newLogger(cfg)

		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d at %s\n", version, cfg.Database.Path)

		svc := authoring.NewService(store, authoring.WithLogger(logger))
		if demo, _ := cmd.Flags().GetBool("demo"); demo {
			form, err := svc.SeedDemo(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "demo form %q has id %d\n", form.Code, form.ID)
		}

		if path, _ := cmd.Flags().GetString("blueprint"); path != "" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			bp, err := authoring.ParseBlueprint(f)
			if err != nil {
				return err
			}
			forms, err := svc.Apply(ctx, bp)
			if err != nil {
				return err
			}
			for _, form := range forms {
				fmt.Fprintf(cmd.OutOrStdout(), "form %q created with id %d\n", form.Code, form.ID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("demo", false, "Seed the dev_survey demo form")
	migrateCmd.Flags().StringP("blueprint", "f", "", "Apply a YAML blueprint after migrating")
}
