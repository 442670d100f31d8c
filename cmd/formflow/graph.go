package main

import (
	"context"
	"fmt"

	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/internal/presentation/graph"
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <form_code>",
	Short: "Print a form as a Mermaid flowchart",
	Long: `Renders the steps and routes of a form as Mermaid. With --instance the steps the
instance has completed and its current step are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := context.Background()

		store, err := openStore(ctx, cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		form, err := store.GetFormByCode(ctx, args[0])
		if err != nil {
			return err
		}
		g, err := authoring.NewService(store).FormGraph(ctx, form.ID)
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if id, _ := cmd.Flags().GetInt64("instance"); id > 0 {
			state, err := formflow.New(store, formflow.WithSessionCache(nil)).State(ctx, id)
			if err != nil {
				return err
			}
			if state.FormID != form.ID {
				return fmt.Errorf("instance %d belongs to another form", id)
			}
			overlay = graph.OverlayFrom(state.Navigation)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Int64P("instance", "i", 0, "Highlight the progress of this instance")
}
