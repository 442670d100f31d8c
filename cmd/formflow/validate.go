package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/formflow/internal/validator"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [form_code...]",
	Short: "Check forms for unreachable steps and dead ends",
	Long:  `Checks the named forms, or every form when none is named, and reports each problem found.`,
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

		var forms []domain.Form
		if len(args) == 0 {
			if forms, err = store.ListForms(ctx); err != nil {
				return err
			}
		}
		for _, code := range args {
			form, err := store.GetFormByCode(ctx, code)
			if err != nil {
				return err
			}
			forms = append(forms, *form)
		}

		failed := 0
		for _, form := range forms {
			err := validator.ValidateForm(ctx, store, form.ID)
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "form %q is valid\n", form.Code)
			case errors.Is(err, domain.ErrValidation):
				failed++
				fmt.Fprintln(cmd.OutOrStdout(), domain.DetailOf(err))
			default:
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d forms have problems", failed, len(forms))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
