package cmd

import (
	"fmt"

	"github.com/rewired-gh/sense/internal/models"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
	}
	c.AddCommand(newProfileShowCmd(a), newProfileSetCmd(a))
	return c
}

func newProfileShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p, ok := a.tracker.Profile()
			if !ok {
				fmt.Fprintln(out, "No profile yet. Run 'sense profile set --name <your name>' to create one.")
				return nil
			}
			fmt.Fprintf(out, "Name:    %s\n", p.FullName)
			if p.Company != "" {
				fmt.Fprintf(out, "Company: %s\n", p.Company)
			}
			if p.Email != "" {
				fmt.Fprintf(out, "Email:   %s\n", p.Email)
			}
			fmt.Fprintf(out, "Since:   %s\n", p.CreatedAt.Format("2006-01-02"))
			fmt.Fprintf(out, "ID:      %s\n", p.ID)
			return nil
		},
	}
}

func newProfileSetCmd(a *app) *cobra.Command {
	var data models.ProfileData

	c := &cobra.Command{
		Use:   "set",
		Short: "Create or update your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.tracker.UpdateProfile(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved profile for %s\n", p.FullName)
			return nil
		},
	}
	c.Flags().StringVar(&data.FullName, "name", "", "Full name")
	c.Flags().StringVar(&data.Company, "company", "", "Company")
	c.Flags().StringVar(&data.Email, "email", "", "Email address")
	_ = c.MarkFlagRequired("name")
	return c
}
