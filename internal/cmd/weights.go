package cmd

import (
	"fmt"
	"strconv"

	"github.com/rewired-gh/sense/internal/models"
	"github.com/spf13/cobra"
)

func newWeightsCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "weights",
		Short: "Show or change scoring weights",
		Long: `Weights multiply a forecast's Brier score by how much the bet matters.
Changing them only affects forecasts created afterwards.`,
	}
	c.AddCommand(newWeightsShowCmd(a), newWeightsSetCmd(a))
	return c
}

func newWeightsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.tracker.WeightSettings()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Bet type:")
			for _, b := range models.BetTypes {
				fmt.Fprintf(out, "  %-15s %.2f\n", b, s.BetType[b])
			}
			fmt.Fprintln(out, "Novelty:")
			for _, n := range models.Novelties {
				fmt.Fprintf(out, "  %-15s %.2f\n", n, s.Novelty[n])
			}
			return nil
		},
	}
}

func newWeightsSetCmd(a *app) *cobra.Command {
	var betTypes, novelties map[string]string
	var reset bool

	c := &cobra.Command{
		Use:   "set",
		Short: "Change weights",
		Example: `  sense weights set --bet-type Feature=2
  sense weights set --novelty "New Behavior=1.8" --novelty "New Persona=1.4"
  sense weights set --reset`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.tracker.WeightSettings()
			if reset {
				s = models.DefaultWeightSettings()
			}
			for name, value := range betTypes {
				b, err := parseBetType(name)
				if err != nil {
					return err
				}
				w, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return models.NewConfigError("betType."+string(b), "must be a number")
				}
				s.BetType[b] = w
			}
			for name, value := range novelties {
				n, err := parseNovelty(name)
				if err != nil {
					return err
				}
				w, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return models.NewConfigError("novelty."+string(n), "must be a number")
				}
				s.Novelty[n] = w
			}

			if err := a.tracker.UpdateWeightSettings(s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Weights updated. Existing forecasts keep their original weight.")
			return nil
		},
	}
	c.Flags().StringToStringVar(&betTypes, "bet-type", nil, "Bet type weight as NAME=VALUE")
	c.Flags().StringToStringVar(&novelties, "novelty", nil, "Novelty weight as NAME=VALUE")
	c.Flags().BoolVar(&reset, "reset", false, "Start from the default weights")
	return c
}
