package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rewired-gh/sense/internal/analytics"
	"github.com/rewired-gh/sense/internal/logger"
	"github.com/rewired-gh/sense/internal/models"
	"github.com/rewired-gh/sense/internal/scoring"
	"github.com/rewired-gh/sense/internal/telegram"
	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	var top int
	var notify, asJSON bool

	c := &cobra.Command{
		Use:   "stats",
		Short: "Show calibration statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("top") {
				top = a.cfg.Dashboard.TopN
			}
			if top < 1 {
				return fmt.Errorf("--top must be at least 1, got %d", top)
			}
			stats := a.tracker.Dashboard(top)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(stats); err != nil {
					return fmt.Errorf("failed to encode stats: %w", err)
				}
			} else {
				printStats(out, stats)
			}

			if notify {
				return a.sendDigest(stats)
			}
			return nil
		},
	}
	c.Flags().IntVarP(&top, "top", "n", analytics.DefaultTopN, "Number of best and worst predictions to show")
	c.Flags().BoolVar(&notify, "notify", false, "Also send the digest to Telegram")
	c.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return c
}

func (a *app) sendDigest(stats analytics.Stats) error {
	tc := a.cfg.Telegram
	if !tc.Enabled {
		return fmt.Errorf("telegram is not enabled in the configuration")
	}
	client, err := telegram.NewClient(tc.BotToken, tc.ChatID, tc.MaxRetries, tc.RetryDelayBase)
	if err != nil {
		return err
	}
	logger.Debug("Telegram client initialized successfully")
	return client.SendDigest(stats, a.now())
}

func printStats(out io.Writer, s analytics.Stats) {
	fmt.Fprintf(out, "Forecasts: %d total, %d open, %d closed\n", s.Counts.Total, s.Counts.Open, s.Counts.Closed)
	if s.OverallBrier == nil {
		fmt.Fprintln(out, "Brier score: no closed forecasts yet")
		return
	}
	fmt.Fprintf(out, "Brier score: %s (%s)\n", scoring.FormatScore(*s.OverallBrier), s.OverallLevel)

	if len(s.Calibration) > 0 {
		fmt.Fprintln(out, "\nCalibration")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BUCKET\tFORECASTS\tPREDICTED\tACTUAL")
		for _, p := range s.Curve {
			fmt.Fprintf(w, "%s\t%d\t%d%%\t%d%%\n", p.Name, p.Count, p.Predicted, p.Actual)
		}
		_ = w.Flush()
	}

	if len(s.BetTypes) > 0 {
		fmt.Fprintln(out, "\nBy bet type")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, b := range s.BetTypes {
			fmt.Fprintf(w, "%s\t%s\t(%d)\n", b.BetType, scoring.FormatScore(b.AvgBrier), b.Count)
		}
		_ = w.Flush()
	}

	printRanked(out, "Best predictions", s.Best)
	printRanked(out, "Worst predictions", s.Worst)

	if len(s.Skipped) > 0 {
		fmt.Fprintf(out, "\n%d forecast(s) skipped:\n", len(s.Skipped))
		for _, issue := range s.Skipped {
			fmt.Fprintf(out, "  %s\n", issue.Error())
		}
	}
}

func printRanked(out io.Writer, title string, fs []models.Forecast) {
	if len(fs) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", title)
	for i, f := range fs {
		outcome := "unknown outcome"
		if f.ActualOutcome != nil {
			outcome = string(*f.ActualOutcome)
		}
		fmt.Fprintf(out, "  %d. %s %s (%d%%, %s) Brier %s\n",
			i+1, f.ID, truncate(f.Prediction, 50), f.Probability, outcome, scoring.FormatScore(*f.BrierScore))
	}
}
