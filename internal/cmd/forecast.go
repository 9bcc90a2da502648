package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rewired-gh/sense/internal/attachment"
	"github.com/rewired-gh/sense/internal/logger"
	"github.com/rewired-gh/sense/internal/models"
	"github.com/rewired-gh/sense/internal/scoring"
	"github.com/rewired-gh/sense/internal/tracker"
	"github.com/spf13/cobra"
)

func newCreateCmd(a *app) *cobra.Command {
	var flags struct {
		betType     string
		prediction  string
		metric      string
		target      string
		byWhen      string
		probability int
		novelty     string
		risks       string
		evidence    string
		image       string
	}

	c := &cobra.Command{
		Use:   "create",
		Short: "Record a new forecast",
		Long: `Record a new forecast. The confidence bucket and the weight are fixed now,
from the probability and the current weight settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.probability < 0 || flags.probability > 100 {
				return models.NewValidationError("probability",
					fmt.Sprintf("must be between 0 and 100, got %d", flags.probability))
			}
			betType, err := parseBetType(flags.betType)
			if err != nil {
				return err
			}
			novelty, err := parseNovelty(flags.novelty)
			if err != nil {
				return err
			}
			metric, err := parseMetric(flags.metric)
			if err != nil {
				return err
			}

			data := models.NewForecastData{
				BetType:         betType,
				Prediction:      flags.prediction,
				SuccessMetric:   metric,
				TargetThreshold: flags.target,
				ByWhen:          flags.byWhen,
				Probability:     flags.probability,
				Novelty:         novelty,
				Risks:           flags.risks,
				Evidence:        flags.evidence,
			}
			if flags.image != "" {
				if data.ImageData, data.ImageName, err = a.loadImage(flags.image); err != nil {
					return err
				}
			}

			f, err := a.tracker.CreateForecast(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %s at %d%% (bucket %s, weight %.2f)\n",
				f.ID, f.BetType, f.Probability, f.ConfidenceBucket, f.Weight)
			return nil
		},
	}

	fl := c.Flags()
	fl.StringVar(&flags.betType, "bet-type", "", "Bet type: New Product, Feature, Iteration or Experiment")
	fl.StringVar(&flags.prediction, "prediction", "", "What you predict will happen")
	fl.StringVar(&flags.metric, "metric", "", "Success metric, e.g. Activation or Retention")
	fl.StringVar(&flags.target, "target", "", "Target threshold, e.g. \"+10% week-1 activation\"")
	fl.StringVar(&flags.byWhen, "by", "", "Deadline")
	fl.IntVarP(&flags.probability, "probability", "p", 0, "Probability of success, 0-100")
	fl.StringVar(&flags.novelty, "novelty", "", "Novelty: New Behavior, New Persona or Known Problem")
	fl.StringVar(&flags.risks, "risks", "", "Known risks")
	fl.StringVar(&flags.evidence, "evidence", "", "Supporting evidence")
	fl.StringVar(&flags.image, "image", "", "Path to a PNG, JPG, GIF or WebP image to attach")
	for _, name := range []string{"bet-type", "prediction", "metric", "target", "by", "probability", "novelty"} {
		_ = c.MarkFlagRequired(name)
	}
	return c
}

// loadImage reads, validates and encodes an image file for storage.
func (a *app) loadImage(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read image: %w", err)
	}
	mime, err := attachment.Validate(raw)
	if err != nil {
		return "", "", err
	}

	dataURL := attachment.EncodeDataURL(mime, raw)
	if attachment.OverTarget(dataURL) {
		logger.Warn("Image %s is %s encoded; consider shrinking it below %s",
			filepath.Base(path), humanize.IBytes(uint64(len(dataURL))), humanize.IBytes(attachment.TargetBytes))
	}

	used, err := a.tracker.StorageUsage()
	switch {
	case errors.Is(err, tracker.ErrUsageUnsupported):
		logger.Debug("Storage backend does not report usage, skipping quota check")
	case err != nil:
		return "", "", err
	default:
		if err := attachment.CheckQuota(used, int64(attachment.EstimateStorageSize(dataURL))); err != nil {
			return "", "", err
		}
	}
	return dataURL, filepath.Base(path), nil
}

func newCloseCmd(a *app) *cobra.Command {
	var outcome, note string

	c := &cobra.Command{
		Use:   "close <id>",
		Short: "Close a forecast with its observed outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseOutcome(outcome)
			if err != nil {
				return err
			}
			f, err := a.tracker.CloseForecast(args[0], models.CloseForecastData{
				ActualOutcome: level,
				LearningNote:  note,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s: %s, Brier %s (weighted %s), %s\n",
				f.ID, level,
				scoring.FormatScore(*f.BrierScore),
				scoring.FormatScore(*f.WeightedBrier),
				scoring.Level(*f.BrierScore))
			return nil
		},
	}
	c.Flags().StringVar(&outcome, "outcome", "", "Outcome: Hit Target, Met Target, Strong Result, Mixed Result, Weak Result or Failed")
	c.Flags().StringVar(&note, "note", "", "What you learned")
	_ = c.MarkFlagRequired("outcome")
	return c
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a forecast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.DeleteForecast(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a forecast in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.tracker.Forecast(args[0])
			if err != nil {
				return err
			}
			printForecast(cmd.OutOrStdout(), f)
			return nil
		},
	}
}

func printForecast(out io.Writer, f models.Forecast) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", f.ID)
	fmt.Fprintf(w, "Created:\t%s\n", f.DateCreated.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Status:\t%s\n", f.Status)
	fmt.Fprintf(w, "Bet type:\t%s\n", f.BetType)
	fmt.Fprintf(w, "Prediction:\t%s\n", f.Prediction)
	fmt.Fprintf(w, "Metric:\t%s\n", f.SuccessMetric)
	fmt.Fprintf(w, "Target:\t%s\n", f.TargetThreshold)
	fmt.Fprintf(w, "By when:\t%s\n", f.ByWhen)
	fmt.Fprintf(w, "Probability:\t%d%% (%s)\n", f.Probability, f.ConfidenceBucket)
	fmt.Fprintf(w, "Novelty:\t%s\n", f.Novelty)
	fmt.Fprintf(w, "Weight:\t%.2f\n", f.Weight)
	if f.Risks != "" {
		fmt.Fprintf(w, "Risks:\t%s\n", f.Risks)
	}
	if f.Evidence != "" {
		fmt.Fprintf(w, "Evidence:\t%s\n", f.Evidence)
	}
	if f.ImageData != "" {
		fmt.Fprintf(w, "Image:\t%s (%s)\n", f.ImageName, humanize.IBytes(uint64(attachment.EstimateStorageSize(f.ImageData))))
	}
	if f.IsClosed() {
		if f.ActualOutcome != nil {
			fmt.Fprintf(w, "Outcome:\t%s (%s)\n", *f.ActualOutcome, f.ActualOutcome.Description())
		}
		if f.BrierScore != nil {
			fmt.Fprintf(w, "Brier:\t%s (%s)\n", scoring.FormatScore(*f.BrierScore), scoring.Level(*f.BrierScore))
		}
		if f.WeightedBrier != nil {
			fmt.Fprintf(w, "Weighted Brier:\t%s\n", scoring.FormatScore(*f.WeightedBrier))
		}
		if f.LearningNote != "" {
			fmt.Fprintf(w, "Learning:\t%s\n", f.LearningNote)
		}
		if f.ClosedAt != nil {
			fmt.Fprintf(w, "Closed:\t%s\n", f.ClosedAt.Format("2006-01-02 15:04"))
		}
	}
	_ = w.Flush()
}

func newListCmd(a *app) *cobra.Command {
	var filter string

	c := &cobra.Command{
		Use:   "list",
		Short: "List forecasts, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := parseFilter(filter)
			if err != nil {
				return err
			}
			fs := a.tracker.List(ff)
			out := cmd.OutOrStdout()
			if len(fs) == 0 {
				fmt.Fprintln(out, "No forecasts.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tBET TYPE\tP\tBRIER\tPREDICTION")
			for _, f := range fs {
				brier := "-"
				if f.BrierScore != nil {
					brier = scoring.FormatScore(*f.BrierScore)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
					f.ID, f.Status, f.BetType, f.Probability, brier, truncate(f.Prediction, 60))
			}
			return w.Flush()
		},
	}
	c.Flags().StringVarP(&filter, "filter", "f", string(models.FilterAll), "Status filter: all, open or closed")
	return c
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
