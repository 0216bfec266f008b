package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcliao/newsletter-rotation/internal/config"
	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/digest"
	"github.com/rcliao/newsletter-rotation/internal/selector"
)

func init() {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Select content and write the Markdown newsletter",
		Long: "Runs one selection and writes newsletter_YYYYMMDD.md into the output directory.\n" +
			"With --dry-run the digest is printed and no state is saved.",
		Run: runDigest,
	}

	cmd.Flags().StringP("out", "o", "", "Output directory (default: $OUTPUT_DIR or ./newsletters)")
	cmd.Flags().Bool("dry-run", false, "Print the digest instead of writing it; do not save state")

	RootCmd.AddCommand(cmd)
}

type digestReport struct {
	OK       bool     `json:"ok"`
	RunID    string   `json:"run_id"`
	Path     string   `json:"path,omitempty"`
	Selected []string `json:"selected"`
	Rotated  bool     `json:"rotated"`
	Skipped  []string `json:"skipped,omitempty"`
}

func runDigest(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig(cmd)
	if err != nil {
		exitErr("load config", err)
	}
	if out != "" {
		cfg.OutputDir = out
	}
	logger := newLogger(cfg)

	var preview io.Writer
	if dryRun {
		preview = cmd.OutOrStdout()
	}
	report, err := makeDigest(cmd.Context(), cfg, logger, preview)
	if report != nil && !dryRun {
		printJSON(cmd.OutOrStdout(), report)
	}
	if err != nil {
		exitErr("digest", err)
	}
}

// makeDigest selects content and renders it. A non-nil preview receives the
// Markdown instead of the output directory, and state is left untouched.
func makeDigest(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, preview io.Writer) (*digestReport, error) {
	st, err := openState(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	defer st.Close()

	dryRun := preview != nil
	res, runErr := newRunner(cfg, st, logger).Run(ctx, selector.RunOptions{DryRun: dryRun})
	if runErr != nil && !errors.Is(runErr, selector.ErrPersistence) {
		return nil, runErr
	}

	report := &digestReport{RunID: res.RunID, Selected: res.IDs(), Rotated: res.Rotated}
	docs := make([]*content.Document, 0, len(res.Selected))
	for _, c := range res.Selected {
		doc, err := content.Read(c.ContentItem)
		if err != nil {
			logger.WithError(err).WithField("item", c.ID).Warn("skipping unreadable item")
			report.Skipped = append(report.Skipped, c.ID)
			continue
		}
		docs = append(docs, doc)
	}

	now := time.Now()
	if dryRun {
		data, err := digest.Render(now, docs)
		if err != nil {
			return nil, err
		}
		_, err = preview.Write(data)
		return report, err
	}

	path, err := digest.Write(cfg.OutputDir, now, docs)
	if err != nil {
		return nil, err
	}
	report.Path = path
	report.OK = runErr == nil
	logger.WithFields(logrus.Fields{
		"path":     path,
		"selected": len(docs),
	}).Info("digest written")

	// The digest exists, but the next run will not know about it.
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}
