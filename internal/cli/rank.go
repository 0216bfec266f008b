package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/model"
	"github.com/rcliao/newsletter-rotation/internal/selector"
	"github.com/rcliao/newsletter-rotation/internal/state"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show every candidate with its score",
		Long:  "Ranks all content against the current state without recording anything.",
		Run:   runRank,
	}

	RootCmd.AddCommand(cmd)
}

func runRank(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		exitErr("load config", err)
	}
	logger := newLogger(cfg)

	items, err := content.NewDir(cfg.ContentDir).List(cmd.Context())
	if err != nil {
		exitErr("list content", err)
	}

	s, err := openState(cfg, logger)
	if err != nil {
		exitErr("open state", err)
	}
	defer s.Close()

	st, err := s.Load(cmd.Context(), cfg.Selection.RotationMemory)
	if err != nil {
		if !errors.Is(err, state.ErrStateCorrupt) {
			exitErr("load state", err)
		}
		logger.WithError(err).Warn("selection state corrupt, ranking against empty state")
		st = model.NewSelectionState()
	}

	ranked := selector.Rank(items, st, cfg.Selection, time.Now())

	out := cmd.OutOrStdout()
	if !textOutput() {
		printJSON(out, ranked)
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPOINTS\tNEW\tRECENT\tMETA\tHISTORY\tMODIFIED\tID")
	for i, c := range ranked {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.Points, mark(c.IsNew), mark(c.IsRecent), mark(c.HasFrontMatter), mark(c.InHistory),
			c.ModifiedAt.Format("2006-01-02"), c.ID)
	}
	w.Flush()
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return "-"
}
