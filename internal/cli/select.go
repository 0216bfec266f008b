package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/newsletter-rotation/internal/selector"
)

func init() {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select content for the next newsletter and record it",
		Long:  "Runs one selection, saves the updated state and prints the chosen items in order.",
		Run:   runSelect,
	}

	cmd.Flags().Bool("dry-run", false, "Select without saving state")

	RootCmd.AddCommand(cmd)
}

func runSelect(cmd *cobra.Command, args []string) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig(cmd)
	if err != nil {
		exitErr("load config", err)
	}
	logger := newLogger(cfg)

	st, err := openState(cfg, logger)
	if err != nil {
		exitErr("open state", err)
	}
	defer st.Close()

	res, err := newRunner(cfg, st, logger).Run(cmd.Context(), selector.RunOptions{DryRun: dryRun})
	if err != nil && !errors.Is(err, selector.ErrPersistence) {
		exitErr("select", err)
	}

	out := cmd.OutOrStdout()
	if textOutput() {
		for _, id := range res.IDs() {
			fmt.Fprintln(out, id)
		}
	} else {
		printJSON(out, res)
	}

	if err != nil {
		exitErr("save state", err)
	}
}
