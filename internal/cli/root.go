// Package cli implements the newsletter-rotation CLI commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcliao/newsletter-rotation/internal/config"
	"github.com/rcliao/newsletter-rotation/internal/content"
	"github.com/rcliao/newsletter-rotation/internal/logging"
	"github.com/rcliao/newsletter-rotation/internal/selector"
	"github.com/rcliao/newsletter-rotation/internal/state"
)

var (
	configPath string
	contentDir string
	statePath  string
	formatFlag string
	logLevel   string

	maxCount       int
	daysAgo        int
	forceRotation  bool
	rotationCount  int
	rotationMemory int
	seed           int64
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "newsletter-rotation",
	Short: "Pick portfolio content for the next newsletter",
	Long: "Selects which Markdown files appear in a newsletter run, favouring new and recently\n" +
		"modified content and rotating older items so consecutive issues do not repeat.",
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/newsletter-rotation/config.yaml)")
	pf.StringVar(&contentDir, "content-dir", "", "Markdown content directory (default: $CONTENT_DIR or $PORTFOLIO_DIR/docs)")
	pf.StringVarP(&statePath, "state", "s", "", "State directory, or a .db file for SQLite (default: $TRACKING_DIR)")
	pf.StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	pf.StringVar(&logLevel, "log-level", "", "Log level (default: $LOG_LEVEL or info)")

	pf.IntVar(&maxCount, "max-count", selector.DefaultMaxCount, "Maximum items per run")
	pf.IntVar(&daysAgo, "days-ago", selector.DefaultDaysAgo, "Recency window in days")
	pf.BoolVar(&forceRotation, "force-rotation", false, "Rotate older content in when too few items are new")
	pf.IntVar(&rotationCount, "rotation-count", selector.DefaultRotationCount, "Slots reserved for rotated content")
	pf.IntVar(&rotationMemory, "rotation-memory", selector.DefaultRotationMemory, "Selections remembered to avoid repeats")
	pf.Int64Var(&seed, "seed", 0, "Seed for breaking exact ties (default: identifier order)")
}

// loadConfig resolves the configuration and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("content-dir") {
		cfg.ContentDir = contentDir
	}
	if flags.Changed("state") {
		cfg.State = statePath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("max-count") {
		cfg.Selection.MaxCount = maxCount
	}
	if flags.Changed("days-ago") {
		cfg.Selection.DaysAgo = daysAgo
	}
	if flags.Changed("force-rotation") {
		cfg.Selection.ForceRotation = forceRotation
	}
	if flags.Changed("rotation-count") {
		cfg.Selection.RotationCount = rotationCount
	}
	if flags.Changed("rotation-memory") {
		cfg.Selection.RotationMemory = rotationMemory
	}
	if flags.Changed("seed") {
		cfg.Selection.Rand = rand.New(rand.NewSource(seed))
	}

	if cfg.ContentDir == "" {
		return nil, fmt.Errorf("no content directory: set --content-dir, CONTENT_DIR or PORTFOLIO_DIR")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

// openState opens the configured backend. A corrupt SQLite file has already
// been moved aside by the store; that is logged and the fresh store is used.
func openState(cfg *config.Config, logger logrus.FieldLogger) (state.Store, error) {
	st, err := state.Open(cfg.State)
	if err != nil && st != nil && errors.Is(err, state.ErrStateCorrupt) {
		logger.WithError(err).WithField("state", cfg.State).Warn("selection state corrupt, starting fresh")
		return st, nil
	}
	return st, err
}

func newRunner(cfg *config.Config, st state.Store, logger logrus.FieldLogger) *selector.Runner {
	return &selector.Runner{
		Source: content.NewDir(cfg.ContentDir),
		State:  st,
		Config: cfg.Selection,
		Logger: logger.WithField("state", cfg.State),
	}
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func textOutput() bool {
	return formatFlag == "text"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
