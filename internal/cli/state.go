package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/newsletter-rotation/internal/config"
	"github.com/rcliao/newsletter-rotation/internal/model"
	"github.com/rcliao/newsletter-rotation/internal/state"
)

func init() {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or move selection state",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show processed and rotation history statistics",
		Run:   runStateShow,
	}
	show.Flags().IntP("limit", "l", 10, "Recent runs to list (SQLite only)")

	export := &cobra.Command{
		Use:   "export",
		Short: "Export state as JSON",
		Long:  "Writes {\"processed\": [...], \"history\": [...]} to stdout. Use with import to switch backends.",
		Run:   runStateExport,
	}

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Merge state from JSON",
		Long:  "Reads the format produced by export from a file or stdin and merges it into the current state.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runStateImport,
	}

	cmd.AddCommand(show, export, imp)
	RootCmd.AddCommand(cmd)
}

// loadStateConfig is loadConfig without the content directory requirement.
func loadStateConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if cmd.Flags().Changed("state") {
		cfg.State = statePath
	}
	if cmd.Flags().Changed("rotation-memory") {
		cfg.Selection.RotationMemory = rotationMemory
	}
	return cfg
}

type stateReport struct {
	*state.Stats
	Recent []model.Run `json:"recent_runs,omitempty"`
}

func runStateShow(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	cfg := loadStateConfig(cmd)

	s, err := openState(cfg, newLogger(cfg))
	if err != nil {
		exitErr("open state", err)
	}
	defer s.Close()

	var report stateReport
	switch st := s.(type) {
	case *state.SQLiteStore:
		report.Stats, err = st.Stats(cmd.Context(), cfg.State)
		if err == nil {
			report.Recent, err = st.Runs(cmd.Context(), limit)
		}
	case *state.FileStore:
		report.Stats, err = st.Stats(cmd.Context())
	default:
		err = fmt.Errorf("unsupported state backend %T", s)
	}
	if err != nil {
		exitErr("stats", err)
	}

	printJSON(cmd.OutOrStdout(), report)
}

func runStateExport(cmd *cobra.Command, args []string) {
	cfg := loadStateConfig(cmd)

	s, err := openState(cfg, newLogger(cfg))
	if err != nil {
		exitErr("open state", err)
	}
	defer s.Close()

	snap, err := state.Export(cmd.Context(), s, cfg.Selection.RotationMemory)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(cmd.OutOrStdout(), snap)
}

func runStateImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read input", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		exitErr("parse json", err)
	}

	cfg := loadStateConfig(cmd)
	s, err := openState(cfg, newLogger(cfg))
	if err != nil {
		exitErr("open state", err)
	}
	defer s.Close()

	st, err := state.Import(cmd.Context(), s, snap, cfg.Selection.RotationMemory)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"processed":%d,"history":%d}`+"\n", len(st.Processed), len(st.History))
}
